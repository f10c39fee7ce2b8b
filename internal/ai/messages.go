package ai

// Message roles follow the chat-completions convention.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SamplingParams tune a completion call. The companion turn runs warm and
// short; the analyst pass runs cold with a generous token budget.
type SamplingParams struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// CompanionSampling is used for realtime companion replies.
func CompanionSampling() SamplingParams {
	return SamplingParams{Temperature: 0.8, MaxTokens: 150, TopP: 0.9}
}

// AnalystSampling is used for the offline structured-output analysis pass.
func AnalystSampling() SamplingParams {
	return SamplingParams{Temperature: 0.2, MaxTokens: 2500}
}
