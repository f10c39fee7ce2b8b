package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Completer generates text from an ordered message sequence.
//
// Configured reports whether real credentials back this completer. The
// conversation orchestrator works against a stub; the analysis orchestrator
// refuses to, because clinical-style scoring must never come from canned data.
type Completer interface {
	Complete(ctx context.Context, messages []Message, params SamplingParams) (string, error)
	Configured() bool
}

// SiliconFlowCompleter calls the SiliconFlow OpenAI-compatible chat endpoint.
type SiliconFlowCompleter struct {
	client *openai.Client
	model  string
}

type CompleterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewSiliconFlowCompleter(cfg CompleterConfig) (*SiliconFlowCompleter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("siliconflow api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "Qwen/Qwen2.5-7B-Instruct"
	}
	return &SiliconFlowCompleter{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

func (c *SiliconFlowCompleter) Configured() bool { return true }

func (c *SiliconFlowCompleter) Complete(ctx context.Context, messages []Message, params SamplingParams) (string, error) {
	reqMsgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		reqMsgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    reqMsgs,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		TopP:        params.TopP,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			// Keep vendor status and body visible for diagnostics upstream.
			return "", fmt.Errorf("chat completion status %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
