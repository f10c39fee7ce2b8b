package memoryindex

import "context"

// Kind tags what a memory record wraps.
type Kind string

const (
	// KindConversation wraps the combined text of one persisted turn.
	KindConversation Kind = "conversation"
	// KindInsight is a standalone categorized observation, e.g. a preference.
	KindInsight Kind = "insight"
)

// Record is one unit in the retrieval index. IDs are globally unique and
// upserts are idempotent per id.
type Record struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Kind     Kind              `json:"kind"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Index is a nearest-neighbor text store used to augment companion prompts.
type Index interface {
	Upsert(ctx context.Context, rec Record) error
	// Query returns up to k record texts ranked by similarity to queryText,
	// most relevant first. An empty result is not an error.
	Query(ctx context.Context, queryText string, k int) ([]string, error)
	Close() error
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
