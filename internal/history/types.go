package history

import (
	"context"
	"time"
)

// Turn stores one finalized user/assistant exchange. Turns are append-only:
// once written they are never edited or deleted by this service.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserText  string    `json:"user_text"`
	AIText    string    `json:"ai_text"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists and retrieves the conversation log. Ordering is by
// (created_at, seq); seq breaks ties when timestamps collide.
type Store interface {
	Append(ctx context.Context, turn Turn) error
	// Recent returns up to limit most recent turns in chronological order.
	Recent(ctx context.Context, sessionID string, limit int) ([]Turn, error)
	// All returns every turn for the session in chronological order.
	All(ctx context.Context, sessionID string) ([]Turn, error)
	Close() error
}
