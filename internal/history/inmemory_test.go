package history

import (
	"context"
	"fmt"
	"testing"
)

func TestInMemoryStoreRecentReturnsChronologicalTail(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	for i := 0; i < 8; i++ {
		err := s.Append(ctx, Turn{
			SessionID: "demo_elder",
			UserText:  fmt.Sprintf("user %d", i),
			AIText:    fmt.Sprintf("ai %d", i),
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	turns, err := s.Recent(ctx, "demo_elder", 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(turns) != 5 {
		t.Fatalf("Recent() len = %d, want 5", len(turns))
	}
	if turns[0].UserText != "user 3" || turns[4].UserText != "user 7" {
		t.Fatalf("Recent() window = [%q..%q], want [user 3..user 7]", turns[0].UserText, turns[4].UserText)
	}
	for i := 1; i < len(turns); i++ {
		if turns[i].Seq <= turns[i-1].Seq {
			t.Fatalf("Recent() seq not strictly increasing at %d: %d then %d", i, turns[i-1].Seq, turns[i].Seq)
		}
	}
}

func TestInMemoryStoreAssignsIDAndTimestamp(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	if err := s.Append(ctx, Turn{SessionID: "demo_elder", UserText: "hi", AIText: "hello"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	turns, err := s.All(ctx, "demo_elder")
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("All() len = %d, want 1", len(turns))
	}
	if turns[0].ID == "" {
		t.Fatalf("Append() did not assign an id")
	}
	if turns[0].CreatedAt.IsZero() {
		t.Fatalf("Append() did not assign a timestamp")
	}
}

func TestInMemoryStoreSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	if err := s.Append(ctx, Turn{SessionID: "a", UserText: "u", AIText: "a"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	turns, err := s.All(ctx, "b")
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("All() for other session len = %d, want 0", len(turns))
	}
}
