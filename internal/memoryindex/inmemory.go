package memoryindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// InMemoryIndex keeps records and their vectors in process memory and ranks
// matches by cosine similarity. Suited to the single-subject scale this
// service targets; swap in the Postgres index for anything larger.
type InMemoryIndex struct {
	embedder Embedder

	mu      sync.RWMutex
	entries map[string]indexEntry
}

type indexEntry struct {
	rec Record
	vec []float32
}

func NewInMemoryIndex(embedder Embedder) *InMemoryIndex {
	return &InMemoryIndex{
		embedder: embedder,
		entries:  make(map[string]indexEntry),
	}
}

func (ix *InMemoryIndex) Upsert(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("memory record id is required")
	}
	vec, err := ix.embedder.Embed(ctx, rec.Text)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", rec.ID, err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries[rec.ID] = indexEntry{rec: rec, vec: vec}
	return nil
}

func (ix *InMemoryIndex) Query(ctx context.Context, queryText string, k int) ([]string, error) {
	if k < 1 {
		return nil, nil
	}
	queryVec, err := ix.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryNorm := norm(queryVec)
	if queryNorm == 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type scored struct {
		id    string
		text  string
		score float64
	}
	matches := make([]scored, 0, len(ix.entries))
	for id, e := range ix.entries {
		n := norm(e.vec)
		if n == 0 {
			continue
		}
		matches = append(matches, scored{
			id:    id,
			text:  e.rec.Text,
			score: dot(queryVec, e.vec) / (queryNorm * n),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].id < matches[j].id
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.text)
	}
	return out, nil
}

func (ix *InMemoryIndex) Close() error { return nil }

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
