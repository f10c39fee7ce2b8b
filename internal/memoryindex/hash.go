package memoryindex

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedder is the dev-mode stand-in used when no embeddings backend is
// configured. It hashes tokens into a fixed-dimension bag-of-words vector:
// not semantically meaningful, but deterministic, so retrieval stays exercised
// end to end without credentials.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 1024
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Dimension() int { return e.dim }

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, token := range strings.Fields(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[int(h.Sum32())%e.dim]++
	}
	// CJK text rarely has spaces; fall back to hashing runes so two related
	// sentences still share components.
	for _, r := range text {
		h := fnv.New32a()
		_, _ = h.Write([]byte(string(r)))
		vec[int(h.Sum32())%e.dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}
