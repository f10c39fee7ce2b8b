package memoryindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yukesong/xiaoya/internal/reliability"
)

// SiliconFlowEmbedder produces embeddings through the SiliconFlow
// OpenAI-compatible embeddings endpoint.
type SiliconFlowEmbedder struct {
	client     *openai.Client
	model      string
	dim        int
	maxRetries int
}

type EmbedderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Dim     int
}

func NewSiliconFlowEmbedder(cfg EmbedderConfig) (*SiliconFlowEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("siliconflow api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "BAAI/bge-m3"
	}
	dim := cfg.Dim
	if dim <= 0 {
		dim = 1024
	}
	return &SiliconFlowEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		dim:        dim,
		maxRetries: 2,
	}, nil
}

func (e *SiliconFlowEmbedder) Dimension() int { return e.dim }

func (e *SiliconFlowEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt-1, 200*time.Millisecond, 2*time.Second)):
			}
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(e.model),
		})
		if err == nil {
			if len(resp.Data) == 0 {
				return nil, errors.New("embeddings response is empty")
			}
			vec := resp.Data[0].Embedding
			if len(vec) != e.dim {
				return nil, fmt.Errorf("embedding dimension %d, expected %d", len(vec), e.dim)
			}
			return vec, nil
		}

		lastErr = err
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && !reliability.IsRetryableHTTPStatus(apiErr.HTTPStatusCode) {
			break
		}
	}
	return nil, fmt.Errorf("embed text: %w", lastErr)
}
