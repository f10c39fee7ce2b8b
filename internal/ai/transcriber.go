package ai

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// RecognitionFailedText is the designated failure sentinel a transcriber
// returns instead of raising: the caller sees a text either way and decides
// how to end the turn.
const RecognitionFailedText = "语音识别失败，请重试"

// IsRecognitionFailure reports whether a transcript means "nothing usable was
// heard": empty output or the failure sentinel.
func IsRecognitionFailure(text string) bool {
	t := strings.TrimSpace(text)
	return t == "" || t == RecognitionFailedText
}

// Transcriber converts raw single-channel speech audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// SiliconFlowTranscriber calls the SiliconFlow OpenAI-compatible audio
// transcriptions endpoint. Vendor failures are folded into the recognition
// sentinel rather than returned as errors; a voice turn should answer "I
// could not hear you", not surface a transport stack trace.
type SiliconFlowTranscriber struct {
	client *openai.Client
	model  string
}

type TranscriberConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewSiliconFlowTranscriber(cfg TranscriberConfig) (*SiliconFlowTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("siliconflow api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "TeleAI/TeleSpeechASR"
	}
	return &SiliconFlowTranscriber{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

func (t *SiliconFlowTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		log.Printf("stt transcription failed: %v", err)
		return RecognitionFailedText, nil
	}
	return strings.TrimSpace(resp.Text), nil
}
