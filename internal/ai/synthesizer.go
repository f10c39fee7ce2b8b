package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Synthesizer turns reply text into audio bytes. Failures surface as errors;
// the conversation orchestrator degrades to an empty audio payload so the
// turn still answers in text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ElevenLabsSynthesizer collects a full utterance from the ElevenLabs
// text-to-speech stream-input websocket.
type ElevenLabsSynthesizer struct {
	cfg ElevenLabsConfig
}

type ElevenLabsConfig struct {
	APIKey       string
	WSBaseURL    string
	VoiceID      string
	ModelID      string
	OutputFormat string
}

func NewElevenLabsSynthesizer(cfg ElevenLabsConfig) (*ElevenLabsSynthesizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("elevenlabs api key is required")
	}
	if strings.TrimSpace(cfg.VoiceID) == "" {
		return nil, errors.New("elevenlabs voice id is required")
	}
	if strings.TrimSpace(cfg.WSBaseURL) == "" {
		cfg.WSBaseURL = "wss://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if strings.TrimSpace(cfg.OutputFormat) == "" {
		cfg.OutputFormat = "mp3_44100_128"
	}
	return &ElevenLabsSynthesizer{cfg: cfg}, nil
}

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	u, err := url.Parse(strings.TrimRight(s.cfg.WSBaseURL, "/") + "/v1/text-to-speech/" + url.PathEscape(s.cfg.VoiceID) + "/stream-input")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("model_id", s.cfg.ModelID)
	q.Set("output_format", s.cfg.OutputFormat)
	q.Set("auto_mode", "true")
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("xi-api-key", s.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, fmt.Errorf("dial tts websocket: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(30 * time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	_ = conn.SetWriteDeadline(deadline)

	// Prime the stream as documented for TTS websocket flows, then send the
	// whole utterance and close input so the server flushes everything.
	msgs := []map[string]any{
		{
			"text": " ",
			"voice_settings": map[string]any{
				"stability":        0.5,
				"similarity_boost": 0.75,
			},
		},
		{"text": text, "try_trigger_generation": true},
		{"text": ""},
	}
	for _, msg := range msgs {
		if err := conn.WriteJSON(msg); err != nil {
			return nil, fmt.Errorf("write tts message: %w", err)
		}
	}

	var audio []byte
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// A normal close after audio was received is the end of stream,
			// not a failure.
			if len(audio) > 0 && websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return audio, nil
			}
			return nil, fmt.Errorf("read tts message: %w", err)
		}

		var raw struct {
			Audio   string `json:"audio"`
			IsFinal bool   `json:"isFinal"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}
		if raw.Error != "" {
			return nil, fmt.Errorf("tts stream error: %s", raw.Error)
		}
		if raw.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(raw.Audio)
			if err != nil {
				return nil, fmt.Errorf("decode tts audio: %w", err)
			}
			audio = append(audio, chunk...)
		}
		if raw.IsFinal {
			return audio, nil
		}
	}
}
