package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the companion backend.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	SessionID string

	SiliconFlowAPIKey     string
	SiliconFlowBaseURL    string
	SiliconFlowSTTModel   string
	SiliconFlowChatModel  string
	SiliconFlowEmbedModel string

	ElevenLabsAPIKey    string
	ElevenLabsWSBaseURL string
	ElevenLabsVoiceID   string
	ElevenLabsModelID   string

	DatabaseURL        string
	MemoryEmbeddingDim int

	TurnTimeout     time.Duration
	AnalysisTimeout time.Duration

	HistoryWindow    int
	MemoryTopK       int
	AnalysisMaxTurns int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8000"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "xiaoya"),
		SessionID:           envOrDefault("APP_SESSION_ID", "demo_elder"),
		SiliconFlowAPIKey:   envTrimmed("SILICONFLOW_API_KEY"),
		SiliconFlowBaseURL:  envOrDefault("SILICONFLOW_BASE_URL", "https://api.siliconflow.cn/v1"),
		SiliconFlowSTTModel: envOrDefault("SILICONFLOW_STT_MODEL", "TeleAI/TeleSpeechASR"),
		// Qwen is fast enough for the realtime companion turn; the analyst pass
		// reuses the same model with colder sampling.
		SiliconFlowChatModel:  envOrDefault("SILICONFLOW_CHAT_MODEL", "Qwen/Qwen2.5-7B-Instruct"),
		SiliconFlowEmbedModel: envOrDefault("SILICONFLOW_EMBED_MODEL", "BAAI/bge-m3"),
		ElevenLabsAPIKey:      envTrimmed("ELEVENLABS_API_KEY"),
		ElevenLabsWSBaseURL:   envOrDefault("ELEVENLABS_WS_BASE_URL", "wss://api.elevenlabs.io"),
		// Default to a warm premade voice that suits the granddaughter persona.
		ElevenLabsVoiceID:  envOrDefault("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		ElevenLabsModelID:  envOrDefault("ELEVENLABS_TTS_MODEL_ID", "eleven_multilingual_v2"),
		DatabaseURL:        envTrimmed("DATABASE_URL"),
		MemoryEmbeddingDim: 1024,
		ShutdownTimeout:    15 * time.Second,
		TurnTimeout:        30 * time.Second,
		AnalysisTimeout:    2 * time.Minute,
		HistoryWindow:      5,
		MemoryTopK:         3,
		AnalysisMaxTurns:   30,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TurnTimeout, err = durationFromEnv("APP_TURN_TIMEOUT", cfg.TurnTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AnalysisTimeout, err = durationFromEnv("APP_ANALYSIS_TIMEOUT", cfg.AnalysisTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryEmbeddingDim, err = intFromEnv("MEMORY_EMBEDDING_DIM", cfg.MemoryEmbeddingDim)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWindow, err = intFromEnv("APP_HISTORY_WINDOW", cfg.HistoryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryTopK, err = intFromEnv("APP_MEMORY_TOPK", cfg.MemoryTopK)
	if err != nil {
		return Config{}, err
	}
	cfg.AnalysisMaxTurns, err = intFromEnv("APP_ANALYSIS_MAX_TURNS", cfg.AnalysisMaxTurns)
	if err != nil {
		return Config{}, err
	}

	if cfg.MemoryEmbeddingDim <= 0 {
		return Config{}, fmt.Errorf("MEMORY_EMBEDDING_DIM must be positive")
	}
	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_WINDOW must be positive")
	}
	if cfg.MemoryTopK < 1 {
		return Config{}, fmt.Errorf("APP_MEMORY_TOPK must be at least 1")
	}
	if cfg.AnalysisMaxTurns < 1 {
		return Config{}, fmt.Errorf("APP_ANALYSIS_MAX_TURNS must be at least 1")
	}
	if cfg.TurnTimeout < time.Second {
		return Config{}, fmt.Errorf("APP_TURN_TIMEOUT must be at least 1s")
	}
	if cfg.AnalysisTimeout < cfg.TurnTimeout {
		return Config{}, fmt.Errorf("APP_ANALYSIS_TIMEOUT must not be shorter than APP_TURN_TIMEOUT")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
