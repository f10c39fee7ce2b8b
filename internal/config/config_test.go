package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8000" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8000")
	}
	if cfg.SessionID != "demo_elder" {
		t.Fatalf("SessionID = %q, want %q", cfg.SessionID, "demo_elder")
	}
	if cfg.SiliconFlowChatModel != "Qwen/Qwen2.5-7B-Instruct" {
		t.Fatalf("SiliconFlowChatModel = %q, want default Qwen model", cfg.SiliconFlowChatModel)
	}
	if cfg.HistoryWindow != 5 {
		t.Fatalf("HistoryWindow = %d, want 5", cfg.HistoryWindow)
	}
	if cfg.MemoryTopK != 3 {
		t.Fatalf("MemoryTopK = %d, want 3", cfg.MemoryTopK)
	}
	if cfg.AnalysisMaxTurns != 30 {
		t.Fatalf("AnalysisMaxTurns = %d, want 30", cfg.AnalysisMaxTurns)
	}
	if cfg.MemoryEmbeddingDim != 1024 {
		t.Fatalf("MemoryEmbeddingDim = %d, want 1024", cfg.MemoryEmbeddingDim)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric embedding dim", "MEMORY_EMBEDDING_DIM", "big"},
		{"zero history window", "APP_HISTORY_WINDOW", "0"},
		{"zero memory topk", "APP_MEMORY_TOPK", "0"},
		{"negative analysis turns", "APP_ANALYSIS_MAX_TURNS", "-1"},
		{"turn timeout too short", "APP_TURN_TIMEOUT", "10ms"},
		{"malformed analysis timeout", "APP_ANALYSIS_TIMEOUT", "soon"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestLoadAnalysisTimeoutMustCoverTurnTimeout(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_TURN_TIMEOUT", "90s")
	t.Setenv("APP_ANALYSIS_TIMEOUT", "60s")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error when analysis timeout is shorter than turn timeout")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_SESSION_ID",
		"APP_TURN_TIMEOUT",
		"APP_ANALYSIS_TIMEOUT",
		"APP_HISTORY_WINDOW",
		"APP_MEMORY_TOPK",
		"APP_ANALYSIS_MAX_TURNS",
		"SILICONFLOW_API_KEY",
		"SILICONFLOW_BASE_URL",
		"SILICONFLOW_STT_MODEL",
		"SILICONFLOW_CHAT_MODEL",
		"SILICONFLOW_EMBED_MODEL",
		"ELEVENLABS_API_KEY",
		"ELEVENLABS_WS_BASE_URL",
		"ELEVENLABS_VOICE_ID",
		"ELEVENLABS_TTS_MODEL_ID",
		"DATABASE_URL",
		"MEMORY_EMBEDDING_DIM",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
