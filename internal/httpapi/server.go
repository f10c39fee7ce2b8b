// Package httpapi exposes the companion backend over HTTP: the voice turn
// endpoint, the conversation log, the dashboard analysis views, and the
// operational surface.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yukesong/xiaoya/internal/analysis"
	"github.com/yukesong/xiaoya/internal/config"
	"github.com/yukesong/xiaoya/internal/convo"
	"github.com/yukesong/xiaoya/internal/history"
	"github.com/yukesong/xiaoya/internal/observability"
	"github.com/yukesong/xiaoya/internal/prompt"
)

// maxAudioUploadBytes bounds a single voice-turn upload.
const maxAudioUploadBytes = 10 << 20

// TurnRunner runs one voice exchange.
type TurnRunner interface {
	HandleTurn(ctx context.Context, audio []byte) (convo.TurnResult, error)
}

// Analyzer runs the offline assessment and biography passes.
type Analyzer interface {
	Analyze(ctx context.Context) (*analysis.Insights, error)
	GenerateBiography(ctx context.Context) (*analysis.BiographyReport, error)
}

type Server struct {
	cfg      config.Config
	turns    TurnRunner
	analyzer Analyzer
	store    history.Store
	metrics  *observability.Metrics
}

func New(cfg config.Config, turns TurnRunner, analyzer Analyzer, store history.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		turns:    turns,
		analyzer: analyzer,
		store:    store,
		metrics:  metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/chat", s.handleChat)
	r.Get("/api/conversations", s.handleConversations)
	r.Get("/api/dashboard/insights", s.handleInsights)
	r.Get("/api/generate_biography", s.handleGenerateBiography)
	r.Get("/api/config", s.handleConfig)
	r.Get("/api/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"session": s.cfg.SessionID,
	})
}

// handleChat accepts one recorded utterance as multipart form data and
// answers with the spoken reply. Both transcripts ride in response headers,
// percent-encoded because header values cannot carry raw CJK text.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadBytes)
	file, _, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_audio", "multipart field \"audio\" is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable_audio", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.TurnTimeout)
	defer cancel()

	result, err := s.turns.HandleTurn(ctx, audio)
	if errors.Is(err, convo.ErrSpeechNotRecognized) {
		respondError(w, http.StatusBadRequest, "speech_not_recognized", prompt.CouldNotHearReply)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("X-User-Text", url.PathEscape(result.UserText))
	w.Header().Set("X-AI-Text", url.PathEscape(result.AIText))
	w.Header().Set("Access-Control-Expose-Headers", "X-User-Text, X-AI-Text")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Audio)
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	turns, err := s.store.Recent(r.Context(), s.cfg.SessionID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_unavailable", err.Error())
		return
	}
	if turns == nil {
		turns = []history.Turn{}
	}
	// The store hands back a chronological tail; the dashboard wants the
	// newest exchange on top.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id":    s.cfg.SessionID,
		"conversations": turns,
		"count":         len(turns),
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := s.analyzer.Analyze(r.Context())
	switch {
	case errors.Is(err, analysis.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "analysis_not_configured", "SILICONFLOW_API_KEY is not set")
		return
	case errors.Is(err, analysis.ErrNoConversations):
		respondError(w, http.StatusNotFound, "no_conversations", "nothing to analyze yet")
		return
	case err != nil:
		var parseErr *analysis.ParseError
		if errors.As(err, &parseErr) {
			respondError(w, http.StatusBadGateway, "bad_model_output", parseErr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "analysis_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, insights)
}

func (s *Server) handleGenerateBiography(w http.ResponseWriter, r *http.Request) {
	report, err := s.analyzer.GenerateBiography(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "biography_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// handleConfig reports the effective non-secret configuration. Keys show up
// only as a configured/unconfigured flag.
func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id":             s.cfg.SessionID,
		"stt_model":              s.cfg.SiliconFlowSTTModel,
		"chat_model":             s.cfg.SiliconFlowChatModel,
		"embed_model":            s.cfg.SiliconFlowEmbedModel,
		"tts_voice_id":           s.cfg.ElevenLabsVoiceID,
		"tts_model_id":           s.cfg.ElevenLabsModelID,
		"history_window":         s.cfg.HistoryWindow,
		"memory_top_k":           s.cfg.MemoryTopK,
		"analysis_max_turns":     s.cfg.AnalysisMaxTurns,
		"siliconflow_configured": s.cfg.SiliconFlowAPIKey != "",
		"elevenlabs_configured":  s.cfg.ElevenLabsAPIKey != "",
		"postgres_configured":    s.cfg.DatabaseURL != "",
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, observability.StageSnapshot{
			GeneratedAt: time.Now().UTC(),
			Stages:      []observability.StageStats{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.StageSnapshot())
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
