package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/yukesong/xiaoya/internal/ai"
	"github.com/yukesong/xiaoya/internal/analysis"
	"github.com/yukesong/xiaoya/internal/config"
	"github.com/yukesong/xiaoya/internal/convo"
	"github.com/yukesong/xiaoya/internal/history"
	"github.com/yukesong/xiaoya/internal/httpapi"
	"github.com/yukesong/xiaoya/internal/memoryindex"
	"github.com/yukesong/xiaoya/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := history.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("history store init failed: %v", err)
	}
	defer store.Close()
	if cfg.DatabaseURL == "" {
		log.Printf("history store: in-memory (DATABASE_URL not set)")
	} else {
		log.Printf("history store: postgres")
	}

	var embedder memoryindex.Embedder
	if cfg.SiliconFlowAPIKey != "" {
		embedder, err = memoryindex.NewSiliconFlowEmbedder(memoryindex.EmbedderConfig{
			APIKey:  cfg.SiliconFlowAPIKey,
			BaseURL: cfg.SiliconFlowBaseURL,
			Model:   cfg.SiliconFlowEmbedModel,
			Dim:     cfg.MemoryEmbeddingDim,
		})
		if err != nil {
			log.Fatalf("embedder init failed: %v", err)
		}
	} else {
		embedder = memoryindex.NewHashEmbedder(cfg.MemoryEmbeddingDim)
		log.Printf("embeddings: hash stand-in (SILICONFLOW_API_KEY not set)")
	}

	index, err := memoryindex.NewIndex(ctx, cfg.DatabaseURL, embedder)
	if err != nil {
		log.Fatalf("memory index init failed: %v", err)
	}
	defer index.Close()

	var (
		transcriber ai.Transcriber
		completer   ai.Completer
	)
	if cfg.SiliconFlowAPIKey != "" {
		transcriber, err = ai.NewSiliconFlowTranscriber(ai.TranscriberConfig{
			APIKey:  cfg.SiliconFlowAPIKey,
			BaseURL: cfg.SiliconFlowBaseURL,
			Model:   cfg.SiliconFlowSTTModel,
		})
		if err != nil {
			log.Fatalf("transcriber init failed: %v", err)
		}
		completer, err = ai.NewSiliconFlowCompleter(ai.CompleterConfig{
			APIKey:  cfg.SiliconFlowAPIKey,
			BaseURL: cfg.SiliconFlowBaseURL,
			Model:   cfg.SiliconFlowChatModel,
		})
		if err != nil {
			log.Fatalf("completer init failed: %v", err)
		}
		log.Printf("siliconflow: stt=%s chat=%s", cfg.SiliconFlowSTTModel, cfg.SiliconFlowChatModel)
	} else {
		transcriber = ai.NewStubTranscriber()
		completer = ai.NewStubCompleter()
		log.Printf("siliconflow: stub mode (SILICONFLOW_API_KEY not set), analysis disabled")
	}

	var synthesizer ai.Synthesizer
	if cfg.ElevenLabsAPIKey != "" {
		synthesizer, err = ai.NewElevenLabsSynthesizer(ai.ElevenLabsConfig{
			APIKey:    cfg.ElevenLabsAPIKey,
			WSBaseURL: cfg.ElevenLabsWSBaseURL,
			VoiceID:   cfg.ElevenLabsVoiceID,
			ModelID:   cfg.ElevenLabsModelID,
		})
		if err != nil {
			log.Fatalf("synthesizer init failed: %v", err)
		}
		log.Printf("elevenlabs: voice=%s model=%s", cfg.ElevenLabsVoiceID, cfg.ElevenLabsModelID)
	} else {
		synthesizer = ai.NewStubSynthesizer()
		log.Printf("elevenlabs: stub mode (ELEVENLABS_API_KEY not set), turns answer text-only")
	}

	orchestrator := convo.New(transcriber, completer, synthesizer, store, index, metrics, convo.Config{
		SessionID:     cfg.SessionID,
		HistoryWindow: cfg.HistoryWindow,
		MemoryTopK:    cfg.MemoryTopK,
	})
	analyzer := analysis.NewAnalyzer(completer, store, metrics, analysis.Config{
		SessionID: cfg.SessionID,
		MaxTurns:  cfg.AnalysisMaxTurns,
		Timeout:   cfg.AnalysisTimeout,
	})

	api := httpapi.New(cfg, orchestrator, analyzer, store, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	// Let in-flight turn persistence finish before the stores close.
	orchestrator.Wait()
	log.Printf("shutdown complete")
}
