// Package convo runs the realtime voice turn: speech in, spoken reply out.
// Every stage after transcription degrades instead of failing, so the user
// always hears something.
package convo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yukesong/xiaoya/internal/ai"
	"github.com/yukesong/xiaoya/internal/history"
	"github.com/yukesong/xiaoya/internal/memoryindex"
	"github.com/yukesong/xiaoya/internal/observability"
	"github.com/yukesong/xiaoya/internal/prompt"
)

// ErrSpeechNotRecognized ends a turn early when nothing usable was heard.
// It is a client-side condition, not a server fault.
var ErrSpeechNotRecognized = errors.New("speech not recognized")

// persistTimeout bounds the background write that finalizes a turn.
const persistTimeout = 10 * time.Second

// TurnResult is the synchronous outcome of one voice exchange. Audio may be
// empty when synthesis was unavailable; UserText and AIText are always set.
type TurnResult struct {
	UserText string
	AIText   string
	Audio    []byte
}

// Config holds the orchestrator knobs that come from service configuration.
type Config struct {
	SessionID     string
	HistoryWindow int
	MemoryTopK    int
}

// Orchestrator wires the capability adapters into the turn pipeline.
type Orchestrator struct {
	transcriber ai.Transcriber
	completer   ai.Completer
	synthesizer ai.Synthesizer
	store       history.Store
	index       memoryindex.Index
	metrics     *observability.Metrics
	cfg         Config

	wg sync.WaitGroup
}

func New(
	transcriber ai.Transcriber,
	completer ai.Completer,
	synthesizer ai.Synthesizer,
	store history.Store,
	index memoryindex.Index,
	metrics *observability.Metrics,
	cfg Config,
) *Orchestrator {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = prompt.DefaultHistoryWindow
	}
	if cfg.MemoryTopK <= 0 {
		cfg.MemoryTopK = 3
	}
	return &Orchestrator{
		transcriber: transcriber,
		completer:   completer,
		synthesizer: synthesizer,
		store:       store,
		index:       index,
		metrics:     metrics,
		cfg:         cfg,
	}
}

// HandleTurn runs one full voice exchange. It returns ErrSpeechNotRecognized
// when transcription produced nothing usable; any other path yields a reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, audio []byte) (TurnResult, error) {
	turnStart := time.Now()

	stageStart := time.Now()
	userText, err := o.transcriber.Transcribe(ctx, audio)
	o.metrics.ObserveStage(observability.StageTranscribe, time.Since(stageStart))
	if err != nil {
		o.metrics.AdapterErrors.WithLabelValues("stt", "transcribe").Inc()
		log.Printf("transcribe failed: %v", err)
		userText = ai.RecognitionFailedText
	}
	if ai.IsRecognitionFailure(userText) {
		o.metrics.Turns.WithLabelValues("not_recognized").Inc()
		return TurnResult{}, ErrSpeechNotRecognized
	}

	stageStart = time.Now()
	memories, err := o.index.Query(ctx, userText, o.cfg.MemoryTopK)
	o.metrics.ObserveStage(observability.StageRetrieve, time.Since(stageStart))
	if err != nil {
		o.metrics.AdapterErrors.WithLabelValues("memory", "query").Inc()
		o.metrics.MemoryQueries.WithLabelValues("error").Inc()
		log.Printf("memory query failed, continuing without memories: %v", err)
		memories = nil
	} else if len(memories) == 0 {
		o.metrics.MemoryQueries.WithLabelValues("empty").Inc()
	} else {
		o.metrics.MemoryQueries.WithLabelValues("hit").Inc()
	}

	turns, err := o.store.Recent(ctx, o.cfg.SessionID, o.cfg.HistoryWindow)
	if err != nil {
		log.Printf("history read failed, composing without history: %v", err)
		turns = nil
	}
	messages := prompt.ComposeCompanion(userText, turns, memories, o.cfg.HistoryWindow)

	stageStart = time.Now()
	aiText, err := o.completer.Complete(ctx, messages, ai.CompanionSampling())
	o.metrics.ObserveStage(observability.StageComplete, time.Since(stageStart))
	if err != nil {
		o.metrics.AdapterErrors.WithLabelValues("llm", "complete").Inc()
		log.Printf("completion failed, using fallback reply: %v", err)
		aiText = prompt.FallbackReply
	}

	stageStart = time.Now()
	speech, err := o.synthesizer.Synthesize(ctx, aiText)
	o.metrics.ObserveStage(observability.StageSynthesize, time.Since(stageStart))
	if err != nil {
		o.metrics.AdapterErrors.WithLabelValues("tts", "synthesize").Inc()
		log.Printf("synthesis failed, returning text-only turn: %v", err)
		speech = nil
	}

	o.persistAsync(userText, aiText)

	o.metrics.Turns.WithLabelValues("ok").Inc()
	o.metrics.ObserveTurnLatency(time.Since(turnStart))
	return TurnResult{UserText: userText, AIText: aiText, Audio: speech}, nil
}

// persistAsync finalizes the turn off the reply path: the user already has
// their answer, so a failed write here is logged and counted, never surfaced.
func (o *Orchestrator) persistAsync(userText, aiText string) {
	id := uuid.NewString()
	turn := history.Turn{
		ID:        id,
		SessionID: o.cfg.SessionID,
		UserText:  userText,
		AIText:    aiText,
		CreatedAt: time.Now().UTC(),
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := o.store.Append(ctx, turn); err != nil {
			o.metrics.PersistenceDrops.WithLabelValues("history").Inc()
			log.Printf("turn persist dropped: %v", err)
		}

		rec := memoryindex.Record{
			ID:   "conv_" + id[:8],
			Text: fmt.Sprintf("用户: %s\nAI: %s", userText, aiText),
			Kind: memoryindex.KindConversation,
			Metadata: map[string]string{
				"session_id": o.cfg.SessionID,
				"timestamp":  turn.CreatedAt.Format(time.RFC3339),
			},
		}
		if err := o.index.Upsert(ctx, rec); err != nil {
			o.metrics.PersistenceDrops.WithLabelValues("memory").Inc()
			log.Printf("memory upsert dropped: %v", err)
		}
	}()
}

// Wait blocks until all background persistence writes have finished. Called
// during graceful shutdown so finalized turns are not lost.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
