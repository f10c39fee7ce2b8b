package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yukesong/xiaoya/internal/ai"
	"github.com/yukesong/xiaoya/internal/history"
	"github.com/yukesong/xiaoya/internal/observability"
	"github.com/yukesong/xiaoya/internal/prompt"
)

// ErrNotConfigured means no real completion backend is available. The
// analysis pass never runs against a stub.
var ErrNotConfigured = errors.New("analysis requires a configured completion backend")

// ErrNoConversations means there is nothing to analyze yet.
var ErrNoConversations = errors.New("no conversations recorded")

// Config holds the analyzer knobs from service configuration.
type Config struct {
	SessionID string
	MaxTurns  int
	Timeout   time.Duration
}

// Analyzer runs the clinical-linguistic pass and the biography synthesis
// over the persisted conversation log.
type Analyzer struct {
	completer ai.Completer
	store     history.Store
	metrics   *observability.Metrics
	cfg       Config
}

func NewAnalyzer(completer ai.Completer, store history.Store, metrics *observability.Metrics, cfg Config) *Analyzer {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = prompt.DefaultAnalysisWindow
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Analyzer{completer: completer, store: store, metrics: metrics, cfg: cfg}
}

// Analyze scores the most recent conversation window. Unlike the realtime
// turn there are no soft fallbacks here: any failure is returned as-is.
func (a *Analyzer) Analyze(ctx context.Context) (*Insights, error) {
	if !a.completer.Configured() {
		a.metrics.AnalysisRuns.WithLabelValues("not_configured").Inc()
		return nil, ErrNotConfigured
	}

	turns, err := a.store.All(ctx, a.cfg.SessionID)
	if err != nil {
		a.metrics.AnalysisRuns.WithLabelValues("history_error").Inc()
		return nil, fmt.Errorf("load conversation log: %w", err)
	}
	if len(turns) == 0 {
		a.metrics.AnalysisRuns.WithLabelValues("no_data").Inc()
		return nil, ErrNoConversations
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	messages := prompt.ComposeAnalyst(turns, a.cfg.MaxTurns)
	assessment, err := a.completeAndExtract(ctx, messages)
	if err != nil {
		return nil, err
	}

	analyzed := len(turns)
	if analyzed > a.cfg.MaxTurns {
		analyzed = a.cfg.MaxTurns
	}
	a.metrics.AnalysisRuns.WithLabelValues("ok").Inc()
	return &Insights{
		Assessment: *assessment,
		Statistics: Statistics{
			TotalTurns:    len(turns),
			AnalyzedTurns: analyzed,
			FirstTurnAt:   turns[0].CreatedAt,
			LastTurnAt:    turns[len(turns)-1].CreatedAt,
		},
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// completeAndExtract asks the model for a structured assessment and, when the
// first response fails to parse, asks once more before giving up.
func (a *Analyzer) completeAndExtract(ctx context.Context, messages []ai.Message) (*Assessment, error) {
	var parseErr *ParseError
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := a.completer.Complete(ctx, messages, ai.AnalystSampling())
		if err != nil {
			a.metrics.AnalysisRuns.WithLabelValues("llm_error").Inc()
			return nil, fmt.Errorf("analysis completion: %w", err)
		}

		assessment, err := ExtractAssessment(raw)
		if err == nil {
			return assessment, nil
		}
		if !errors.As(err, &parseErr) {
			a.metrics.AnalysisRuns.WithLabelValues("parse_error").Inc()
			return nil, err
		}
		log.Printf("assessment parse failed (attempt %d): %v", attempt+1, err)
	}

	a.metrics.AnalysisRuns.WithLabelValues("parse_error").Inc()
	return nil, parseErr
}
