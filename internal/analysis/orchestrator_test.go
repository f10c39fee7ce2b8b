package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yukesong/xiaoya/internal/ai"
	"github.com/yukesong/xiaoya/internal/history"
	"github.com/yukesong/xiaoya/internal/observability"
)

type scriptedCompleter struct {
	configured bool
	responses  []string
	err        error
	calls      int
}

func (c *scriptedCompleter) Configured() bool { return c.configured }

func (c *scriptedCompleter) Complete(_ context.Context, _ []ai.Message, _ ai.SamplingParams) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	resp := c.responses[0]
	if len(c.responses) > 1 {
		c.responses = c.responses[1:]
	}
	return resp, nil
}

func seededStore(t *testing.T, n int) history.Store {
	t.Helper()
	store := history.NewInMemoryStore()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		err := store.Append(context.Background(), history.Turn{
			ID:        fmt.Sprintf("t%d", i),
			SessionID: "demo_elder",
			UserText:  "你好",
			AIText:    "您好呀",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	return store
}

func newTestAnalyzer(t *testing.T, completer ai.Completer, store history.Store) *Analyzer {
	t.Helper()
	ns := "analysis_test_" + strings.NewReplacer("/", "_", "#", "_").Replace(strings.ToLower(t.Name()))
	return NewAnalyzer(completer, store, observability.NewMetrics(ns), Config{
		SessionID: "demo_elder",
		MaxTurns:  30,
		Timeout:   time.Minute,
	})
}

func TestAnalyzeRefusesUnconfiguredBackend(t *testing.T) {
	completer := &scriptedCompleter{configured: false}
	a := newTestAnalyzer(t, completer, seededStore(t, 3))

	_, err := a.Analyze(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Analyze() error = %v, want ErrNotConfigured", err)
	}
	if completer.calls != 0 {
		t.Fatalf("completer must not be called when unconfigured")
	}
}

func TestAnalyzeEmptyLogFailsBeforeCompletion(t *testing.T) {
	completer := &scriptedCompleter{configured: true, responses: []string{validAssessmentJSON()}}
	a := newTestAnalyzer(t, completer, history.NewInMemoryStore())

	_, err := a.Analyze(context.Background())
	if !errors.Is(err, ErrNoConversations) {
		t.Fatalf("Analyze() error = %v, want ErrNoConversations", err)
	}
	if completer.calls != 0 {
		t.Fatalf("completer must not be called for an empty log")
	}
}

func TestAnalyzeHappyPathWithStatistics(t *testing.T) {
	completer := &scriptedCompleter{configured: true, responses: []string{validAssessmentJSON()}}
	a := newTestAnalyzer(t, completer, seededStore(t, 40))

	insights, err := a.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if insights.Statistics.TotalTurns != 40 || insights.Statistics.AnalyzedTurns != 30 {
		t.Fatalf("statistics = %+v, want 40 total / 30 analyzed", insights.Statistics)
	}
	if insights.Assessment.OverallAssessment.CognitiveRiskLevel != "低风险" {
		t.Fatalf("risk level = %q", insights.Assessment.OverallAssessment.CognitiveRiskLevel)
	}
	if completer.calls != 1 {
		t.Fatalf("completer calls = %d, want 1", completer.calls)
	}
}

func TestAnalyzeRetriesOnceAfterParseFailure(t *testing.T) {
	completer := &scriptedCompleter{
		configured: true,
		responses:  []string{"抱歉，分析失败了。", validAssessmentJSON()},
	}
	a := newTestAnalyzer(t, completer, seededStore(t, 5))

	insights, err := a.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze() error = %v, want success on retry", err)
	}
	if completer.calls != 2 {
		t.Fatalf("completer calls = %d, want 2", completer.calls)
	}
	if err := insights.Assessment.Validate(); err != nil {
		t.Fatalf("retried assessment invalid: %v", err)
	}
}

func TestAnalyzeGivesUpAfterSecondParseFailure(t *testing.T) {
	completer := &scriptedCompleter{
		configured: true,
		responses:  []string{"not json"},
	}
	a := newTestAnalyzer(t, completer, seededStore(t, 5))

	_, err := a.Analyze(context.Background())
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Analyze() error = %v, want *ParseError", err)
	}
	if completer.calls != 2 {
		t.Fatalf("completer calls = %d, want exactly 2", completer.calls)
	}
}

func TestAnalyzeCompletionErrorIsHard(t *testing.T) {
	completer := &scriptedCompleter{configured: true, err: errors.New("status 500")}
	a := newTestAnalyzer(t, completer, seededStore(t, 5))

	_, err := a.Analyze(context.Background())
	if err == nil || !strings.Contains(err.Error(), "analysis completion") {
		t.Fatalf("Analyze() error = %v, want wrapped completion error", err)
	}
	if completer.calls != 1 {
		t.Fatalf("completion errors must not be retried, calls = %d", completer.calls)
	}
}

func TestGenerateBiographyPlaceholderWhenUnconfigured(t *testing.T) {
	a := newTestAnalyzer(t, &scriptedCompleter{configured: false}, seededStore(t, 3))

	report, err := a.GenerateBiography(context.Background())
	if err != nil {
		t.Fatalf("GenerateBiography() error = %v", err)
	}
	if report.Biography != biographyPlaceholder {
		t.Fatalf("biography = %q, want placeholder", report.Biography)
	}
	if report.CognitiveAssessment.OverallRisk != "未知" {
		t.Fatalf("overall risk = %q, want 未知", report.CognitiveAssessment.OverallRisk)
	}
}

func TestGenerateBiographyPlaceholderWhenEmptyLog(t *testing.T) {
	completer := &scriptedCompleter{configured: true, responses: []string{"unused"}}
	a := newTestAnalyzer(t, completer, history.NewInMemoryStore())

	report, err := a.GenerateBiography(context.Background())
	if err != nil {
		t.Fatalf("GenerateBiography() error = %v", err)
	}
	if report.Biography != biographyPlaceholder || completer.calls != 0 {
		t.Fatalf("empty log must yield the placeholder without a completion call")
	}
}

func TestGenerateBiographyStructuredResponse(t *testing.T) {
	raw := "```json\n" + `{"biography": "# 人生纪要\n热爱做饭。", "cognitive_assessment": {"overall_risk": "低风险", "memory_score": 8, "time_orientation": 9, "language_fluency": 8, "concerns": ["偶尔找词困难"]}}` + "\n```"
	completer := &scriptedCompleter{configured: true, responses: []string{raw}}
	a := newTestAnalyzer(t, completer, seededStore(t, 3))

	report, err := a.GenerateBiography(context.Background())
	if err != nil {
		t.Fatalf("GenerateBiography() error = %v", err)
	}
	if !strings.Contains(report.Biography, "人生纪要") {
		t.Fatalf("biography = %q", report.Biography)
	}
	if report.CognitiveAssessment.MemoryScore != 8 || report.CognitiveAssessment.OverallRisk != "低风险" {
		t.Fatalf("cognitive assessment = %+v", report.CognitiveAssessment)
	}
}

func TestGenerateBiographyKeepsUnstructuredTextVerbatim(t *testing.T) {
	raw := "这位老人一生热爱做饭，尤其擅长红烧肉。"
	completer := &scriptedCompleter{configured: true, responses: []string{raw}}
	a := newTestAnalyzer(t, completer, seededStore(t, 3))

	report, err := a.GenerateBiography(context.Background())
	if err != nil {
		t.Fatalf("GenerateBiography() error = %v", err)
	}
	if report.Biography != raw {
		t.Fatalf("biography = %q, want the raw text kept verbatim", report.Biography)
	}
	if report.CognitiveAssessment.OverallRisk != "未知" {
		t.Fatalf("unstructured response must zero the assessment, got %+v", report.CognitiveAssessment)
	}
}
