package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/yukesong/xiaoya/internal/analysis"
	"github.com/yukesong/xiaoya/internal/config"
	"github.com/yukesong/xiaoya/internal/convo"
	"github.com/yukesong/xiaoya/internal/history"
	"github.com/yukesong/xiaoya/internal/observability"
)

type fakeTurnRunner struct {
	result convo.TurnResult
	err    error
}

func (f *fakeTurnRunner) HandleTurn(_ context.Context, _ []byte) (convo.TurnResult, error) {
	return f.result, f.err
}

type fakeAnalyzer struct {
	insights    *analysis.Insights
	analyzeErr  error
	report      *analysis.BiographyReport
	biographErr error
}

func (f *fakeAnalyzer) Analyze(_ context.Context) (*analysis.Insights, error) {
	return f.insights, f.analyzeErr
}

func (f *fakeAnalyzer) GenerateBiography(_ context.Context) (*analysis.BiographyReport, error) {
	return f.report, f.biographErr
}

func testConfig() config.Config {
	return config.Config{
		SessionID:            "demo_elder",
		SiliconFlowSTTModel:  "TeleAI/TeleSpeechASR",
		SiliconFlowChatModel: "Qwen/Qwen2.5-7B-Instruct",
		TurnTimeout:          5 * time.Second,
		HistoryWindow:        5,
		MemoryTopK:           3,
		AnalysisMaxTurns:     30,
	}
}

func newTestServer(t *testing.T, turns TurnRunner, analyzer Analyzer, store history.Store) *Server {
	t.Helper()
	if store == nil {
		store = history.NewInMemoryStore()
	}
	ns := "httpapi_test_" + strings.NewReplacer("/", "_", "#", "_").Replace(strings.ToLower(t.Name()))
	return New(testConfig(), turns, analyzer, store, observability.NewMetrics(ns))
}

func audioRequest(t *testing.T, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "utterance.wav")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(body); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/chat", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestChatReturnsAudioWithTranscriptHeaders(t *testing.T) {
	runner := &fakeTurnRunner{result: convo.TurnResult{
		UserText: "我今天做了红烧肉",
		AIText:   "真香呀！您是怎么做的？",
		Audio:    []byte("mp3-bytes"),
	}}
	srv := newTestServer(t, runner, &fakeAnalyzer{}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, audioRequest(t, []byte("pcm")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Fatalf("Content-Type = %q, want audio/mpeg", got)
	}
	if rec.Body.String() != "mp3-bytes" {
		t.Fatalf("body = %q, want audio bytes", rec.Body.String())
	}

	userText, err := url.PathUnescape(rec.Header().Get("X-User-Text"))
	if err != nil || userText != "我今天做了红烧肉" {
		t.Fatalf("X-User-Text = %q (err %v)", userText, err)
	}
	aiText, err := url.PathUnescape(rec.Header().Get("X-AI-Text"))
	if err != nil || aiText != "真香呀！您是怎么做的？" {
		t.Fatalf("X-AI-Text = %q (err %v)", aiText, err)
	}
}

func TestChatSpeechNotRecognizedIs400(t *testing.T) {
	runner := &fakeTurnRunner{err: convo.ErrSpeechNotRecognized}
	srv := newTestServer(t, runner, &fakeAnalyzer{}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, audioRequest(t, []byte("noise")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if resp.Code != "speech_not_recognized" {
		t.Fatalf("code = %q, want speech_not_recognized", resp.Code)
	}
}

func TestChatMissingAudioFieldIs400(t *testing.T) {
	srv := newTestServer(t, &fakeTurnRunner{}, &fakeAnalyzer{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestConversationsReturnsRecentTurns(t *testing.T) {
	store := history.NewInMemoryStore()
	for i, text := range []string{"早上好", "中午吃了面", "下午散步了"} {
		err := store.Append(context.Background(), history.Turn{
			ID:        "t" + string(rune('0'+i)),
			SessionID: "demo_elder",
			UserText:  text,
			AIText:    "好呀",
			CreatedAt: time.Date(2026, 3, 1, 9+i, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	srv := newTestServer(t, &fakeTurnRunner{}, &fakeAnalyzer{}, store)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations?limit=2", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		SessionID     string         `json:"session_id"`
		Conversations []history.Turn `json:"conversations"`
		Count         int            `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 || len(resp.Conversations) != 2 {
		t.Fatalf("count = %d, want the 2 most recent turns", resp.Count)
	}
	if resp.Conversations[0].UserText != "下午散步了" || resp.Conversations[1].UserText != "中午吃了面" {
		t.Fatalf("conversations = %+v, want newest first", resp.Conversations)
	}
}

func TestConversationsInvalidLimitIs400(t *testing.T) {
	srv := newTestServer(t, &fakeTurnRunner{}, &fakeAnalyzer{}, nil)

	for _, limit := range []string{"0", "-3", "abc"} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations?limit="+limit, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("limit=%q status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestInsightsErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not configured", analysis.ErrNotConfigured, http.StatusServiceUnavailable, "analysis_not_configured"},
		{"no conversations", analysis.ErrNoConversations, http.StatusNotFound, "no_conversations"},
		{"bad model output", &analysis.ParseError{Reason: "unexpected token"}, http.StatusBadGateway, "bad_model_output"},
		{"other failure", errors.New("pg down"), http.StatusInternalServerError, "analysis_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeTurnRunner{}, &fakeAnalyzer{analyzeErr: tc.err}, nil)
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/insights", nil))

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", resp.Code, tc.wantCode)
			}
		})
	}
}

func TestInsightsHappyPath(t *testing.T) {
	insights := &analysis.Insights{
		Assessment: analysis.Assessment{
			ClinicalBiomarkers: map[string]analysis.BiomarkerScore{
				"Circumlocution": {Score: 2, Rationale: "偶有迂回"},
			},
			OverallAssessment: analysis.OverallAssessment{CognitiveRiskLevel: "低风险"},
		},
		Statistics:  analysis.Statistics{TotalTurns: 12, AnalyzedTurns: 12},
		GeneratedAt: time.Now().UTC(),
	}
	srv := newTestServer(t, &fakeTurnRunner{}, &fakeAnalyzer{insights: insights}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/insights", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp analysis.Insights
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Statistics.TotalTurns != 12 || resp.Assessment.OverallAssessment.CognitiveRiskLevel != "低风险" {
		t.Fatalf("insights = %+v", resp)
	}
}

func TestGenerateBiography(t *testing.T) {
	report := &analysis.BiographyReport{
		Biography:           "# 人生纪要\n热爱做饭。",
		CognitiveAssessment: analysis.CognitiveAssessment{OverallRisk: "低风险", MemoryScore: 8},
		GeneratedAt:         time.Now().UTC(),
	}
	srv := newTestServer(t, &fakeTurnRunner{}, &fakeAnalyzer{report: report}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generate_biography", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp analysis.BiographyReport
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.CognitiveAssessment.MemoryScore != 8 {
		t.Fatalf("report = %+v", resp)
	}
}

func TestConfigNeverLeaksSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.SiliconFlowAPIKey = "sk-secret-123"
	cfg.ElevenLabsAPIKey = "el-secret-456"
	ns := "httpapi_test_confignoleaks"
	srv := New(cfg, &fakeTurnRunner{}, &fakeAnalyzer{}, history.NewInMemoryStore(), observability.NewMetrics(ns))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "sk-secret-123") || strings.Contains(body, "el-secret-456") {
		t.Fatalf("config response leaked a secret: %s", body)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["siliconflow_configured"] != true || resp["elevenlabs_configured"] != true {
		t.Fatalf("configured flags = %+v", resp)
	}
}

func TestHealthAndPerfEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeTurnRunner{}, &fakeAnalyzer{}, nil)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/perf/latency", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/perf/latency status = %d, want 200", rec.Code)
	}
	var snap observability.StageSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
}
