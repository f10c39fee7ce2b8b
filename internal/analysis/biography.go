package analysis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/yukesong/xiaoya/internal/ai"
	"github.com/yukesong/xiaoya/internal/prompt"
)

// CognitiveAssessment is the coarse four-field self-check that accompanies
// the biography text.
type CognitiveAssessment struct {
	OverallRisk     string   `json:"overall_risk"`
	MemoryScore     int      `json:"memory_score"`
	TimeOrientation int      `json:"time_orientation"`
	LanguageFluency int      `json:"language_fluency"`
	Concerns        []string `json:"concerns"`
}

// BiographyReport is the family-facing life summary. This path is tolerant:
// it always returns a report, substituting placeholders when the backend or
// the data is missing.
type BiographyReport struct {
	Biography           string              `json:"biography"`
	CognitiveAssessment CognitiveAssessment `json:"cognitive_assessment"`
	GeneratedAt         time.Time           `json:"generated_at"`
}

const biographyPlaceholder = "还没有足够的对话记录，暂时无法生成人生纪要。多聊几次再来看看吧。"

func placeholderReport() *BiographyReport {
	return &BiographyReport{
		Biography:           biographyPlaceholder,
		CognitiveAssessment: CognitiveAssessment{OverallRisk: "未知", Concerns: []string{}},
		GeneratedAt:         time.Now().UTC(),
	}
}

// GenerateBiography synthesizes the life summary from the full conversation
// log. It never fails hard: an unconfigured backend or empty log yields a
// placeholder, and a malformed model response becomes plain biography text.
func (a *Analyzer) GenerateBiography(ctx context.Context) (*BiographyReport, error) {
	if !a.completer.Configured() {
		return placeholderReport(), nil
	}

	turns, err := a.store.All(ctx, a.cfg.SessionID)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return placeholderReport(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	raw, err := a.completer.Complete(ctx, prompt.ComposeBiography(turns), ai.AnalystSampling())
	if err != nil {
		return nil, err
	}
	return parseBiography(raw), nil
}

// parseBiography reads the structured response leniently: a response that is
// not valid JSON is kept verbatim as the biography with a zeroed assessment.
func parseBiography(raw string) *BiographyReport {
	var parsed struct {
		Biography           string              `json:"biography"`
		CognitiveAssessment CognitiveAssessment `json:"cognitive_assessment"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil || parsed.Biography == "" {
		if err != nil {
			log.Printf("biography response not structured, keeping raw text: %v", err)
		}
		return &BiographyReport{
			Biography:           raw,
			CognitiveAssessment: CognitiveAssessment{OverallRisk: "未知", Concerns: []string{}},
			GeneratedAt:         time.Now().UTC(),
		}
	}
	if parsed.CognitiveAssessment.Concerns == nil {
		parsed.CognitiveAssessment.Concerns = []string{}
	}
	return &BiographyReport{
		Biography:           parsed.Biography,
		CognitiveAssessment: parsed.CognitiveAssessment,
		GeneratedAt:         time.Now().UTC(),
	}
}
