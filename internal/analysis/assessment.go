// Package analysis runs the offline clinical-linguistic pass over the
// conversation log and synthesizes the biography report. Unlike the realtime
// turn it has a hard failure contract: a score that cannot be trusted is an
// error, never a guess.
package analysis

import (
	"fmt"
	"time"
)

// BiomarkerNames is the fixed set of linguistic attributes every assessment
// must score. Order matches the evaluator prompt.
var BiomarkerNames = []string{
	"Anomia_WordFinding_Difficulty",
	"Circumlocution",
	"Semantic_Error",
	"Empty_Speech_Poverty_of_Content",
	"Repetition_Perseveration",
	"Speech_Fragmentation_Trailing_Off",
	"Syntactic_Simplification",
	"Pronoun_Misuse",
	"Hesitation_Pause_Frequency_Duration",
	"Global_Coherence_Loss",
}

// BiomarkerScore is one scored attribute with its supporting evidence.
type BiomarkerScore struct {
	Score     int    `json:"score"`
	Rationale string `json:"rationale"`
	RawQuote  string `json:"raw_quote"`
}

type OverallAssessment struct {
	CognitiveRiskLevel string   `json:"cognitive_risk_level"`
	Summary            string   `json:"summary"`
	Recommendations    []string `json:"recommendations"`
}

type EmotionAnalysis struct {
	OverallMood    string   `json:"overall_mood"`
	EmotionalNeeds []string `json:"emotional_needs"`
	Concerns       []string `json:"concerns"`
	StressLevel    string   `json:"stress_level"`
}

type PersonalInfo struct {
	Hobbies           []string `json:"hobbies"`
	DailyRoutine      string   `json:"daily_routine"`
	Relationships     []string `json:"relationships"`
	ImportantMemories []string `json:"important_memories"`
}

// Assessment is the full structured output of one analysis run.
type Assessment struct {
	ClinicalBiomarkers map[string]BiomarkerScore `json:"clinical_biomarkers"`
	OverallAssessment  OverallAssessment         `json:"overall_assessment"`
	EmotionAnalysis    EmotionAnalysis           `json:"emotion_analysis"`
	PersonalInfo       PersonalInfo              `json:"personal_info"`
}

// Validate checks the structural contract: the biomarker container exists,
// every attribute is present, and every score is within 1..7.
func (a *Assessment) Validate() error {
	if a.ClinicalBiomarkers == nil {
		return fmt.Errorf("assessment missing clinical_biomarkers")
	}
	for _, name := range BiomarkerNames {
		score, ok := a.ClinicalBiomarkers[name]
		if !ok {
			return fmt.Errorf("assessment missing biomarker %q", name)
		}
		if score.Score < 1 || score.Score > 7 {
			return fmt.Errorf("biomarker %q score %d out of range 1..7", name, score.Score)
		}
	}
	return nil
}

// Statistics summarizes the transcript window an assessment was drawn from.
type Statistics struct {
	TotalTurns    int       `json:"total_turns"`
	AnalyzedTurns int       `json:"analyzed_turns"`
	FirstTurnAt   time.Time `json:"first_turn_at,omitempty"`
	LastTurnAt    time.Time `json:"last_turn_at,omitempty"`
}

// Insights bundles an assessment with its run metadata for the dashboard.
type Insights struct {
	Assessment  Assessment `json:"assessment"`
	Statistics  Statistics `json:"statistics"`
	GeneratedAt time.Time  `json:"generated_at"`
}
