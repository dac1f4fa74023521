package model

import "time"

// ProgressExport is the top-level JSON structure for results export.
type ProgressExport struct {
	ExportedAt time.Time        `json:"exported_at"`
	BankHash   string           `json:"bank_hash,omitempty"`
	Students   []StudentResults `json:"students"`
}

// StudentResults holds one student's complete history for export.
type StudentResults struct {
	Profile      StudentProfile      `json:"profile"`
	Sessions     []SessionSummary    `json:"sessions"`
	Interactions []InteractionRecord `json:"interactions"`
}

// StudentEvaluation is the analytics snapshot shown to teachers: derived
// rates over the raw profile counters plus the current focus areas.
type StudentEvaluation struct {
	StudentID          string   `json:"student_id"`
	Name               string   `json:"name"`
	OverallPerformance float64  `json:"overall_performance"`
	AccuracyRate       float64  `json:"accuracy_rate"`
	DetailedRate       float64  `json:"detailed_rate"`
	QuestionsAnswered  int      `json:"questions_answered"`
	SessionCount       int      `json:"session_count"`
	LearningVelocity   float64  `json:"learning_velocity"`
	EngagementScore    float64  `json:"engagement_score"`
	StrengthAreas      []string `json:"strength_areas"`
	ImprovementAreas   []string `json:"improvement_areas"`
	StudySeconds       int64    `json:"study_seconds"`
}

// Evaluate derives the analytics snapshot from a profile.
func Evaluate(p *StudentProfile) StudentEvaluation {
	return StudentEvaluation{
		StudentID:          p.ID,
		Name:               p.Name,
		OverallPerformance: p.OverallPerformance,
		AccuracyRate:       p.AccuracyRate(),
		DetailedRate:       p.DetailedRate(),
		QuestionsAnswered:  p.TotalQuestionsAnswered,
		SessionCount:       p.SessionCount,
		LearningVelocity:   p.LearningVelocity,
		EngagementScore:    p.EngagementScore,
		StrengthAreas:      p.StrengthAreas,
		ImprovementAreas:   p.ImprovementAreas,
		StudySeconds:       int64(p.TotalStudyTime / time.Second),
	}
}
