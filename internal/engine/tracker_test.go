package engine

import (
	"math"
	"testing"

	"github.com/adaptutor/adaptutor/internal/model"
)

var testTopics = []string{"mathematics", "science", "programming", "language"}

func newTestProfile(t *testing.T) *model.StudentProfile {
	t.Helper()
	prefs := model.Preferences{
		Topics:     []string{"mathematics"},
		Difficulty: model.DifficultyMedium,
		Style:      model.StyleReading,
	}
	return model.NewStudentProfile("student-1", "Alice", prefs, testTopics)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestUpdateProfileSmoothing(t *testing.T) {
	p := newTestProfile(t)

	UpdateProfile(p, "mathematics", model.DifficultyMedium, 1.0)

	if !almostEqual(p.OverallPerformance, 0.55) {
		t.Errorf("OverallPerformance = %v, want 0.55", p.OverallPerformance)
	}
	if !almostEqual(p.TopicPerformance["mathematics"], 0.6) {
		t.Errorf("TopicPerformance[mathematics] = %v, want 0.6", p.TopicPerformance["mathematics"])
	}
	if !almostEqual(p.DifficultyPerformance[model.DifficultyMedium], 0.6) {
		t.Errorf("DifficultyPerformance[medium] = %v, want 0.6", p.DifficultyPerformance[model.DifficultyMedium])
	}
	if !almostEqual(p.EngagementScore, 0.55) {
		t.Errorf("EngagementScore = %v, want 0.55", p.EngagementScore)
	}
}

func TestUpdateProfileNeutralFixedPoint(t *testing.T) {
	p := newTestProfile(t)

	for i := 0; i < 10; i++ {
		UpdateProfile(p, "science", model.DifficultyEasy, 0.5)
	}

	if !almostEqual(p.OverallPerformance, 0.5) {
		t.Errorf("OverallPerformance = %v, want 0.5", p.OverallPerformance)
	}
	if !almostEqual(p.TopicPerformance["science"], 0.5) {
		t.Errorf("TopicPerformance[science] = %v, want 0.5", p.TopicPerformance["science"])
	}
	if !almostEqual(p.EngagementScore, 0.5) {
		t.Errorf("EngagementScore = %v, want 0.5", p.EngagementScore)
	}
}

func TestUpdateProfileCounters(t *testing.T) {
	tests := []struct {
		name         string
		quality      float64
		wantCorrect  int
		wantDetailed int
	}{
		{"below both bars", 0.5, 0, 0},
		{"exactly at correct bar", 0.6, 0, 0},
		{"above correct only", 0.7, 1, 0},
		{"exactly at detail bar", 0.8, 1, 0},
		{"above both", 0.9, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProfile(t)
			UpdateProfile(p, "mathematics", model.DifficultyEasy, tt.quality)
			if p.TotalQuestionsAnswered != 1 {
				t.Fatalf("TotalQuestionsAnswered = %d, want 1", p.TotalQuestionsAnswered)
			}
			if p.CorrectResponses != tt.wantCorrect {
				t.Errorf("CorrectResponses = %d, want %d", p.CorrectResponses, tt.wantCorrect)
			}
			if p.DetailedResponses != tt.wantDetailed {
				t.Errorf("DetailedResponses = %d, want %d", p.DetailedResponses, tt.wantDetailed)
			}
		})
	}
}

func TestEngagementClamping(t *testing.T) {
	p := newTestProfile(t)

	for i := 0; i < 50; i++ {
		UpdateProfile(p, "mathematics", model.DifficultyEasy, 0)
	}
	if !almostEqual(p.EngagementScore, 0.1) {
		t.Errorf("EngagementScore floor = %v, want 0.1", p.EngagementScore)
	}

	for i := 0; i < 50; i++ {
		UpdateProfile(p, "mathematics", model.DifficultyEasy, 1)
	}
	if !almostEqual(p.EngagementScore, 1.0) {
		t.Errorf("EngagementScore ceiling = %v, want 1.0", p.EngagementScore)
	}
}

func TestLearningVelocityWarmup(t *testing.T) {
	p := newTestProfile(t)

	for i := 0; i < 5; i++ {
		UpdateProfile(p, "mathematics", model.DifficultyEasy, 1.0)
	}
	if p.LearningVelocity != 0 {
		t.Fatalf("LearningVelocity = %v before warmup, want 0", p.LearningVelocity)
	}

	UpdateProfile(p, "mathematics", model.DifficultyEasy, 1.0)
	if p.LearningVelocity <= 0 {
		t.Errorf("LearningVelocity = %v after warmup with perfect answers, want > 0", p.LearningVelocity)
	}

	// Velocity is the centered, doubled topic mean.
	want := (topicMean(p) - 0.5) * 2
	if !almostEqual(p.LearningVelocity, want) {
		t.Errorf("LearningVelocity = %v, want %v", p.LearningVelocity, want)
	}
}

func TestRecomputeAreas(t *testing.T) {
	p := newTestProfile(t)
	p.TopicPerformance["mathematics"] = 0.9
	p.TopicPerformance["science"] = 0.5
	p.TopicPerformance["programming"] = 0.5
	p.TopicPerformance["language"] = 0.1

	// Neutral update keeps the science score at 0.5, so the mean stays 0.5.
	UpdateProfile(p, "science", model.DifficultyEasy, 0.5)

	if len(p.StrengthAreas) != 1 || p.StrengthAreas[0] != "mathematics" {
		t.Errorf("StrengthAreas = %v, want [mathematics]", p.StrengthAreas)
	}
	if len(p.ImprovementAreas) != 1 || p.ImprovementAreas[0] != "language" {
		t.Errorf("ImprovementAreas = %v, want [language]", p.ImprovementAreas)
	}
}

func TestRecomputeAreasDiscardsOldMembership(t *testing.T) {
	p := newTestProfile(t)
	p.TopicPerformance["mathematics"] = 0.1
	p.TopicPerformance["science"] = 0.5
	p.TopicPerformance["programming"] = 0.5
	p.TopicPerformance["language"] = 0.5

	UpdateProfile(p, "science", model.DifficultyEasy, 0.5)
	if !p.InImprovementAreas("mathematics") {
		t.Fatalf("mathematics should start as an improvement area, got %v", p.ImprovementAreas)
	}

	// Strong answers should pull mathematics back out of the set.
	for i := 0; i < 20; i++ {
		UpdateProfile(p, "mathematics", model.DifficultyEasy, 1.0)
	}
	if p.InImprovementAreas("mathematics") {
		t.Errorf("mathematics still an improvement area after 20 perfect answers: %v", p.ImprovementAreas)
	}
}
