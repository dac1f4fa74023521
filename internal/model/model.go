package model

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// UserRole represents a user's access level on the analytics endpoints.
type UserRole string

const (
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user (teachers and admins reviewing results).
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists all difficulty levels in ascending order.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// ParseDifficulty validates a difficulty name.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// CoordinationMode governs how the topic and difficulty policies combine
// their choices during a session. Fixed for the session's lifetime.
type CoordinationMode string

const (
	ModeHierarchical  CoordinationMode = "hierarchical"
	ModeCollaborative CoordinationMode = "collaborative"
	ModeCompetitive   CoordinationMode = "competitive"
)

// ParseCoordinationMode validates a coordination mode name.
func ParseCoordinationMode(s string) (CoordinationMode, error) {
	m := CoordinationMode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeHierarchical, ModeCollaborative, ModeCompetitive:
		return m, nil
	}
	return "", fmt.Errorf("unknown coordination mode %q", s)
}

// LearningStyle tags how a student prefers material presented.
type LearningStyle string

const (
	StyleVisual      LearningStyle = "visual"
	StyleAuditory    LearningStyle = "auditory"
	StyleKinesthetic LearningStyle = "kinesthetic"
	StyleReading     LearningStyle = "reading"
)

// ParseLearningStyle validates a learning style name, defaulting to reading.
func ParseLearningStyle(s string) LearningStyle {
	st := LearningStyle(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StyleVisual, StyleAuditory, StyleKinesthetic, StyleReading:
		return st
	}
	return StyleReading
}

// Question is an immutable catalog entry: one open-ended prompt with a
// sample answer shown to the student after they respond.
type Question struct {
	Topic        string     `json:"topic"`
	Difficulty   Difficulty `json:"difficulty"`
	Text         string     `json:"text"`
	SampleAnswer string     `json:"sample_answer"`
}

// Preferences holds the student's stated preferences, set at profile
// creation and read-only thereafter.
type Preferences struct {
	Topics     []string      `json:"topics"`
	Difficulty Difficulty    `json:"difficulty"`
	Style      LearningStyle `json:"style"`
}

// StudentProfile is the evolving skill and engagement state of one
// student. Performance fields are written only by the engine's tracker;
// identity and preferences are immutable after creation.
type StudentProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	Preferences Preferences `json:"preferences"`

	OverallPerformance    float64                `json:"overall_performance"`
	TopicPerformance      map[string]float64     `json:"topic_performance"`
	DifficultyPerformance map[Difficulty]float64 `json:"difficulty_performance"`

	TotalQuestionsAnswered int `json:"total_questions_answered"`
	CorrectResponses       int `json:"correct_responses"`
	DetailedResponses      int `json:"detailed_responses"`
	SessionCount           int `json:"session_count"`

	LearningVelocity float64  `json:"learning_velocity"`
	EngagementScore  float64  `json:"engagement_score"`
	StrengthAreas    []string `json:"strength_areas"`
	ImprovementAreas []string `json:"improvement_areas"`

	TotalStudyTime time.Duration `json:"total_study_time"`
}

// NewStudentProfile creates a profile with neutral starting performance
// for every known topic. Difficulty baselines slope downward with level
// so early selections are not biased toward hard questions.
func NewStudentProfile(id, name string, prefs Preferences, topics []string) *StudentProfile {
	p := &StudentProfile{
		ID:          id,
		Name:        name,
		CreatedAt:   time.Now(),
		Preferences: prefs,

		OverallPerformance: 0.5,
		TopicPerformance:   make(map[string]float64, len(topics)),
		DifficultyPerformance: map[Difficulty]float64{
			DifficultyEasy:   0.6,
			DifficultyMedium: 0.5,
			DifficultyHard:   0.4,
		},
		EngagementScore: 0.5,
	}
	for _, t := range topics {
		p.TopicPerformance[t] = 0.5
	}
	return p
}

// InImprovementAreas reports whether topic is currently flagged for focus.
func (p *StudentProfile) InImprovementAreas(topic string) bool {
	for _, t := range p.ImprovementAreas {
		if t == topic {
			return true
		}
	}
	return false
}

// PrefersTopic reports whether topic is one of the stated preferences.
func (p *StudentProfile) PrefersTopic(topic string) bool {
	for _, t := range p.Preferences.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// AccuracyRate is the share of answers scored above the correctness bar.
func (p *StudentProfile) AccuracyRate() float64 {
	if p.TotalQuestionsAnswered == 0 {
		return 0
	}
	return float64(p.CorrectResponses) / float64(p.TotalQuestionsAnswered)
}

// DetailedRate is the share of answers scored above the detail bar.
func (p *StudentProfile) DetailedRate() float64 {
	if p.TotalQuestionsAnswered == 0 {
		return 0
	}
	return float64(p.DetailedResponses) / float64(p.TotalQuestionsAnswered)
}

// InteractionRecord is the append-only record of one question/response/
// reward triple, handed to the persistence collaborator after each round.
type InteractionRecord struct {
	SessionID        string     `json:"session_id"`
	StudentID        string     `json:"student_id"`
	At               time.Time  `json:"at"`
	Round            int        `json:"round"`
	QuestionText     string     `json:"question_text"`
	Topic            string     `json:"topic"`
	Difficulty       Difficulty `json:"difficulty"`
	Response         string     `json:"response"`
	ResponseLength   int        `json:"response_length"`
	Reward           float64    `json:"reward"`
	FeedbackID       string     `json:"feedback_id"`
	Lead             string     `json:"lead"`
	CumulativeReward float64    `json:"cumulative_reward"`
}

// SessionSummary captures one tutoring session at the moment it ends.
type SessionSummary struct {
	SessionID        string           `json:"session_id"`
	StudentID        string           `json:"student_id"`
	Mode             CoordinationMode `json:"coordination_mode"`
	StartedAt        time.Time        `json:"started_at"`
	EndedAt          time.Time        `json:"ended_at"`
	Rounds           int              `json:"rounds"`
	TotalReward      float64          `json:"total_reward"`
	AverageReward    float64          `json:"average_reward"`
	TopicsCovered    []string         `json:"topics_covered"`
	EngagementScore  float64          `json:"engagement_score"`
	LearningVelocity float64          `json:"learning_velocity"`
	ImprovementTrend string           `json:"improvement_trend"`
	EngagementLevel  string           `json:"engagement_level"`
}

// TutorConfig holds runtime parameters set via CLI flags.
type TutorConfig struct {
	SecureCookies bool // Set Secure flag on cookies (disable for local dev)
	LLMGrader     bool // grade responses with the LLM instead of the length heuristic
}
