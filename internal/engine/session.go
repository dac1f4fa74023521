// Package engine implements the student progress and adaptive selection
// engine: the progress tracker, the weighted topic/difficulty selector,
// the response evaluator and the coordination policy that ties them into
// a per-round loop. The engine performs no I/O and owns no goroutines;
// persistence and presentation are external collaborators.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/adaptutor/adaptutor/internal/catalog"
	"github.com/adaptutor/adaptutor/internal/model"
)

// ErrInvalidConfig marks a session configuration rejected before the
// first round.
var ErrInvalidConfig = errors.New("invalid session configuration")

// Grader supplies an explicit response-quality score in [0,1]. Optional;
// when absent the length heuristic scores responses.
type Grader interface {
	Grade(ctx context.Context, q model.Question, response string) (float64, error)
}

// Config assembles one tutoring session. Student, Mode and Catalog are
// required; Rand and Grader are optional.
type Config struct {
	Student *model.StudentProfile
	Mode    model.CoordinationMode
	Catalog *catalog.Catalog
	Rand    *rand.Rand
	Grader  Grader
}

// Session runs the per-round loop for one student. Not safe for
// concurrent use: callers must serialize rounds per session.
type Session struct {
	ID string

	profile *model.StudentProfile
	cat     *catalog.Catalog
	sel     *Selector
	coord   *Coordinator
	grader  Grader

	startedAt     time.Time
	round         int
	totalReward   float64
	topicsCovered map[string]bool

	current     *model.Question
	currentLead string
}

// NewSession validates the configuration and prepares a session.
// An unknown mode, an empty or unknown preferred-topic set, or an
// unknown preferred difficulty is fatal here, before any round runs.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Student == nil {
		return nil, fmt.Errorf("%w: nil student profile", ErrInvalidConfig)
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrInvalidConfig)
	}
	if _, err := model.ParseCoordinationMode(string(cfg.Mode)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(cfg.Student.Preferences.Topics) == 0 {
		return nil, fmt.Errorf("%w: empty preferred-topics set", ErrInvalidConfig)
	}
	for _, t := range cfg.Student.Preferences.Topics {
		if !cfg.Catalog.HasTopic(t) {
			return nil, fmt.Errorf("%w: unknown preferred topic %q", ErrInvalidConfig, t)
		}
	}
	if _, err := model.ParseDifficulty(string(cfg.Student.Preferences.Difficulty)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	sel := NewSelector(cfg.Rand)
	return &Session{
		ID:            uuid.NewString(),
		profile:       cfg.Student,
		cat:           cfg.Catalog,
		sel:           sel,
		coord:         NewCoordinator(cfg.Mode, sel),
		grader:        cfg.Grader,
		startedAt:     time.Now(),
		topicsCovered: make(map[string]bool),
	}, nil
}

// Profile exposes the session's student profile for display. Callers
// must not mutate it.
func (s *Session) Profile() *model.StudentProfile { return s.profile }

// Mode returns the session's fixed coordination mode.
func (s *Session) Mode() model.CoordinationMode { return s.coord.Mode() }

// Rounds returns the number of evaluated rounds so far.
func (s *Session) Rounds() int { return s.round }

// TotalReward returns the cumulative reward so far.
func (s *Session) TotalReward() float64 { return s.totalReward }

// Coordinator exposes the coordination state for display and tests.
func (s *Session) Coordinator() *Coordinator { return s.coord }

// RoundPrompt is everything the presentation layer needs to show one
// question.
type RoundPrompt struct {
	Round    int
	Question model.Question
	Lead     string
}

// NextQuestion runs the coordination policy and picks the round's
// question, falling back to a placeholder on a catalog miss.
func (s *Session) NextQuestion() RoundPrompt {
	dec := s.coord.Decide(s.profile, s.cat.Topics())
	q := s.cat.Pick(dec.Topic, dec.Difficulty, s.sel.rng)
	s.current = &q
	s.currentLead = dec.Lead
	return RoundPrompt{Round: s.round + 1, Question: q, Lead: dec.Lead}
}

// RoundResult is the outcome of one submitted response.
type RoundResult struct {
	Quit         bool
	Reward       float64
	FeedbackID   string
	SampleAnswer string
	Record       model.InteractionRecord
}

// Submit evaluates a response against the current question, updates the
// student profile and produces the round's interaction record. Sentinel
// input short-circuits: Quit is set and the profile is left untouched.
func (s *Session) Submit(ctx context.Context, response string) (RoundResult, error) {
	if s.current == nil {
		return RoundResult{}, fmt.Errorf("submit: no question presented")
	}

	if IsQuit(response) {
		ev := NoResponse()
		return RoundResult{Quit: true, Reward: ev.Reward, FeedbackID: ev.FeedbackID}, nil
	}

	q := *s.current
	inImprovement := s.profile.InImprovementAreas(q.Topic)

	var ev Evaluation
	if s.grader != nil {
		quality, err := s.grader.Grade(ctx, q, response)
		if err != nil {
			return RoundResult{}, fmt.Errorf("grade response: %w", err)
		}
		ev = EvaluateQuality(quality, q.Difficulty, inImprovement)
	} else {
		ev = EvaluateText(response, q.Difficulty, inImprovement)
	}

	UpdateProfile(s.profile, q.Topic, q.Difficulty, ev.Reward)
	s.coord.Observe(ev.Reward, s.currentLead)

	s.round++
	s.totalReward += ev.Reward
	s.topicsCovered[q.Topic] = true

	rec := model.InteractionRecord{
		SessionID:        s.ID,
		StudentID:        s.profile.ID,
		At:               time.Now(),
		Round:            s.round,
		QuestionText:     q.Text,
		Topic:            q.Topic,
		Difficulty:       q.Difficulty,
		Response:         response,
		ResponseLength:   len(response),
		Reward:           ev.Reward,
		FeedbackID:       ev.FeedbackID,
		Lead:             s.currentLead,
		CumulativeReward: s.totalReward,
	}
	s.current = nil

	return RoundResult{
		Reward:       ev.Reward,
		FeedbackID:   ev.FeedbackID,
		SampleAnswer: q.SampleAnswer,
		Record:       rec,
	}, nil
}

// Summarize closes the session: it bumps the profile's session counters
// and returns the summary record. Call once, after the final round.
func (s *Session) Summarize() model.SessionSummary {
	now := time.Now()
	s.profile.SessionCount++
	s.profile.TotalStudyTime += now.Sub(s.startedAt)

	avg := 0.0
	if s.round > 0 {
		avg = s.totalReward / float64(s.round)
	}

	topics := make([]string, 0, len(s.topicsCovered))
	for t := range s.topicsCovered {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	trend := "stable"
	if s.profile.LearningVelocity > 0.5 {
		trend = "improving"
	}
	engagement := "medium"
	if s.profile.EngagementScore > 0.7 {
		engagement = "high"
	}

	return model.SessionSummary{
		SessionID:        s.ID,
		StudentID:        s.profile.ID,
		Mode:             s.coord.Mode(),
		StartedAt:        s.startedAt,
		EndedAt:          now,
		Rounds:           s.round,
		TotalReward:      s.totalReward,
		AverageReward:    avg,
		TopicsCovered:    topics,
		EngagementScore:  s.profile.EngagementScore,
		LearningVelocity: s.profile.LearningVelocity,
		ImprovementTrend: trend,
		EngagementLevel:  engagement,
	}
}
