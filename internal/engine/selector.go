package engine

import (
	"math/rand/v2"

	"github.com/adaptutor/adaptutor/internal/model"
)

// Topic weight components. Every topic keeps a base weight so nothing
// ever drops to zero selection probability.
const (
	topicBaseWeight           = 1.0
	topicPreferenceWeight     = 0.3
	topicImprovementWeight    = 0.4
	topicInverseMasteryWeight = 0.3
)

// Difficulty banding over overall performance. Boundaries are strict:
// exactly 0.4 and exactly 0.7 both land in the middle band.
const (
	lowPerformanceBand  = 0.4
	highPerformanceBand = 0.7
)

// Selector makes the weighted stochastic content decisions. The random
// source is injected so tests can pin every draw.
type Selector struct {
	rng *rand.Rand
}

// NewSelector creates a selector around the given random source.
// A nil source gets a freshly seeded one.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{rng: rng}
}

// TopicWeight computes the selection weight for one topic: stated
// preference, detected weakness and inverse mastery all raise it.
func TopicWeight(p *model.StudentProfile, topic string) float64 {
	w := topicBaseWeight
	if p.PrefersTopic(topic) {
		w += topicPreferenceWeight
	}
	if p.InImprovementAreas(topic) {
		w += topicImprovementWeight
	}
	perf, ok := p.TopicPerformance[topic]
	if !ok {
		perf = 0.5
	}
	w += topicInverseMasteryWeight * (1 - perf)
	return w
}

// SelectTopic draws one topic via weighted random choice.
func (s *Selector) SelectTopic(p *model.StudentProfile, topics []string) string {
	weights := make([]float64, len(topics))
	for i, t := range topics {
		weights[i] = TopicWeight(p, t)
	}
	return topics[s.weightedIndex(weights)]
}

// SelectDifficulty picks a difficulty from the performance band the
// student currently sits in. Low performers always get easy questions;
// high performers are stretched toward medium and hard.
func (s *Selector) SelectDifficulty(p *model.StudentProfile) model.Difficulty {
	switch perf := p.OverallPerformance; {
	case perf < lowPerformanceBand:
		return model.DifficultyEasy
	case perf > highPerformanceBand:
		if s.weightedIndex([]float64{0.6, 0.4}) == 0 {
			return model.DifficultyMedium
		}
		return model.DifficultyHard
	default:
		if s.weightedIndex([]float64{0.3, 0.7}) == 0 {
			return model.DifficultyEasy
		}
		return model.DifficultyMedium
	}
}

// RandomTopic draws a topic uniformly, ignoring the profile. Used by the
// competitive coordination path that trades adaptation for exploration.
func (s *Selector) RandomTopic(topics []string) string {
	return topics[s.rng.IntN(len(topics))]
}

// RandomDifficulty draws a difficulty uniformly.
func (s *Selector) RandomDifficulty() model.Difficulty {
	ds := model.Difficulties()
	return ds[s.rng.IntN(len(ds))]
}

func (s *Selector) weightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	draw := s.rng.Float64() * total
	for i, w := range weights {
		draw -= w
		if draw < 0 {
			return i
		}
	}
	return len(weights) - 1
}
