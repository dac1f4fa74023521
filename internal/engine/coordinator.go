package engine

import (
	"github.com/adaptutor/adaptutor/internal/model"
)

// Lead identifies which decision path drove a round.
const (
	LeadTopicPolicy      = "topic-policy"
	LeadDifficultyPolicy = "difficulty-policy"
	LeadShared           = "shared"
)

// Synthetic policy score bounds and adaptation rate. The scores are
// bookkeeping for the competitive mode's leadership contest, not learned
// values.
const (
	policyScoreMin  = 0.05
	policyScoreMax  = 0.95
	policyScoreRate = 0.1

	hierarchicalStrategicShare = 0.7
	competitiveLeaderBoost     = 1.2
	competitiveTrailerDamp     = 0.8
)

// Coordinator combines the two heuristic policies — the topic policy
// (preference and weakness weighting) and the difficulty policy
// (performance banding) — according to the session's coordination mode.
type Coordinator struct {
	mode model.CoordinationMode
	sel  *Selector

	// Exported so tests can pin the competitive leadership contest.
	TopicPolicyScore      float64
	DifficultyPolicyScore float64
}

// NewCoordinator creates a coordinator for a fixed mode. Both policy
// scores start neutral.
func NewCoordinator(mode model.CoordinationMode, sel *Selector) *Coordinator {
	return &Coordinator{
		mode:                  mode,
		sel:                   sel,
		TopicPolicyScore:      0.5,
		DifficultyPolicyScore: 0.5,
	}
}

// Mode returns the session's coordination mode.
func (c *Coordinator) Mode() model.CoordinationMode { return c.mode }

// Decision is one round's content choice.
type Decision struct {
	Topic      string
	Difficulty model.Difficulty
	Lead       string
}

// Decide picks the round's topic and difficulty from the current
// profile snapshot.
//
// Hierarchical treats the topic choice as the strategic decision and the
// difficulty choice as tactical. Collaborative computes both from the
// same snapshot as one joint decision. Competitive lets whichever policy
// currently scores higher lead: the leader applies its adaptive choice
// while the other dimension is drawn uniformly.
func (c *Coordinator) Decide(p *model.StudentProfile, topics []string) Decision {
	switch c.mode {
	case model.ModeHierarchical:
		return Decision{
			Topic:      c.sel.SelectTopic(p, topics),
			Difficulty: c.sel.SelectDifficulty(p),
			Lead:       LeadTopicPolicy,
		}
	case model.ModeCompetitive:
		if c.DifficultyPolicyScore > c.TopicPolicyScore {
			return Decision{
				Topic:      c.sel.RandomTopic(topics),
				Difficulty: c.sel.SelectDifficulty(p),
				Lead:       LeadDifficultyPolicy,
			}
		}
		return Decision{
			Topic:      c.sel.SelectTopic(p, topics),
			Difficulty: c.sel.RandomDifficulty(),
			Lead:       LeadTopicPolicy,
		}
	default: // collaborative
		return Decision{
			Topic:      c.sel.SelectTopic(p, topics),
			Difficulty: c.sel.SelectDifficulty(p),
			Lead:       LeadShared,
		}
	}
}

// Observe feeds the round's reward back into the synthetic policy
// scores. The student profile always receives the single unscaled
// reward elsewhere; the hierarchical 70/30 split and the competitive
// leader/trailer asymmetry apply only here.
func (c *Coordinator) Observe(reward float64, lead string) {
	switch c.mode {
	case model.ModeHierarchical:
		c.TopicPolicyScore = nudge(c.TopicPolicyScore, hierarchicalStrategicShare*reward)
		c.DifficultyPolicyScore = nudge(c.DifficultyPolicyScore, (1-hierarchicalStrategicShare)*reward)
	case model.ModeCompetitive:
		leaderSignal := clamp01(competitiveLeaderBoost * reward)
		trailerSignal := competitiveTrailerDamp * reward
		if lead == LeadDifficultyPolicy {
			c.DifficultyPolicyScore = nudge(c.DifficultyPolicyScore, leaderSignal)
			c.TopicPolicyScore = nudge(c.TopicPolicyScore, trailerSignal)
		} else {
			c.TopicPolicyScore = nudge(c.TopicPolicyScore, leaderSignal)
			c.DifficultyPolicyScore = nudge(c.DifficultyPolicyScore, trailerSignal)
		}
	default: // collaborative: one shared signal
		c.TopicPolicyScore = nudge(c.TopicPolicyScore, reward)
		c.DifficultyPolicyScore = nudge(c.DifficultyPolicyScore, reward)
	}
}

// nudge moves a policy score toward the observed signal.
func nudge(score, signal float64) float64 {
	return clamp(score+policyScoreRate*(signal-score), policyScoreMin, policyScoreMax)
}
