package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/adaptutor/adaptutor/internal/model"
)

// Feedback message IDs. The engine never produces display text itself;
// the presentation layer localizes these.
const (
	FeedbackNoResponse  = "FeedbackNoResponse"
	FeedbackBrief       = "FeedbackBrief"
	FeedbackGoodStart   = "FeedbackGoodStart"
	FeedbackDeveloped   = "FeedbackDeveloped"
	FeedbackExcellent   = "FeedbackExcellent"
	FeedbackOutstanding = "FeedbackOutstanding"
)

// Length buckets for the free-text heuristic. Lower bounds are closed:
// a 10-character answer is already past "brief".
const (
	briefLimit     = 10
	goodStartLimit = 50
	developedLimit = 100
)

// Difficulty multipliers applied after the base lookup.
var difficultyMultiplier = map[model.Difficulty]float64{
	model.DifficultyEasy:   1.0,
	model.DifficultyMedium: 1.1,
	model.DifficultyHard:   1.2,
}

// improvementBonus rewards effort in a currently weak topic.
const improvementBonus = 1.2

// Evaluation is the outcome of scoring one response.
type Evaluation struct {
	Reward     float64
	FeedbackID string
}

// IsQuit reports whether the input is the empty/quit sentinel that ends
// a session without touching the student profile.
func IsQuit(response string) bool {
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "", "q", "quit", "exit":
		return true
	}
	return false
}

// NoResponse is the fixed evaluation for sentinel input.
func NoResponse() Evaluation {
	return Evaluation{Reward: 0, FeedbackID: FeedbackNoResponse}
}

// EvaluateText scores a free-text response by character length: a step
// function with linear ramps inside each bucket, then the difficulty
// multiplier and the improvement-area bonus, clamped to [0,1].
func EvaluateText(response string, d model.Difficulty, inImprovementArea bool) Evaluation {
	length := utf8.RuneCountInString(strings.TrimSpace(response))

	var base float64
	var feedback string
	switch {
	case length < briefLimit:
		base = 0.1
		feedback = FeedbackBrief
	case length < goodStartLimit:
		base = 0.3 + 0.1*float64(length-briefLimit)/float64(goodStartLimit-briefLimit)
		feedback = FeedbackGoodStart
	case length < developedLimit:
		base = 0.6 + 0.1*float64(length-goodStartLimit)/float64(developedLimit-goodStartLimit)
		feedback = FeedbackDeveloped
	default:
		over := float64(length-developedLimit) / float64(developedLimit)
		if over > 1 {
			over = 1
		}
		base = 0.8 + 0.2*over
		feedback = FeedbackExcellent
	}

	return applyModifiers(base, feedback, d, inImprovementArea)
}

// EvaluateQuality scores from an explicit quality signal in [0,1], as
// produced by an external grader, through the same modifier pipeline.
func EvaluateQuality(quality float64, d model.Difficulty, inImprovementArea bool) Evaluation {
	quality = clamp01(quality)

	var feedback string
	switch {
	case quality < 0.3:
		feedback = FeedbackBrief
	case quality < 0.6:
		feedback = FeedbackGoodStart
	case quality < 0.8:
		feedback = FeedbackDeveloped
	default:
		feedback = FeedbackExcellent
	}

	return applyModifiers(quality, feedback, d, inImprovementArea)
}

func applyModifiers(base float64, feedback string, d model.Difficulty, inImprovementArea bool) Evaluation {
	reward := base * difficultyMultiplier[d]
	if inImprovementArea {
		reward *= improvementBonus
	}
	// A response that saturates the scale earns the top label.
	if reward > 1 && feedback == FeedbackExcellent {
		feedback = FeedbackOutstanding
	}
	return Evaluation{Reward: clamp01(reward), FeedbackID: feedback}
}
