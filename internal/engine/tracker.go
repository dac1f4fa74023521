package engine

import (
	"sort"

	"github.com/adaptutor/adaptutor/internal/model"
)

// Smoothing and threshold constants for the progress tracker. Overall
// performance adapts slowly; per-topic and per-difficulty trackers react
// faster so weak areas surface within a few rounds.
const (
	overallAlpha = 0.1
	perAreaAlpha = 0.2

	correctBar  = 0.6
	detailedBar = 0.8

	engagementGain = 0.1
	engagementMin  = 0.1
	engagementMax  = 1.0

	// Velocity is meaningless on a handful of answers.
	velocityWarmup = 5

	// Margin around the topic mean that marks a strength or a weakness.
	areaMargin = 0.1
)

// UpdateProfile applies one evaluated response to the student profile.
// It is the single writer of all performance, engagement and velocity
// fields; quality must already be clamped to [0,1] by the evaluator.
func UpdateProfile(p *model.StudentProfile, topic string, d model.Difficulty, quality float64) {
	p.OverallPerformance = clamp01((1-overallAlpha)*p.OverallPerformance + overallAlpha*quality)

	p.TopicPerformance[topic] = clamp01((1-perAreaAlpha)*p.TopicPerformance[topic] + perAreaAlpha*quality)
	p.DifficultyPerformance[d] = clamp01((1-perAreaAlpha)*p.DifficultyPerformance[d] + perAreaAlpha*quality)

	p.TotalQuestionsAnswered++
	if quality > correctBar {
		p.CorrectResponses++
	}
	if quality > detailedBar {
		p.DetailedResponses++
	}

	p.EngagementScore = clamp(p.EngagementScore+engagementGain*(quality-0.5), engagementMin, engagementMax)

	if p.TotalQuestionsAnswered > velocityWarmup {
		p.LearningVelocity = (topicMean(p) - 0.5) * 2
	}

	recomputeAreas(p)
}

// recomputeAreas rebuilds the strength and improvement sets from scratch
// around the current topic mean. Previous membership is discarded.
func recomputeAreas(p *model.StudentProfile) {
	avg := topicMean(p)

	topics := make([]string, 0, len(p.TopicPerformance))
	for t := range p.TopicPerformance {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	strengths := make([]string, 0, len(topics))
	improvements := make([]string, 0, len(topics))
	for _, t := range topics {
		switch score := p.TopicPerformance[t]; {
		case score > avg+areaMargin:
			strengths = append(strengths, t)
		case score < avg-areaMargin:
			improvements = append(improvements, t)
		}
	}
	p.StrengthAreas = strengths
	p.ImprovementAreas = improvements
}

func topicMean(p *model.StudentProfile) float64 {
	if len(p.TopicPerformance) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, v := range p.TopicPerformance {
		sum += v
	}
	return sum / float64(len(p.TopicPerformance))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
