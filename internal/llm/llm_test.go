package llm

import (
	"strings"
	"testing"

	"github.com/adaptutor/adaptutor/internal/model"
)

func TestBuildGradingPrompt(t *testing.T) {
	q := model.Question{
		Topic:        "programming",
		Difficulty:   model.DifficultyMedium,
		Text:         "What is a goroutine?",
		SampleAnswer: "A goroutine is a lightweight thread managed by the Go runtime.",
	}

	prompt := buildGradingPrompt(q)
	if !strings.Contains(prompt, q.Text) {
		t.Error("prompt should contain question text")
	}
	if !strings.Contains(prompt, q.SampleAnswer) {
		t.Error("prompt should contain sample answer")
	}
	if !strings.Contains(prompt, "programming") {
		t.Error("prompt should contain topic")
	}
	if !strings.Contains(prompt, `"quality"`) {
		t.Error("prompt should describe the JSON shape")
	}
}

func TestBuildGradingPromptNoSampleAnswer(t *testing.T) {
	q := model.Question{
		Topic:      "science",
		Difficulty: model.DifficultyEasy,
		Text:       "What is photosynthesis?",
	}

	prompt := buildGradingPrompt(q)
	if strings.Contains(prompt, "SAMPLE ANSWER") {
		t.Error("prompt should omit the sample answer section when empty")
	}
}
