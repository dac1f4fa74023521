// Package llm provides an optional response grader backed by an
// OpenAI-compatible API. When configured it replaces the length
// heuristic with a semantic quality score; the reward pipeline past
// that point is unchanged.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adaptutor/adaptutor/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// gradeResult is the JSON shape the model is instructed to return.
type gradeResult struct {
	Quality  float64 `json:"quality"`
	Feedback string  `json:"feedback"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Grade asks the model for a quality score in [0,1] for the student's
// response. Implements the engine's Grader interface.
func (c *Client) Grade(ctx context.Context, q model.Question, response string) (float64, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildGradingPrompt(q)},
			{Role: openai.ChatMessageRoleUser, Content: response},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return 0, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM grading response", "raw", raw)

	var result gradeResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return 0, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	if result.Quality < 0 || result.Quality > 1 {
		return 0, fmt.Errorf("LLM quality %v out of range", result.Quality)
	}
	return result.Quality, nil
}

// Ping verifies the API is reachable with a minimal completion request.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "ping"},
		},
		MaxTokens: 1,
	})
	if err != nil {
		return fmt.Errorf("LLM ping: %w", err)
	}
	return nil
}

func buildGradingPrompt(q model.Question) string {
	var sb strings.Builder
	sb.WriteString("You are a tutor grading a student's answer to an open-ended practice question.\n\n")
	sb.WriteString("QUESTION: " + q.Text + "\n\n")
	if q.SampleAnswer != "" {
		sb.WriteString("SAMPLE ANSWER (not shown to student):\n" + q.SampleAnswer + "\n\n")
	}
	sb.WriteString(fmt.Sprintf("TOPIC: %s, DIFFICULTY: %s\n\n", q.Topic, q.Difficulty))
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Score the answer for correctness, completeness, and understanding.\n")
	sb.WriteString("- quality must be a number between 0.0 (no understanding) and 1.0 (complete, correct, well explained).\n")
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"quality": <number 0.0 to 1.0>, "feedback": "<one short sentence>"}`)
	sb.WriteString("\n")
	return sb.String()
}
