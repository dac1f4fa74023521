// Package catalog holds the static question bank: a typed two-level
// lookup of topic, then difficulty, to open-ended questions. The bank is
// validated when loaded so a missing topic/difficulty cell surfaces as a
// configuration error instead of a runtime lookup failure.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/adaptutor/adaptutor/internal/model"
)

//go:embed bank/*.json
var bankFS embed.FS

// QuestionImport is used for loading questions from JSON.
type QuestionImport struct {
	Topic        string           `json:"topic"`
	Difficulty   model.Difficulty `json:"difficulty"`
	Text         string           `json:"text"`
	SampleAnswer string           `json:"sample_answer"`
}

// Catalog is the validated topic → difficulty → questions lookup.
type Catalog struct {
	topics  []string
	entries map[string]map[model.Difficulty][]model.Question
}

// New builds a catalog from a flat question list. Every topic present
// must carry at least one question for each difficulty level.
func New(questions []model.Question) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("empty question bank")
	}

	entries := make(map[string]map[model.Difficulty][]model.Question)
	for _, q := range questions {
		if q.Topic == "" || q.Text == "" {
			return nil, fmt.Errorf("question with empty topic or text")
		}
		if _, err := model.ParseDifficulty(string(q.Difficulty)); err != nil {
			return nil, fmt.Errorf("question %q: %w", q.Text, err)
		}
		if entries[q.Topic] == nil {
			entries[q.Topic] = make(map[model.Difficulty][]model.Question)
		}
		entries[q.Topic][q.Difficulty] = append(entries[q.Topic][q.Difficulty], q)
	}

	var topics []string
	for topic, byDiff := range entries {
		for _, d := range model.Difficulties() {
			if len(byDiff[d]) == 0 {
				return nil, fmt.Errorf("topic %q has no %s questions", topic, d)
			}
		}
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	return &Catalog{topics: topics, entries: entries}, nil
}

// Default loads the embedded question bank.
func Default() (*Catalog, error) {
	files, err := bankFS.ReadDir("bank")
	if err != nil {
		return nil, fmt.Errorf("read embedded bank: %w", err)
	}
	var questions []model.Question
	for _, f := range files {
		data, err := bankFS.ReadFile("bank/" + f.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded bank %s: %w", f.Name(), err)
		}
		qs, err := parseBank(data)
		if err != nil {
			return nil, fmt.Errorf("parse embedded bank %s: %w", f.Name(), err)
		}
		questions = append(questions, qs...)
	}
	return New(questions)
}

// LoadFiles builds a catalog from the embedded bank merged with the
// given JSON bank files. Later files extend earlier ones.
func LoadFiles(paths []string) (*Catalog, error) {
	files, err := bankFS.ReadDir("bank")
	if err != nil {
		return nil, fmt.Errorf("read embedded bank: %w", err)
	}
	var questions []model.Question
	for _, f := range files {
		data, _ := bankFS.ReadFile("bank/" + f.Name())
		qs, err := parseBank(data)
		if err != nil {
			return nil, fmt.Errorf("parse embedded bank %s: %w", f.Name(), err)
		}
		questions = append(questions, qs...)
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		qs, err := parseBank(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		questions = append(questions, qs...)
	}
	return New(questions)
}

func parseBank(data []byte) ([]model.Question, error) {
	var imports []QuestionImport
	if err := json.Unmarshal(data, &imports); err != nil {
		return nil, err
	}
	questions := make([]model.Question, 0, len(imports))
	for _, qi := range imports {
		questions = append(questions, model.Question{
			Topic:        qi.Topic,
			Difficulty:   qi.Difficulty,
			Text:         qi.Text,
			SampleAnswer: qi.SampleAnswer,
		})
	}
	return questions, nil
}

// Topics returns all topic names in sorted order.
func (c *Catalog) Topics() []string {
	return c.topics
}

// HasTopic reports whether the catalog knows the given topic.
func (c *Catalog) HasTopic(topic string) bool {
	_, ok := c.entries[topic]
	return ok
}

// Size returns the total number of questions in the catalog.
func (c *Catalog) Size() int {
	n := 0
	for _, byDiff := range c.entries {
		for _, qs := range byDiff {
			n += len(qs)
		}
	}
	return n
}

// Pick draws one question for the given cell using the supplied random
// source. When the cell is empty (a topic added after validation, or a
// caller asking for an unknown topic) it falls back to a generic
// placeholder so the round still proceeds.
func (c *Catalog) Pick(topic string, d model.Difficulty, rng *rand.Rand) model.Question {
	qs := c.entries[topic][d]
	if len(qs) == 0 {
		return Placeholder(topic, d)
	}
	return qs[rng.IntN(len(qs))]
}

// Placeholder builds a generic fallback question for a catalog miss.
func Placeholder(topic string, d model.Difficulty) model.Question {
	return model.Question{
		Topic:        topic,
		Difficulty:   d,
		Text:         fmt.Sprintf("Explain a concept related to %s and give an example.", topic),
		SampleAnswer: fmt.Sprintf("A thorough answer connects a core idea from %s to a concrete example.", topic),
	}
}
