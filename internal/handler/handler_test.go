package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/adaptutor/adaptutor/internal/catalog"
	appI18n "github.com/adaptutor/adaptutor/internal/i18n"
	"github.com/adaptutor/adaptutor/internal/model"
	"github.com/adaptutor/adaptutor/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()

	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}

	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	var questions []model.Question
	for _, topic := range []string{"mathematics", "science"} {
		for _, d := range model.Difficulties() {
			questions = append(questions, model.Question{
				Topic:        topic,
				Difficulty:   d,
				Text:         fmt.Sprintf("%s %s question", topic, d),
				SampleAnswer: "a sample answer",
			})
		}
	}
	cat, err := catalog.New(questions)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}

	rec := store.NewRecorder(s)
	t.Cleanup(rec.Close)

	h := New(s, rec, cat, nil, model.TutorConfig{})
	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, s
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestTutoringLoop(t *testing.T) {
	srv, db := newTestServer(t)

	// Create a student.
	var profile model.StudentProfile
	status := postJSON(t, srv.URL+"/api/students", map[string]any{
		"name":       "Alice",
		"topics":     []string{"mathematics"},
		"difficulty": "medium",
		"style":      "visual",
	}, &profile)
	if status != http.StatusCreated {
		t.Fatalf("create student status = %d", status)
	}
	if profile.ID == "" {
		t.Fatalf("student ID missing")
	}

	// Start a session.
	var started struct {
		SessionID string `json:"session_id"`
		Welcome   string `json:"welcome"`
	}
	status = postJSON(t, srv.URL+"/api/sessions", map[string]string{
		"student_id": profile.ID,
		"mode":       "collaborative",
	}, &started)
	if status != http.StatusCreated {
		t.Fatalf("start session status = %d", status)
	}
	if !strings.Contains(started.Welcome, "Alice") {
		t.Errorf("welcome = %q, want student name", started.Welcome)
	}

	// Fetch a question; the visual style prefix decorates the text.
	var q struct {
		Round int    `json:"round"`
		Topic string `json:"topic"`
		Text  string `json:"text"`
	}
	status = getJSON(t, srv.URL+"/api/sessions/"+started.SessionID+"/question", &q)
	if status != http.StatusOK {
		t.Fatalf("question status = %d", status)
	}
	if q.Round != 1 {
		t.Errorf("round = %d, want 1", q.Round)
	}
	if !strings.HasPrefix(q.Text, "Picture this:") {
		t.Errorf("text = %q, want visual style prefix", q.Text)
	}

	// Answer it.
	var ans struct {
		Quit        bool    `json:"quit"`
		Reward      float64 `json:"reward"`
		Feedback    string  `json:"feedback"`
		Round       int     `json:"round"`
		TotalReward float64 `json:"total_reward"`
	}
	status = postJSON(t, srv.URL+"/api/sessions/"+started.SessionID+"/answer", map[string]string{
		"response": strings.Repeat("a fairly detailed answer about the topic ", 2),
	}, &ans)
	if status != http.StatusOK {
		t.Fatalf("answer status = %d", status)
	}
	if ans.Quit || ans.Reward <= 0 || ans.Round != 1 {
		t.Errorf("answer = %+v", ans)
	}
	if ans.Feedback == "" || strings.HasPrefix(ans.Feedback, "Feedback") {
		t.Errorf("feedback %q was not localized", ans.Feedback)
	}

	// Finish; the profile must be persisted with the update applied.
	var summary model.SessionSummary
	status = postJSON(t, srv.URL+"/api/sessions/"+started.SessionID+"/finish", nil, &summary)
	if status != http.StatusOK {
		t.Fatalf("finish status = %d", status)
	}
	if summary.Rounds != 1 {
		t.Errorf("summary rounds = %d, want 1", summary.Rounds)
	}

	saved, err := db.GetStudent(profile.ID)
	if err != nil {
		t.Fatalf("GetStudent: %v", err)
	}
	if saved.TotalQuestionsAnswered != 1 || saved.SessionCount != 1 {
		t.Errorf("saved profile = answered %d, sessions %d; want 1 and 1",
			saved.TotalQuestionsAnswered, saved.SessionCount)
	}

	// The finished session is gone.
	status = getJSON(t, srv.URL+"/api/sessions/"+started.SessionID+"/question", nil)
	if status != http.StatusNotFound {
		t.Errorf("question after finish status = %d, want 404", status)
	}
}

func TestCreateStudentValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"topics": []string{"mathematics"}, "difficulty": "easy"}},
		{"no topics", map[string]any{"name": "Bob", "difficulty": "easy"}},
		{"unknown topic", map[string]any{"name": "Bob", "topics": []string{"astrology"}, "difficulty": "easy"}},
		{"bad difficulty", map[string]any{"name": "Bob", "topics": []string{"mathematics"}, "difficulty": "brutal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status := postJSON(t, srv.URL+"/api/students", tt.body, nil); status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
		})
	}
}

func TestStartSessionUnknownStudent(t *testing.T) {
	srv, _ := newTestServer(t)

	status := postJSON(t, srv.URL+"/api/sessions", map[string]string{
		"student_id": "nope",
		"mode":       "collaborative",
	}, nil)
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestAnalyticsRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	status := getJSON(t, srv.URL+"/api/analytics/students", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
}
