// Package handler exposes the tutoring engine over a JSON HTTP API:
// student profile management, the per-round question/answer loop, and
// the teacher-facing analytics and export endpoints.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/adaptutor/adaptutor/internal/catalog"
	"github.com/adaptutor/adaptutor/internal/engine"
	appI18n "github.com/adaptutor/adaptutor/internal/i18n"
	"github.com/adaptutor/adaptutor/internal/model"
	"github.com/adaptutor/adaptutor/internal/registry"
	"github.com/adaptutor/adaptutor/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	recorder *store.Recorder
	catalog  *catalog.Catalog
	sessions *registry.Registry
	grader   engine.Grader
	config   model.TutorConfig
}

// New creates a new Handler. grader may be nil; the length heuristic is
// used then.
func New(s *store.Store, rec *store.Recorder, cat *catalog.Catalog, grader engine.Grader, cfg model.TutorConfig) *Handler {
	return &Handler{
		store:    s,
		recorder: rec,
		catalog:  cat,
		sessions: registry.New(),
		grader:   grader,
		config:   cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)

	r.Post("/api/students", h.handleCreateStudent)
	r.Get("/api/students/{studentID}", h.handleGetStudent)

	r.Post("/api/sessions", h.handleStartSession)
	r.Get("/api/sessions/{sessionID}/question", h.handleQuestion)
	r.Post("/api/sessions/{sessionID}/answer", h.handleAnswer)
	r.Post("/api/sessions/{sessionID}/finish", h.handleFinish)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))
		r.Get("/api/analytics/students", h.handleAnalytics)
		r.Get("/api/analytics/students/{studentID}", h.handleStudentReport)
		r.Get("/api/export", h.handleExport)
		r.Get("/api/export.csv", h.handleExportCSV)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func newStudentID() string { return uuid.NewString() }

type createStudentRequest struct {
	Name       string   `json:"name"`
	Topics     []string `json:"topics"`
	Difficulty string   `json:"difficulty"`
	Style      string   `json:"style"`
}

func (h *Handler) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Topics) == 0 {
		writeError(w, http.StatusBadRequest, "at least one preferred topic is required")
		return
	}
	for _, t := range req.Topics {
		if !h.catalog.HasTopic(t) {
			writeError(w, http.StatusBadRequest, "unknown topic: "+t)
			return
		}
	}
	difficulty, err := model.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prefs := model.Preferences{
		Topics:     req.Topics,
		Difficulty: difficulty,
		Style:      model.ParseLearningStyle(req.Style),
	}
	p := model.NewStudentProfile(newStudentID(), req.Name, prefs, h.catalog.Topics())
	if err := h.store.SaveStudent(p); err != nil {
		slog.Error("failed to save student", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetStudent(chi.URLParam(r, "studentID"))
	if err != nil {
		slog.Error("failed to get student", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type startSessionRequest struct {
	StudentID string `json:"student_id"`
	Mode      string `json:"mode"`
}

type startSessionResponse struct {
	SessionID string                 `json:"session_id"`
	Mode      model.CoordinationMode `json:"mode"`
	Welcome   string                 `json:"welcome"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.store.GetStudent(req.StudentID)
	if err != nil {
		slog.Error("failed to get student", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}

	mode, err := model.ParseCoordinationMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := engine.NewSession(engine.Config{
		Student: p,
		Mode:    mode,
		Catalog: h.catalog,
		Grader:  h.grader,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.sessions.Put(sess)
	slog.Info("session started", "session_id", sess.ID, "student_id", p.ID, "mode", mode)

	writeJSON(w, http.StatusCreated, startSessionResponse{
		SessionID: sess.ID,
		Mode:      mode,
		Welcome: appI18n.Td(r.Context(), "SessionWelcome", map[string]any{
			"Name": p.Name,
			"Mode": string(mode),
		}),
	})
}

type questionResponse struct {
	Round      int              `json:"round"`
	Topic      string           `json:"topic"`
	Difficulty model.Difficulty `json:"difficulty"`
	Text       string           `json:"text"`
	Lead       string           `json:"lead"`
}

func (h *Handler) handleQuestion(w http.ResponseWriter, r *http.Request) {
	entry, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	entry.Lock()
	prompt := entry.Session.NextQuestion()
	entry.Unlock()

	text := prompt.Question.Text
	if style := entry.Session.Profile().Preferences.Style; style != "" {
		text = stylePrefix(r, style) + " " + text
	}
	writeJSON(w, http.StatusOK, questionResponse{
		Round:      prompt.Round,
		Topic:      prompt.Question.Topic,
		Difficulty: prompt.Question.Difficulty,
		Text:       text,
		Lead:       prompt.Lead,
	})
}

type answerRequest struct {
	Response string `json:"response"`
}

type answerResponse struct {
	Quit         bool    `json:"quit"`
	Reward       float64 `json:"reward"`
	Feedback     string  `json:"feedback"`
	SampleAnswer string  `json:"sample_answer,omitempty"`
	Round        int     `json:"round"`
	TotalReward  float64 `json:"total_reward"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	entry, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry.Lock()
	result, err := entry.Session.Submit(r.Context(), req.Response)
	rounds := entry.Session.Rounds()
	total := entry.Session.TotalReward()
	entry.Unlock()
	if err != nil {
		slog.Error("failed to evaluate response", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !result.Quit {
		h.recorder.Record(result.Record)
	}

	writeJSON(w, http.StatusOK, answerResponse{
		Quit:         result.Quit,
		Reward:       result.Reward,
		Feedback:     appI18n.T(r.Context(), result.FeedbackID),
		SampleAnswer: result.SampleAnswer,
		Round:        rounds,
		TotalReward:  total,
	})
}

func (h *Handler) handleFinish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	entry, err := h.sessions.Get(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	entry.Lock()
	summary := entry.Session.Summarize()
	profile := entry.Session.Profile()
	entry.Unlock()
	h.sessions.Remove(id)

	if err := h.store.SaveStudent(profile); err != nil {
		slog.Error("failed to save student", "student_id", profile.ID, "error", err)
	}
	h.recorder.Summarize(summary)
	slog.Info("session finished", "session_id", id, "rounds", summary.Rounds,
		"total_reward", summary.TotalReward)

	writeJSON(w, http.StatusOK, summary)
}

func stylePrefix(r *http.Request, style model.LearningStyle) string {
	var id string
	switch style {
	case model.StyleVisual:
		id = "StylePromptVisual"
	case model.StyleAuditory:
		id = "StylePromptAuditory"
	case model.StyleKinesthetic:
		id = "StylePromptKinesthetic"
	default:
		id = "StylePromptReading"
	}
	return appI18n.T(r.Context(), id)
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	slog.Error("session lookup failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
