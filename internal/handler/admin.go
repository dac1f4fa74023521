package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adaptutor/adaptutor/internal/model"
)

// handleAnalytics returns the evaluation snapshot for every student.
func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListStudents()
	if err != nil {
		slog.Error("failed to list students", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	evals := make([]model.StudentEvaluation, 0, len(students))
	for _, p := range students {
		evals = append(evals, model.Evaluate(p))
	}
	writeJSON(w, http.StatusOK, evals)
}

// handleStudentReport returns one student's evaluation plus session history.
func (h *Handler) handleStudentReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "studentID")
	p, err := h.store.GetStudent(id)
	if err != nil {
		slog.Error("failed to get student", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}

	sums, err := h.store.ListSummaries(id)
	if err != nil {
		slog.Error("failed to list summaries", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"evaluation": model.Evaluate(p),
		"sessions":   sums,
	})
}

// handleExport returns the full JSON export of all student results.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := h.store.ExportAll()
	if err != nil {
		slog.Error("failed to export results", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, export)
}

// handleExportCSV streams the flat interaction table as CSV.
func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="interactions.csv"`)
	if err := h.store.WriteInteractionsCSV(w); err != nil {
		slog.Error("failed to write CSV export", "error", err)
	}
}
