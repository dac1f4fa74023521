package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/adaptutor/adaptutor/internal/model"
)

// ExportAll builds export-ready results for every student: the profile,
// all session summaries and the full interaction history.
func (s *Store) ExportAll() (*model.ProgressExport, error) {
	students, err := s.ListStudents()
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	bankHash, err := s.GetMetadata("bank_hash")
	if err != nil {
		return nil, fmt.Errorf("get bank hash: %w", err)
	}

	export := &model.ProgressExport{
		ExportedAt: time.Now(),
		BankHash:   bankHash,
	}
	for _, p := range students {
		sums, err := s.ListSummaries(p.ID)
		if err != nil {
			return nil, fmt.Errorf("list summaries for %s: %w", p.ID, err)
		}
		recs, err := s.ListStudentInteractions(p.ID)
		if err != nil {
			return nil, fmt.Errorf("list interactions for %s: %w", p.ID, err)
		}
		export.Students = append(export.Students, model.StudentResults{
			Profile:      *p,
			Sessions:     sums,
			Interactions: recs,
		})
	}
	return export, nil
}

// WriteInteractionsCSV writes every student's interaction history as one
// flat CSV table, one row per answered question.
func (s *Store) WriteInteractionsCSV(w io.Writer) error {
	students, err := s.ListStudents()
	if err != nil {
		return fmt.Errorf("list students: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{
		"student_id", "student_name", "session_id", "round", "at",
		"topic", "difficulty", "question", "response_length",
		"reward", "feedback_id", "lead", "cumulative_reward",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, p := range students {
		recs, err := s.ListStudentInteractions(p.ID)
		if err != nil {
			return fmt.Errorf("list interactions for %s: %w", p.ID, err)
		}
		for _, r := range recs {
			row := []string{
				r.StudentID, p.Name, r.SessionID, strconv.Itoa(r.Round),
				r.At.Format(time.RFC3339),
				r.Topic, string(r.Difficulty), r.QuestionText,
				strconv.Itoa(r.ResponseLength),
				strconv.FormatFloat(r.Reward, 'f', 4, 64),
				r.FeedbackID, r.Lead,
				strconv.FormatFloat(r.CumulativeReward, 'f', 4, 64),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
