package store

import (
	"testing"
	"time"

	"github.com/adaptutor/adaptutor/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestProfile(t *testing.T, id, name string) *model.StudentProfile {
	t.Helper()
	prefs := model.Preferences{
		Topics:     []string{"mathematics", "science"},
		Difficulty: model.DifficultyMedium,
		Style:      model.StyleVisual,
	}
	return model.NewStudentProfile(id, name, prefs, []string{"mathematics", "science", "programming"})
}

func TestStudentRoundtrip(t *testing.T) {
	s := newTestStore(t)

	// Missing student is nil, not an error.
	p, err := s.GetStudent("nope")
	if err != nil {
		t.Fatalf("GetStudent: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil for missing student, got %+v", p)
	}

	orig := newTestProfile(t, "student-1", "Alice")
	orig.TopicPerformance["mathematics"] = 0.73
	orig.ImprovementAreas = []string{"programming"}
	orig.TotalQuestionsAnswered = 12
	orig.TotalStudyTime = 90 * time.Second
	if err := s.SaveStudent(orig); err != nil {
		t.Fatalf("SaveStudent: %v", err)
	}

	got, err := s.GetStudent("student-1")
	if err != nil {
		t.Fatalf("GetStudent: %v", err)
	}
	if got == nil {
		t.Fatalf("student not found after save")
	}
	if got.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", got.Name)
	}
	if got.Preferences.Style != model.StyleVisual {
		t.Errorf("Style = %q, want visual", got.Preferences.Style)
	}
	if got.TopicPerformance["mathematics"] != 0.73 {
		t.Errorf("TopicPerformance[mathematics] = %v, want 0.73", got.TopicPerformance["mathematics"])
	}
	if got.DifficultyPerformance[model.DifficultyHard] != 0.4 {
		t.Errorf("DifficultyPerformance[hard] = %v, want 0.4", got.DifficultyPerformance[model.DifficultyHard])
	}
	if len(got.ImprovementAreas) != 1 || got.ImprovementAreas[0] != "programming" {
		t.Errorf("ImprovementAreas = %v, want [programming]", got.ImprovementAreas)
	}
	if got.TotalStudyTime != 90*time.Second {
		t.Errorf("TotalStudyTime = %v, want 90s", got.TotalStudyTime)
	}

	// Second save replaces in place.
	got.OverallPerformance = 0.8
	got.SessionCount = 3
	if err := s.SaveStudent(got); err != nil {
		t.Fatalf("SaveStudent update: %v", err)
	}
	updated, err := s.GetStudent("student-1")
	if err != nil {
		t.Fatalf("GetStudent: %v", err)
	}
	if updated.OverallPerformance != 0.8 || updated.SessionCount != 3 {
		t.Errorf("update lost: %+v", updated)
	}

	count, err := s.StudentCount()
	if err != nil {
		t.Fatalf("StudentCount: %v", err)
	}
	if count != 1 {
		t.Errorf("StudentCount = %d, want 1", count)
	}
}

func testRecord(sessionID, studentID string, round int) model.InteractionRecord {
	return model.InteractionRecord{
		SessionID:        sessionID,
		StudentID:        studentID,
		At:               time.Now(),
		Round:            round,
		QuestionText:     "What is a derivative?",
		Topic:            "mathematics",
		Difficulty:       model.DifficultyMedium,
		Response:         "the instantaneous rate of change",
		ResponseLength:   32,
		Reward:           0.66,
		FeedbackID:       "FeedbackGoodStart",
		Lead:             "shared",
		CumulativeReward: 0.66 * float64(round),
	}
}

func TestInteractions(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveStudent(newTestProfile(t, "student-1", "Alice")); err != nil {
		t.Fatalf("SaveStudent: %v", err)
	}

	for round := 1; round <= 3; round++ {
		if err := s.InsertInteraction(testRecord("sess-1", "student-1", round)); err != nil {
			t.Fatalf("InsertInteraction: %v", err)
		}
	}
	if err := s.InsertInteraction(testRecord("sess-2", "student-1", 1)); err != nil {
		t.Fatalf("InsertInteraction: %v", err)
	}

	recs, err := s.ListInteractions("sess-1")
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d interactions, want 3", len(recs))
	}
	for i, r := range recs {
		if r.Round != i+1 {
			t.Errorf("record %d round = %d, want %d", i, r.Round, i+1)
		}
	}
	if recs[0].Reward != 0.66 || recs[0].Topic != "mathematics" {
		t.Errorf("record fields lost: %+v", recs[0])
	}

	all, err := s.ListStudentInteractions("student-1")
	if err != nil {
		t.Fatalf("ListStudentInteractions: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("got %d student interactions, want 4", len(all))
	}
}

func TestSummaries(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveStudent(newTestProfile(t, "student-1", "Alice")); err != nil {
		t.Fatalf("SaveStudent: %v", err)
	}

	sum := model.SessionSummary{
		SessionID:        "sess-1",
		StudentID:        "student-1",
		Mode:             model.ModeHierarchical,
		StartedAt:        time.Now().Add(-time.Minute),
		EndedAt:          time.Now(),
		Rounds:           5,
		TotalReward:      2.5,
		AverageReward:    0.5,
		TopicsCovered:    []string{"mathematics", "science"},
		EngagementScore:  0.6,
		LearningVelocity: 0.2,
		ImprovementTrend: "stable",
		EngagementLevel:  "medium",
	}
	if err := s.InsertSummary(sum); err != nil {
		t.Fatalf("InsertSummary: %v", err)
	}

	sums, err := s.ListSummaries("student-1")
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("got %d summaries, want 1", len(sums))
	}
	got := sums[0]
	if got.Mode != model.ModeHierarchical || got.Rounds != 5 {
		t.Errorf("summary fields lost: %+v", got)
	}
	if len(got.TopicsCovered) != 2 || got.TopicsCovered[0] != "mathematics" {
		t.Errorf("TopicsCovered = %v", got.TopicsCovered)
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetMetadata("bank_hash")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if v != "" {
		t.Errorf("missing key = %q, want empty", v)
	}

	if err := s.SetMetadata("bank_hash", "abc123"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := s.SetMetadata("bank_hash", "def456"); err != nil {
		t.Fatalf("SetMetadata upsert: %v", err)
	}

	v, err = s.GetMetadata("bank_hash")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if v != "def456" {
		t.Errorf("value = %q, want def456", v)
	}
}

func TestUsersAndAuthSessions(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateUser(model.User{
		Username:     "teacher1",
		DisplayName:  "Ms. Frizzle",
		PasswordHash: "hash",
		Role:         model.UserRoleTeacher,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByUsername("teacher1")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id || u.Role != model.UserRoleTeacher {
		t.Errorf("user = %+v", u)
	}

	token, err := s.CreateAuthSession(id)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != id {
		t.Errorf("auth session = %+v", sess)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Errorf("auth session survived delete")
	}
}

func TestExportAll(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveStudent(newTestProfile(t, "student-1", "Alice")); err != nil {
		t.Fatalf("SaveStudent: %v", err)
	}
	if err := s.InsertInteraction(testRecord("sess-1", "student-1", 1)); err != nil {
		t.Fatalf("InsertInteraction: %v", err)
	}
	if err := s.SetMetadata("bank_hash", "abc123"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}

	export, err := s.ExportAll()
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if export.BankHash != "abc123" {
		t.Errorf("BankHash = %q, want abc123", export.BankHash)
	}
	if len(export.Students) != 1 {
		t.Fatalf("got %d students, want 1", len(export.Students))
	}
	sr := export.Students[0]
	if sr.Profile.Name != "Alice" {
		t.Errorf("profile name = %q", sr.Profile.Name)
	}
	if len(sr.Interactions) != 1 {
		t.Errorf("got %d interactions, want 1", len(sr.Interactions))
	}
}

func TestRecorderPersists(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveStudent(newTestProfile(t, "student-1", "Alice")); err != nil {
		t.Fatalf("SaveStudent: %v", err)
	}

	rec := NewRecorder(s)
	rec.Record(testRecord("sess-1", "student-1", 1))
	rec.Summarize(model.SessionSummary{
		SessionID:     "sess-1",
		StudentID:     "student-1",
		Mode:          model.ModeCollaborative,
		StartedAt:     time.Now(),
		EndedAt:       time.Now(),
		Rounds:        1,
		TopicsCovered: []string{"mathematics"},
	})
	rec.Close()

	recs, err := s.ListInteractions("sess-1")
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("got %d interactions after Close, want 1", len(recs))
	}
	sums, err := s.ListSummaries("student-1")
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	if len(sums) != 1 {
		t.Errorf("got %d summaries after Close, want 1", len(sums))
	}
}
