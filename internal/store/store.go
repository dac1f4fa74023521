package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adaptutor/adaptutor/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		preferences TEXT NOT NULL DEFAULT '{}',
		overall_performance REAL NOT NULL DEFAULT 0.5,
		topic_performance TEXT NOT NULL DEFAULT '{}',
		difficulty_performance TEXT NOT NULL DEFAULT '{}',
		total_questions_answered INTEGER NOT NULL DEFAULT 0,
		correct_responses INTEGER NOT NULL DEFAULT 0,
		detailed_responses INTEGER NOT NULL DEFAULT 0,
		session_count INTEGER NOT NULL DEFAULT 0,
		learning_velocity REAL NOT NULL DEFAULT 0,
		engagement_score REAL NOT NULL DEFAULT 0.5,
		strength_areas TEXT NOT NULL DEFAULT '[]',
		improvement_areas TEXT NOT NULL DEFAULT '[]',
		total_study_seconds INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		at DATETIME NOT NULL,
		round INTEGER NOT NULL,
		question_text TEXT NOT NULL,
		topic TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		response TEXT NOT NULL,
		response_length INTEGER NOT NULL,
		reward REAL NOT NULL,
		feedback_id TEXT NOT NULL,
		lead TEXT NOT NULL,
		cumulative_reward REAL NOT NULL,
		FOREIGN KEY (student_id) REFERENCES students(id)
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id);
	CREATE INDEX IF NOT EXISTS idx_interactions_student ON interactions(student_id);

	CREATE TABLE IF NOT EXISTS session_summaries (
		session_id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL,
		rounds INTEGER NOT NULL,
		total_reward REAL NOT NULL,
		average_reward REAL NOT NULL,
		topics_covered TEXT NOT NULL DEFAULT '[]',
		engagement_score REAL NOT NULL,
		learning_velocity REAL NOT NULL,
		improvement_trend TEXT NOT NULL,
		engagement_level TEXT NOT NULL,
		FOREIGN KEY (student_id) REFERENCES students(id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS bank_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveStudent inserts or fully replaces a student profile. Map and slice
// fields go into JSON columns; scalar fields stay queryable.
func (s *Store) SaveStudent(p *model.StudentProfile) error {
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	topicPerf, err := json.Marshal(p.TopicPerformance)
	if err != nil {
		return fmt.Errorf("marshal topic performance: %w", err)
	}
	diffPerf, err := json.Marshal(p.DifficultyPerformance)
	if err != nil {
		return fmt.Errorf("marshal difficulty performance: %w", err)
	}
	strengths, err := json.Marshal(p.StrengthAreas)
	if err != nil {
		return fmt.Errorf("marshal strength areas: %w", err)
	}
	improvements, err := json.Marshal(p.ImprovementAreas)
	if err != nil {
		return fmt.Errorf("marshal improvement areas: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO students (
			id, name, created_at, preferences,
			overall_performance, topic_performance, difficulty_performance,
			total_questions_answered, correct_responses, detailed_responses, session_count,
			learning_velocity, engagement_score, strength_areas, improvement_areas,
			total_study_seconds
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			preferences = excluded.preferences,
			overall_performance = excluded.overall_performance,
			topic_performance = excluded.topic_performance,
			difficulty_performance = excluded.difficulty_performance,
			total_questions_answered = excluded.total_questions_answered,
			correct_responses = excluded.correct_responses,
			detailed_responses = excluded.detailed_responses,
			session_count = excluded.session_count,
			learning_velocity = excluded.learning_velocity,
			engagement_score = excluded.engagement_score,
			strength_areas = excluded.strength_areas,
			improvement_areas = excluded.improvement_areas,
			total_study_seconds = excluded.total_study_seconds`,
		p.ID, p.Name, p.CreatedAt, string(prefs),
		p.OverallPerformance, string(topicPerf), string(diffPerf),
		p.TotalQuestionsAnswered, p.CorrectResponses, p.DetailedResponses, p.SessionCount,
		p.LearningVelocity, p.EngagementScore, string(strengths), string(improvements),
		int64(p.TotalStudyTime/time.Second),
	)
	return err
}

// GetStudent returns a student profile by ID, or nil if not found.
func (s *Store) GetStudent(id string) (*model.StudentProfile, error) {
	row := s.db.QueryRow(
		`SELECT id, name, created_at, preferences,
			overall_performance, topic_performance, difficulty_performance,
			total_questions_answered, correct_responses, detailed_responses, session_count,
			learning_velocity, engagement_score, strength_areas, improvement_areas,
			total_study_seconds
		 FROM students WHERE id = ?`, id,
	)
	p, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListStudents returns all student profiles ordered by creation time.
func (s *Store) ListStudents() ([]*model.StudentProfile, error) {
	rows, err := s.db.Query(
		`SELECT id, name, created_at, preferences,
			overall_performance, topic_performance, difficulty_performance,
			total_questions_answered, correct_responses, detailed_responses, session_count,
			learning_velocity, engagement_score, strength_areas, improvement_areas,
			total_study_seconds
		 FROM students ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []*model.StudentProfile
	for rows.Next() {
		p, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, p)
	}
	return students, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*model.StudentProfile, error) {
	var p model.StudentProfile
	var prefs, topicPerf, diffPerf, strengths, improvements string
	var studySeconds int64
	err := row.Scan(
		&p.ID, &p.Name, &p.CreatedAt, &prefs,
		&p.OverallPerformance, &topicPerf, &diffPerf,
		&p.TotalQuestionsAnswered, &p.CorrectResponses, &p.DetailedResponses, &p.SessionCount,
		&p.LearningVelocity, &p.EngagementScore, &strengths, &improvements,
		&studySeconds,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(prefs), &p.Preferences); err != nil {
		return nil, fmt.Errorf("unmarshal preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(topicPerf), &p.TopicPerformance); err != nil {
		return nil, fmt.Errorf("unmarshal topic performance: %w", err)
	}
	if err := json.Unmarshal([]byte(diffPerf), &p.DifficultyPerformance); err != nil {
		return nil, fmt.Errorf("unmarshal difficulty performance: %w", err)
	}
	if err := json.Unmarshal([]byte(strengths), &p.StrengthAreas); err != nil {
		return nil, fmt.Errorf("unmarshal strength areas: %w", err)
	}
	if err := json.Unmarshal([]byte(improvements), &p.ImprovementAreas); err != nil {
		return nil, fmt.Errorf("unmarshal improvement areas: %w", err)
	}
	p.TotalStudyTime = time.Duration(studySeconds) * time.Second
	return &p, nil
}

// InsertInteraction appends one interaction record.
func (s *Store) InsertInteraction(rec model.InteractionRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO interactions (
			session_id, student_id, at, round, question_text, topic, difficulty,
			response, response_length, reward, feedback_id, lead, cumulative_reward
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.StudentID, rec.At, rec.Round, rec.QuestionText, rec.Topic, rec.Difficulty,
		rec.Response, rec.ResponseLength, rec.Reward, rec.FeedbackID, rec.Lead, rec.CumulativeReward,
	)
	return err
}

// ListInteractions returns all interactions for a session in round order.
func (s *Store) ListInteractions(sessionID string) ([]model.InteractionRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, student_id, at, round, question_text, topic, difficulty,
			response, response_length, reward, feedback_id, lead, cumulative_reward
		 FROM interactions WHERE session_id = ? ORDER BY round`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// ListStudentInteractions returns every interaction a student has made,
// oldest first.
func (s *Store) ListStudentInteractions(studentID string) ([]model.InteractionRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, student_id, at, round, question_text, topic, difficulty,
			response, response_length, reward, feedback_id, lead, cumulative_reward
		 FROM interactions WHERE student_id = ? ORDER BY at, round`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInteractions(rows)
}

func scanInteractions(rows *sql.Rows) ([]model.InteractionRecord, error) {
	var recs []model.InteractionRecord
	for rows.Next() {
		var r model.InteractionRecord
		if err := rows.Scan(
			&r.SessionID, &r.StudentID, &r.At, &r.Round, &r.QuestionText, &r.Topic, &r.Difficulty,
			&r.Response, &r.ResponseLength, &r.Reward, &r.FeedbackID, &r.Lead, &r.CumulativeReward,
		); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// InsertSummary stores a finished session's summary.
func (s *Store) InsertSummary(sum model.SessionSummary) error {
	topics, err := json.Marshal(sum.TopicsCovered)
	if err != nil {
		return fmt.Errorf("marshal topics covered: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO session_summaries (
			session_id, student_id, mode, started_at, ended_at, rounds,
			total_reward, average_reward, topics_covered,
			engagement_score, learning_velocity, improvement_trend, engagement_level
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.SessionID, sum.StudentID, sum.Mode, sum.StartedAt, sum.EndedAt, sum.Rounds,
		sum.TotalReward, sum.AverageReward, string(topics),
		sum.EngagementScore, sum.LearningVelocity, sum.ImprovementTrend, sum.EngagementLevel,
	)
	return err
}

// ListSummaries returns a student's session summaries, oldest first.
func (s *Store) ListSummaries(studentID string) ([]model.SessionSummary, error) {
	rows, err := s.db.Query(
		`SELECT session_id, student_id, mode, started_at, ended_at, rounds,
			total_reward, average_reward, topics_covered,
			engagement_score, learning_velocity, improvement_trend, engagement_level
		 FROM session_summaries WHERE student_id = ? ORDER BY started_at`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// ListAllSummaries returns every session summary, oldest first.
func (s *Store) ListAllSummaries() ([]model.SessionSummary, error) {
	rows, err := s.db.Query(
		`SELECT session_id, student_id, mode, started_at, ended_at, rounds,
			total_reward, average_reward, topics_covered,
			engagement_score, learning_velocity, improvement_trend, engagement_level
		 FROM session_summaries ORDER BY started_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func scanSummaries(rows *sql.Rows) ([]model.SessionSummary, error) {
	var sums []model.SessionSummary
	for rows.Next() {
		var sum model.SessionSummary
		var topics string
		if err := rows.Scan(
			&sum.SessionID, &sum.StudentID, &sum.Mode, &sum.StartedAt, &sum.EndedAt, &sum.Rounds,
			&sum.TotalReward, &sum.AverageReward, &topics,
			&sum.EngagementScore, &sum.LearningVelocity, &sum.ImprovementTrend, &sum.EngagementLevel,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(topics), &sum.TopicsCovered); err != nil {
			return nil, fmt.Errorf("unmarshal topics covered: %w", err)
		}
		sums = append(sums, sum)
	}
	return sums, rows.Err()
}

// StudentCount returns the number of student profiles.
func (s *Store) StudentCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM students`).Scan(&count)
	return count, err
}
