package store

import (
	"log/slog"
	"sync"

	"github.com/adaptutor/adaptutor/internal/model"
)

const recorderBuffer = 256

// Recorder persists interaction records and session summaries off the
// round's critical path. Writes are fire-and-forget: a failed or dropped
// write is logged and never surfaces to the tutoring loop.
type Recorder struct {
	store *Store

	records   chan model.InteractionRecord
	summaries chan model.SessionSummary
	done      chan struct{}
	once      sync.Once
}

// NewRecorder starts the background writer.
func NewRecorder(s *Store) *Recorder {
	r := &Recorder{
		store:     s,
		records:   make(chan model.InteractionRecord, recorderBuffer),
		summaries: make(chan model.SessionSummary, recorderBuffer),
		done:      make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues an interaction record. Never blocks; drops with a
// warning if the buffer is full.
func (r *Recorder) Record(rec model.InteractionRecord) {
	select {
	case r.records <- rec:
	default:
		slog.Warn("recorder buffer full, dropping interaction",
			"session_id", rec.SessionID, "round", rec.Round)
	}
}

// Summarize queues a session summary. Never blocks; drops with a
// warning if the buffer is full.
func (r *Recorder) Summarize(sum model.SessionSummary) {
	select {
	case r.summaries <- sum:
	default:
		slog.Warn("recorder buffer full, dropping summary", "session_id", sum.SessionID)
	}
}

// Close drains the queues and stops the writer. Safe to call more than
// once.
func (r *Recorder) Close() {
	r.once.Do(func() {
		close(r.records)
		close(r.summaries)
		<-r.done
	})
}

func (r *Recorder) run() {
	defer close(r.done)
	records, summaries := r.records, r.summaries
	for records != nil || summaries != nil {
		select {
		case rec, ok := <-records:
			if !ok {
				records = nil
				continue
			}
			if err := r.store.InsertInteraction(rec); err != nil {
				slog.Error("failed to persist interaction",
					"session_id", rec.SessionID, "round", rec.Round, "error", err)
			}
		case sum, ok := <-summaries:
			if !ok {
				summaries = nil
				continue
			}
			if err := r.store.InsertSummary(sum); err != nil {
				slog.Error("failed to persist summary",
					"session_id", sum.SessionID, "error", err)
			}
		}
	}
}
