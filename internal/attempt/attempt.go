// Package attempt persists finished dictation attempts so learners and
// teachers can look back at progress.
//
// Two backends ship with the package: [FileStore] appends JSON lines to a
// local file and [github.com/MrWong99/diktat/internal/attempt/postgres.Store]
// writes to a PostgreSQL table.
package attempt

import (
	"context"
	"time"

	"github.com/MrWong99/diktat/internal/feedback"
)

// Record is a single attempt at one sentence.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	LessonID   string    `json:"lesson_id,omitempty"`
	Sentence   int       `json:"sentence"`
	Reference  string    `json:"reference"`
	Transcript string    `json:"transcript"`
	Cost       int       `json:"cost"`
	Correct    int       `json:"correct"`
	Added      int       `json:"added"`
	Removed    int       `json:"removed"`
	Accuracy   float64   `json:"accuracy"`
}

// NewRecord fills a Record from a reference sentence, the final transcript
// and the score the learner got. The timestamp is the current UTC time.
func NewRecord(lessonID string, sentence int, reference, transcript string, s feedback.Score) Record {
	return Record{
		Timestamp:  time.Now().UTC(),
		LessonID:   lessonID,
		Sentence:   sentence,
		Reference:  reference,
		Transcript: transcript,
		Cost:       s.Cost,
		Correct:    s.Correct,
		Added:      s.Added,
		Removed:    s.Removed,
		Accuracy:   s.Accuracy,
	}
}

// Store persists attempt records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save appends r.
	Save(ctx context.Context, r Record) error

	// Recent returns up to n of the newest records, oldest first. n <= 0
	// returns all records.
	Recent(ctx context.Context, n int) ([]Record, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}
