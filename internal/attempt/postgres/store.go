package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/diktat/internal/attempt"
)

// Compile-time interface check.
var _ attempt.Store = (*Store)(nil)

// Store persists attempts in the attempts table. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a connection pool to the database at dsn, pings it and
// runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Save implements [attempt.Store].
func (s *Store) Save(ctx context.Context, r attempt.Record) error {
	const q = `
		INSERT INTO attempts
		    (created_at, lesson_id, sentence, reference, transcript, cost, correct, added, removed, accuracy)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, q,
		r.Timestamp,
		r.LessonID,
		r.Sentence,
		r.Reference,
		r.Transcript,
		r.Cost,
		r.Correct,
		r.Added,
		r.Removed,
		r.Accuracy,
	)
	if err != nil {
		return fmt.Errorf("postgres store: save: %w", err)
	}
	return nil
}

// Recent implements [attempt.Store]. The newest n rows are selected and
// returned in chronological order.
func (s *Store) Recent(ctx context.Context, n int) ([]attempt.Record, error) {
	q := `
		SELECT created_at, lesson_id, sentence, reference, transcript, cost, correct, added, removed, accuracy
		FROM   attempts
		ORDER  BY created_at DESC, id DESC`
	var args []any
	if n > 0 {
		q += "\nLIMIT $1"
		args = append(args, n)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: recent: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (attempt.Record, error) {
		var r attempt.Record
		err := row.Scan(
			&r.Timestamp,
			&r.LessonID,
			&r.Sentence,
			&r.Reference,
			&r.Transcript,
			&r.Cost,
			&r.Correct,
			&r.Added,
			&r.Removed,
			&r.Accuracy,
		)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan rows: %w", err)
	}

	out := make([]attempt.Record, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out, nil
}

// Ping implements [attempt.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
