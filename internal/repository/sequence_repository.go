package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SequenceRepository owns the per-year registration counters. The increment
// and the fetch are one statement, so concurrent submissions can never be
// handed the same number. Numbers are sparse when a submission fails after
// allocation; they are never reused.
type SequenceRepository struct {
	db *sqlx.DB
}

// NewSequenceRepository constructs the repository.
func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments and returns the counter for the given year, creating the
// row lazily on first use.
func (r *SequenceRepository) Next(ctx context.Context, year int) (int, error) {
	const query = `INSERT INTO registration_sequences (year, last_issued)
        VALUES ($1, 1)
        ON CONFLICT (year)
        DO UPDATE SET last_issued = registration_sequences.last_issued + 1
        RETURNING last_issued`
	var issued int
	if err := r.db.GetContext(ctx, &issued, query, year); err != nil {
		return 0, fmt.Errorf("next sequence for %d: %w", year, err)
	}
	return issued, nil
}

// Current returns the last issued value for a year without consuming one.
// Zero when the year has no row yet.
func (r *SequenceRepository) Current(ctx context.Context, year int) (int, error) {
	const query = `SELECT COALESCE(MAX(last_issued), 0) FROM registration_sequences WHERE year = $1`
	var issued int
	if err := r.db.GetContext(ctx, &issued, query, year); err != nil {
		return 0, fmt.Errorf("current sequence for %d: %w", year, err)
	}
	return issued, nil
}
