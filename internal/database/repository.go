package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a subject has no stored baseline
var ErrNotFound = errors.New("baseline not found")

// Repository handles baseline persistence
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// GetBaseline loads the baseline of subjectID
func (r *Repository) GetBaseline(ctx context.Context, subjectID string) (*Baseline, error) {
	stmt, err := r.db.GetPreparedStatement(stmtGetBaseline)
	if err != nil {
		return nil, err
	}

	var (
		b        Baseline
		features string
	)
	err = stmt.QueryRowContext(ctx, subjectID).Scan(&b.ID, &b.SubjectID, &features, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query baseline: %w", err)
	}

	if err := json.Unmarshal([]byte(features), &b.Features); err != nil {
		return nil, fmt.Errorf("failed to decode baseline features: %w", err)
	}

	return &b, nil
}

// UpsertBaseline stores b, replacing any previous baseline of the same subject.
// The stored record keeps its original ID and creation time.
func (r *Repository) UpsertBaseline(ctx context.Context, b *Baseline) (*Baseline, error) {
	features, err := json.Marshal(b.Features)
	if err != nil {
		return nil, fmt.Errorf("failed to encode baseline features: %w", err)
	}

	stmt, err := r.db.GetPreparedStatement(stmtUpsertBaseline)
	if err != nil {
		return nil, err
	}

	if _, err := stmt.ExecContext(ctx, b.ID, b.SubjectID, string(features), b.CreatedAt, b.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to store baseline: %w", err)
	}

	return r.GetBaseline(ctx, b.SubjectID)
}

// DeleteBaseline removes the baseline of subjectID
func (r *Repository) DeleteBaseline(ctx context.Context, subjectID string) error {
	stmt, err := r.db.GetPreparedStatement(stmtDeleteBaseline)
	if err != nil {
		return err
	}

	res, err := stmt.ExecContext(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("failed to delete baseline: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete baseline: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// PurgeOlderThan deletes baselines not updated since cutoff
func (r *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	stmt, err := r.db.GetPreparedStatement(stmtPurgeBaselines)
	if err != nil {
		return 0, err
	}

	res, err := stmt.ExecContext(ctx, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge baselines: %w", err)
	}

	return res.RowsAffected()
}

// CountBaselines returns the number of stored baselines
func (r *Repository) CountBaselines(ctx context.Context) (int, error) {
	stmt, err := r.db.GetPreparedStatement(stmtCountBaselines)
	if err != nil {
		return 0, err
	}

	var n int
	if err := stmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count baselines: %w", err)
	}

	return n, nil
}
