package store

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/quill/internal/dbx"
)

// PostgresStore keeps revoked token ids in the revoked_tokens table
type PostgresStore struct {
	db dbx.DBTX
}

// NewPostgresStore constructs a store bound to the given DBTX
func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Add inserts the id unless it is already present
func (s *PostgresStore) Add(ctx context.Context, id string, notValidAfter time.Time) (bool, error) {
	query := `
		INSERT INTO revoked_tokens (jti, not_valid_after)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, id, notValidAfter.UTC())
	if err != nil {
		return false, unavailable(fmt.Errorf("db error: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable(fmt.Errorf("db error: %w", err))
	}

	return n == 1, nil
}

// Contains checks if a token id is revoked
func (s *PostgresStore) Contains(ctx context.Context, id string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, unavailable(fmt.Errorf("db error: %w", err))
	}

	return exists, nil
}

// Sweep deletes records that expired before now
func (s *PostgresStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	query := `
		DELETE FROM revoked_tokens
		WHERE not_valid_after < $1
	`
	res, err := s.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, unavailable(fmt.Errorf("db error: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(fmt.Errorf("db error: %w", err))
	}

	return int(n), nil
}
