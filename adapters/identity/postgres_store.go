package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/layer-3/quill/core"
	"github.com/layer-3/quill/internal/dbx"
)

// uniqueViolation is the SQLSTATE of a duplicate key
const uniqueViolation = "23505"

// PostgresStore reads identities from the users table
type PostgresStore struct {
	db dbx.DBTX
}

// NewPostgresStore constructs a store bound to the given DBTX
func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new identity with a bcrypt hash of password
func (s *PostgresStore) Create(ctx context.Context, email, password string, active bool) (*core.Identity, error) {
	hash, err := core.HashPassword(password)
	if err != nil {
		return nil, err
	}

	identity := &core.Identity{
		ID:           uuid.NewString(),
		Email:        core.NormalizeIdentifier(email),
		PasswordHash: hash,
		IsActive:     active,
	}

	query := `
		INSERT INTO users (id, email, password_hash, is_active)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, identity.ID, identity.Email, identity.PasswordHash, identity.IsActive); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, core.ErrIdentityExists
		}
		return nil, fmt.Errorf("%w: db error: %v", core.ErrStoreUnavailable, err)
	}

	return identity, nil
}

// FindByIdentifier looks an identity up by email, ignoring case
func (s *PostgresStore) FindByIdentifier(ctx context.Context, identifier string) (*core.Identity, error) {
	query := `
		SELECT id, email, password_hash, is_active
		FROM users
		WHERE lower(email) = $1
	`
	return s.findOne(ctx, query, core.NormalizeIdentifier(identifier))
}

// FindByID looks an identity up by subject id
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*core.Identity, error) {
	query := `
		SELECT id, email, password_hash, is_active
		FROM users
		WHERE id = $1
	`
	return s.findOne(ctx, query, id)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg string) (*core.Identity, error) {
	identity := &core.Identity{}
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&identity.ID, &identity.Email, &identity.PasswordHash, &identity.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("%w: db error: %v", core.ErrStoreUnavailable, err)
	}
	return identity, nil
}
