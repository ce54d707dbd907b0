package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/layer-3/quill/core"
	"github.com/layer-3/quill/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	_ ports.IdentityStore = (*MemoryStore)(nil)
	_ ports.IdentityStore = (*PostgresStore)(nil)
)

func TestMemoryStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.Create(ctx, "  Alice@Example.com ", "correct-horse", true)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", created.Email)
	assert.True(t, created.CheckPassword("correct-horse"))
	assert.False(t, created.CheckPassword("wrong"))

	found, err := s.FindByIdentifier(ctx, "ALICE@example.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	byID, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)
}

func TestMemoryStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.FindByIdentifier(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, core.ErrIdentityNotFound)

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrIdentityNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Put(&core.Identity{ID: "7", Email: "bob@example.com", IsActive: true})

	found, err := s.FindByID(ctx, "7")
	require.NoError(t, err)
	found.IsActive = false

	again, err := s.FindByID(ctx, "7")
	require.NoError(t, err)
	assert.True(t, again.IsActive)
}

func TestMemoryStore_PutReplacesEmailIndex(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Put(&core.Identity{ID: "7", Email: "old@example.com"})
	s.Put(&core.Identity{ID: "7", Email: "new@example.com"})

	_, err := s.FindByIdentifier(ctx, "old@example.com")
	assert.ErrorIs(t, err, core.ErrIdentityNotFound)

	_, err = s.FindByIdentifier(ctx, "new@example.com")
	assert.NoError(t, err)
}

const selectUser = `(?s)^\s*SELECT\s+id,\s*email,\s*password_hash,\s*is_active\s+FROM\s+users\s+WHERE\s+`

func TestPostgresStore_FindByIdentifier(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("pw-123456"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery(selectUser+`lower\(email\)\s*=\s*\$1\s*$`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "is_active"}).
			AddRow("u1", "alice@example.com", string(hash), true))

	identity, err := NewPostgresStore(db).FindByIdentifier(context.Background(), " Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.ID)
	assert.True(t, identity.IsActive)
	assert.True(t, identity.CheckPassword("pw-123456"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(selectUser + `id\s*=\s*\$1\s*$`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "is_active"}))

	_, err = NewPostgresStore(db).FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrIdentityNotFound)
}

func TestPostgresStore_DBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(selectUser).
		WithArgs("u1").
		WillReturnError(errors.New("db down"))

	_, err = NewPostgresStore(db).FindByID(context.Background(), "u1")
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestPostgresStore_Create(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+users\b`).
		WithArgs(sqlmock.AnyArg(), "carol@example.com", sqlmock.AnyArg(), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	identity, err := NewPostgresStore(db).Create(context.Background(), "Carol@Example.com", "pw-123456", true)
	require.NoError(t, err)
	assert.NotEmpty(t, identity.ID)
	assert.True(t, identity.CheckPassword("pw-123456"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStore_CreateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first, err := s.Create(ctx, "dave@example.com", "pw-123456", true)
	require.NoError(t, err)

	_, err = s.Create(ctx, " DAVE@example.com", "other-password", true)
	assert.ErrorIs(t, err, core.ErrIdentityExists)

	found, err := s.FindByIdentifier(ctx, "dave@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.True(t, found.CheckPassword("pw-123456"))
}

func TestPostgresStore_CreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+users\b`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_lower_idx"})

	_, err = NewPostgresStore(db).Create(context.Background(), "carol@example.com", "pw-123456", true)
	assert.ErrorIs(t, err, core.ErrIdentityExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateDBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+users\b`).
		WillReturnError(errors.New("connection reset"))

	_, err = NewPostgresStore(db).Create(context.Background(), "carol@example.com", "pw-123456", true)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, core.ErrIdentityExists)
}
