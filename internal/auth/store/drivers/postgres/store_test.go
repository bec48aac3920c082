package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewStoreFromDB(db), mock
}

var userRowColumns = []string{"id", "username", "password_hash", "is_admin", "created_at", "updated_at"}

func TestCreateUser_Success(t *testing.T) {
	s, mock := newStoreWithMock(t)

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*username,\s*password_hash,\s*is_admin\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)$`
	mock.ExpectExec(q).
		WithArgs("u-1", "alice", "hash", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Users().CreateUser(context.Background(), domain.User{ID: "u-1", Username: "alice", PasswordHash: "hash", IsAdmin: true})
	require.NoError(t, err)
}

func TestCreateUser_Duplicate(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	err := s.Users().CreateUser(context.Background(), domain.User{ID: "u-2", Username: "alice", PasswordHash: "hash"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestCreateUser_DBError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	err := s.Users().CreateUser(context.Background(), domain.User{ID: "u-3", Username: "bob", PasswordHash: "hash"})
	require.Error(t, err)
	require.NotErrorIs(t, err, store.ErrAlreadyExists)
	require.Contains(t, err.Error(), "db down")
}

func TestGetUserByUsername(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Now().UTC()

	q := `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*is_admin,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`
	mock.ExpectQuery(q).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("u-1", "alice", "hash", false, now, now))
	mock.ExpectQuery(q).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	u, err := s.Users().GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "u-1", u.ID)
	require.False(t, u.IsAdmin)

	_, err = s.Users().GetUserByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	s, mock := newStoreWithMock(t)

	q := `^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Users().DeleteUser(context.Background(), "u-1"))
	require.ErrorIs(t, s.Users().DeleteUser(context.Background(), "u-1"), store.ErrNotFound)
}

func TestConsumeRefreshToken(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Now()

	q := `(?s)^UPDATE\s+refresh_tokens\s+SET\s+revoked\s*=\s*TRUE.*WHERE\s+token_hash\s*=\s*\$1\s+AND\s+NOT\s+revoked\s+AND\s+\(expires_at\s+IS\s+NULL\s+OR\s+expires_at\s*>\s*\$2\)$`
	mock.ExpectExec(q).WithArgs("fp", now.UTC()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("fp", now.UTC()).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.RefreshTokens().ConsumeRefreshToken(context.Background(), "fp", now))
	require.ErrorIs(t, s.RefreshTokens().ConsumeRefreshToken(context.Background(), "fp", now), store.ErrNotFound)
}

func TestGetRefreshTokenByHash_NullExpiry(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM\s+refresh_tokens\s+WHERE\s+token_hash\s*=\s*\$1`).
		WithArgs("fp").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "revoked", "created_at", "updated_at"}).
			AddRow("rt-1", "u-1", "fp", nil, false, now, now))

	rt, err := s.RefreshTokens().GetRefreshTokenByHash(context.Background(), "fp")
	require.NoError(t, err)
	require.True(t, rt.ExpiresAt.IsZero())
	require.True(t, rt.Active(now))
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	s, mock := newStoreWithMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`^UPDATE\s+refresh_tokens`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^INSERT\s+INTO\s+refresh_tokens`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().ConsumeRefreshToken(ctx, "old", time.Now()); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{ID: "rt-2", UserID: "u-1", TokenHash: "new"})
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`^UPDATE\s+refresh_tokens`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.RefreshTokens().ConsumeRefreshToken(ctx, "old", time.Now())
	})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteExpiredRefreshTokens(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+revoked`).WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.RefreshTokens().DeleteExpiredRefreshTokens(context.Background(), time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 4, n)
}
