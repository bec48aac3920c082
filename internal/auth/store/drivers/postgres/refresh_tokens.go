package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	query :=
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked)
		 VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, t.ID, t.UserID, t.TokenHash, nullTime(t.ExpiresAt), t.Revoked)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	query :=
		`SELECT id, user_id, token_hash, expires_at, revoked, created_at, updated_at FROM refresh_tokens
		 WHERE token_hash = $1`

	var (
		t         domain.RefreshToken
		expiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, hash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &expiresAt, &t.Revoked, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	if expiresAt.Valid {
		t.ExpiresAt = expiresAt.Time
	}
	return t, nil
}

func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) error {
	query :=
		`UPDATE refresh_tokens SET revoked = TRUE, updated_at = now()
		 WHERE token_hash = $1 AND NOT revoked AND (expires_at IS NULL OR expires_at > $2)`

	res, err := r.db.ExecContext(ctx, query, hash, now.UTC())
	if err != nil {
		return mapConstraint(err)
	}
	return rowsAffected(res)
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, updated_at = now() WHERE token_hash = $1 AND NOT revoked`, hash)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, updated_at = now() WHERE user_id = $1 AND NOT revoked`, userID)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE revoked OR (expires_at IS NOT NULL AND expires_at <= $1)`, now.UTC())
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.RowsAffected()
}
