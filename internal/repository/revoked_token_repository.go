package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/account-service/internal/model"
)

// RevokedTokenRepo persists revoked token ids in `revoked_tokens`.  The
// unique index on jti makes Revoke idempotent.
type RevokedTokenRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewRevokedTokenRepo(db *sql.DB) *RevokedTokenRepo {
	return &RevokedTokenRepo{DB: db, now: func() time.Time { return time.Now().UTC() }}
}

// Revoke inserts a row for jti unless one already exists.
func (r *RevokedTokenRepo) Revoke(ctx context.Context, jti string, kind model.TokenKind, userID uint64, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO revoked_tokens (jti, token_type, user_id, revoked_at, expires_at) VALUES (?,?,?,?,?)",
		jti, string(kind), userID, r.now(), expiresAt.UTC())
	return err
}

// IsRevoked reports whether jti has a row that has not yet expired.
func (r *RevokedTokenRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM revoked_tokens WHERE jti=? AND expires_at > ? LIMIT 1",
		jti, r.now()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Sweep deletes rows that expired before now.
func (r *RevokedTokenRepo) Sweep(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM revoked_tokens WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
