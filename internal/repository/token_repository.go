package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// TokenRepo is the revocation ledger for refresh tokens. One row per
// currently valid refresh token, keyed by jti. Rows are inserted at
// login, swapped in place on refresh and deleted at logout or by the
// periodic sweep.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Record inserts the ledger row for a freshly issued refresh token.
// A duplicate jti returns ErrConflict; jtis are random UUIDs so this
// should never fire, but it must fail loudly rather than be ignored.
func (r *TokenRepo) Record(ctx context.Context, jti, userID string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO token_blacklist (jti, user_id, expires_at) VALUES (?,?,?)",
		jti, userID, exp)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	return nil
}

// Rotate atomically replaces the jti and expiry of an existing ledger
// row. It reports whether a row matched oldJTI: false means the token
// was already rotated or revoked, and the caller must reject the
// refresh attempt with ErrTokenRevoked. This is what makes replay of
// a stale refresh token fail after a completed rotation.
func (r *TokenRepo) Rotate(ctx context.Context, oldJTI, newJTI string, newExp time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE token_blacklist SET jti=?, expires_at=? WHERE jti=?",
		newJTI, newExp, oldJTI)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Revoke deletes the ledger row for a jti. Absence is not an error:
// logging out twice is fine.
func (r *TokenRepo) Revoke(ctx context.Context, jti string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM token_blacklist WHERE jti=?", jti)
	return err
}

// Sweep removes every ledger row that expired before now and returns
// how many were deleted. Runs daily outside the request path.
func (r *TokenRepo) Sweep(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM token_blacklist WHERE expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
