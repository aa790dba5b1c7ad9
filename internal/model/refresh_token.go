package model

import "time"

// RefreshTokenEntry mirrors the `token_blacklist` table. Despite the
// historical table name it is an allow-list: exactly one row exists
// per currently valid refresh token, keyed by the token's jti claim.
// A refresh token whose jti has no matching row has been rotated or
// revoked and must be rejected.
type RefreshTokenEntry struct {
	ID        uint64    // token_blacklist.id
	JTI       string    // token_blacklist.jti
	UserID    string    // token_blacklist.user_id
	CreatedAt time.Time // token_blacklist.created_at
	ExpiresAt time.Time // token_blacklist.expires_at
}
