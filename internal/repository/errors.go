// Package repository defines sentinel error values shared across the
// repositories. Handlers translate them into HTTP statuses: conflicts
// and invalid codes/invitations become 400, credential and token
// failures 401, missing or foreign-owned records 404.
package repository

import "errors"

// ErrConflict is returned on uniqueness violations, e.g. registering
// an email or uploading a project name that already exists.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when a record does not exist or is owned by
// someone else. The two cases are intentionally indistinguishable so
// callers cannot probe for the existence of other users' resources.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is returned on login failure without
// revealing whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidCode is returned when an activation code does not match
// or has already been used.
var ErrInvalidCode = errors.New("invalid or already used activation code")

// ErrInvitationInvalid is returned when an invitation token is
// missing, expired or already consumed.
var ErrInvitationInvalid = errors.New("invalid or expired invitation token")

// ErrTokenRevoked is returned when a refresh token's jti has no live
// ledger row, i.e. the token was rotated away or logged out. Replay
// of a stale refresh token surfaces as this error.
var ErrTokenRevoked = errors.New("refresh token revoked")
