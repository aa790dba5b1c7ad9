package model

import "time"

// Invitation is an admin-issued, single-use registration token. The
// invited email and role are fixed by the admin; whatever email the
// invitee submits at registration is ignored in favour of this row.
// The row is deleted in the same transaction that creates the user.
type Invitation struct {
	ID        uint64    // invitations.id
	Email     string    // invitations.email
	Role      Role      // invitations.role
	CreatorID string    // invitations.creator_id
	Token     string    // invitations.token
	CreatedAt time.Time // invitations.created_at
	ExpiresAt time.Time // invitations.expires_at
}

// Expired reports whether the invitation can no longer be consumed.
func (i Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
