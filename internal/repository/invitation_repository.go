package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/project-hosting/internal/model"
)

// InvitationRepo manages admin-issued registration invitations.
// Consumption (deleting the row together with the invited user's
// creation) lives on UserRepo so both happen in one transaction.
type InvitationRepo struct{ DB *sql.DB }

func NewInvitationRepo(db *sql.DB) *InvitationRepo { return &InvitationRepo{DB: db} }

// Create stores a new invitation. The token must be unique; a clash
// is reported as ErrConflict.
func (r *InvitationRepo) Create(ctx context.Context, email string, role model.Role, creatorID, token string, expiresAt time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO invitations (email, role, creator_id, token, expires_at) VALUES (?,?,?,?,?)",
		email, string(role), creatorID, token, expiresAt)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrConflict
	}
	return err
}

// GetValidByToken loads an invitation by its token and checks it is
// not expired yet. Missing and expired invitations both surface as
// ErrInvitationInvalid.
func (r *InvitationRepo) GetValidByToken(ctx context.Context, token string, now time.Time) (model.Invitation, error) {
	var inv model.Invitation
	var role string
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, email, role, creator_id, token, created_at, expires_at FROM invitations WHERE token=? LIMIT 1",
		token).Scan(&inv.ID, &inv.Email, &role, &inv.CreatorID, &inv.Token, &inv.CreatedAt, &inv.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Invitation{}, ErrInvitationInvalid
	}
	if err != nil {
		return model.Invitation{}, err
	}
	inv.Role, _ = model.ParseRole(role)
	if inv.Expired(now) {
		return model.Invitation{}, ErrInvitationInvalid
	}
	return inv, nil
}
