package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/project-hosting/internal/model"
	"github.com/iliyamo/project-hosting/internal/utils"
)

// UserRepo provides account persistence. Every multi-statement
// mutation (user+activation creation, invitation consumption,
// activation) runs in a single transaction: a user without its
// activation row, or a consumed invitation without its user, is an
// invariant violation.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// CreateWithActivation inserts an inactive user together with its
// single-use activation row in one transaction and returns both. A
// taken email is reported as ErrConflict.
func (r *UserRepo) CreateWithActivation(ctx context.Context, email, password string, cost int) (u model.User, act model.Activation, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, model.Activation{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return model.User{}, model.Activation{}, err
	}
	code := utils.NewActivationCode()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, model.Activation{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, role, is_active) VALUES (?,?,?,?,0)",
		id.String(), email, hash, string(model.RoleUser)); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			err = ErrConflict
		}
		return model.User{}, model.Activation{}, err
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO activations (user_id, activation_code, is_used) VALUES (?,?,0)",
		id.String(), code)
	if err != nil {
		return model.User{}, model.Activation{}, err
	}
	actID, err := res.LastInsertId()
	if err != nil {
		return model.User{}, model.Activation{}, err
	}

	u = model.User{ID: id.String(), Email: email, PasswordHash: hash, Role: model.RoleUser}
	act = model.Activation{ID: uint64(actID), UserID: id.String(), Code: code}
	return u, act, nil
}

// CreateFromInvitation inserts a pre-activated user with the email
// and role fixed by the invitation and deletes the invitation row,
// both in one transaction. If the invitation row is gone by commit
// time (consumed concurrently) the whole creation rolls back with
// ErrInvitationInvalid.
func (r *UserRepo) CreateFromInvitation(ctx context.Context, inv model.Invitation, password string, cost int) (u model.User, err error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return model.User{}, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, role, is_active, invited_by) VALUES (?,?,?,?,1,?)",
		id.String(), inv.Email, hash, string(inv.Role), inv.CreatorID); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			err = ErrConflict
		}
		return model.User{}, err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM invitations WHERE id=?", inv.ID)
	if err != nil {
		return model.User{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.User{}, err
	}
	if n != 1 {
		err = ErrInvitationInvalid
		return model.User{}, err
	}

	creator := inv.CreatorID
	return model.User{
		ID:           id.String(),
		Email:        inv.Email,
		PasswordHash: hash,
		Role:         inv.Role,
		IsActive:     true,
		InvitedBy:    &creator,
	}, nil
}

// Activate flips a user to active after checking the activation code
// matches and is unused, marking the code used in the same
// transaction. An already active user is a no-op success reported via
// alreadyActive.
func (r *UserRepo) Activate(ctx context.Context, email, code string) (alreadyActive bool, err error) {
	email = strings.ToLower(strings.TrimSpace(email))

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var userID string
	var isActive bool
	err = tx.QueryRowContext(ctx,
		"SELECT id, is_active FROM users WHERE email=? LIMIT 1", email).Scan(&userID, &isActive)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return false, err
	}
	if err != nil {
		return false, err
	}
	if isActive {
		return true, nil
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE activations SET is_used=1 WHERE user_id=? AND activation_code=? AND is_used=0",
		userID, code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n != 1 {
		err = ErrInvalidCode
		return false, err
	}
	if _, err = tx.ExecContext(ctx, "UPDATE users SET is_active=1 WHERE id=?", userID); err != nil {
		return false, err
	}
	return false, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(ctx,
		"SELECT id, email, password_hash, role, is_active, invited_by, created_at, updated_at FROM users WHERE email=? LIMIT 1",
		email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.scanOne(ctx,
		"SELECT id, email, password_hash, role, is_active, invited_by, created_at, updated_at FROM users WHERE id=? LIMIT 1",
		id)
}

func (r *UserRepo) scanOne(ctx context.Context, query string, arg interface{}) (model.User, error) {
	var u model.User
	var role string
	var invitedBy sql.NullString
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &role, &u.IsActive, &invitedBy, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.Role, _ = model.ParseRole(role)
	if invitedBy.Valid {
		v := invitedBy.String
		u.InvitedBy = &v
	}
	return u, nil
}

// ListAll returns every user, newest first. UUIDv7 ids sort by
// creation time, so ordering by id is ordering by age.
func (r *UserRepo) ListAll(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, email, password_hash, role, is_active, invited_by, created_at, updated_at FROM users ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var role string
		var invitedBy sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.IsActive, &invitedBy, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Role, _ = model.ParseRole(role)
		if invitedBy.Valid {
			v := invitedBy.String
			u.InvitedBy = &v
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// EnsureAdmin seeds the default admin account at startup. The admin
// is created active with no activation row; an existing user with the
// same email is left untouched.
func (r *UserRepo) EnsureAdmin(ctx context.Context, email, password string, cost int) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if _, err := r.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, role, is_active) VALUES (?,?,?,?,1)",
		id.String(), email, hash, string(model.RoleAdmin))
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return nil // raced with another instance, fine
	}
	return err
}
