package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/project-hosting/internal/config"
	"github.com/iliyamo/project-hosting/internal/middleware"
	"github.com/iliyamo/project-hosting/internal/model"
	"github.com/iliyamo/project-hosting/internal/queue"
	"github.com/iliyamo/project-hosting/internal/repository"
	"github.com/iliyamo/project-hosting/internal/utils"
)

// AuthHandler bundles dependencies for account lifecycle endpoints:
// registration, activation, login/refresh/logout and admin
// invitations.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Tokens  *repository.TokenRepo
	Invites *repository.InvitationRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, i *repository.InvitationRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Invites: i}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type activateReq struct {
	Email          string `json:"email"`
	ActivationCode string `json:"activation_code"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type inviteReq struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type userResp struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	IsActive bool       `json:"is_active"`
}

func toUserResp(u model.User) userResp {
	return userResp{ID: u.ID, Email: u.Email, Role: u.Role, IsActive: u.IsActive}
}

// ----- cookie helpers -----

func authCookie(name, value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Expires:  exp,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func setAuthCookies(c echo.Context, access string, accessExp time.Time, refresh string, refreshExp time.Time) {
	c.SetCookie(authCookie("access_token", access, accessExp))
	c.SetCookie(authCookie("refresh_token", refresh, refreshExp))
}

func clearAuthCookies(c echo.Context) {
	expired := time.Unix(0, 0).UTC()
	c.SetCookie(authCookie("access_token", "", expired))
	c.SetCookie(authCookie("refresh_token", "", expired))
}

// Register creates a new account. Without an invitation_token query
// parameter the user starts inactive and an activation email task is
// queued. With one, the email and role come from the invitation, the
// user is created pre-activated and the invitation is consumed in the
// same transaction as the user insert.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	invitationToken := strings.TrimSpace(c.QueryParam("invitation_token"))
	if req.Password == "" || (req.Email == "" && invitationToken == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if invitationToken != "" {
		inv, err := h.Invites.GetValidByToken(ctx, invitationToken, time.Now().UTC())
		if err != nil {
			if errors.Is(err, repository.ErrInvitationInvalid) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired invitation token"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		u, err := h.Users.CreateFromInvitation(ctx, inv, req.Password, h.Cfg.BcryptCost)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrConflict):
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
			case errors.Is(err, repository.ErrInvitationInvalid):
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired invitation token"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		}
		return c.JSON(http.StatusCreated, toUserResp(u))
	}

	u, act, err := h.Users.CreateWithActivation(ctx, req.Email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	// Fire-and-forget: a broker outage must not fail the registration.
	_ = queue.PublishEmailTask(ctx, queue.EmailTaskEvent{
		Task:      queue.TaskActivationEmail,
		Email:     u.Email,
		Code:      act.Code,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, toUserResp(u))
}

// Activate flips an account to active given its activation code.
// Re-activating an already active account is a no-op success.
func (h *AuthHandler) Activate(c echo.Context) error {
	var req activateReq
	if err := c.Bind(&req); err != nil || req.Email == "" || req.ActivationCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/activation_code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	already, err := h.Users.Activate(ctx, req.Email, req.ActivationCode)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		case errors.Is(err, repository.ErrInvalidCode):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or already used activation code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activation failed"})
	}
	if already {
		return c.JSON(http.StatusOK, echo.Map{"message": "user is already active"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user activated successfully"})
}

// Login verifies credentials, records the refresh token's jti in the
// ledger and sets both tokens as http-only cookies. If the ledger
// insert fails no cookies are set. Failures never reveal whether the
// email or the password was wrong.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, accessExp, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.Email, u.ID, string(u.Role),
		time.Duration(h.Cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, jti, refreshExp, err := utils.NewRefreshToken(h.Cfg.JWTSecret, u.Email, u.ID, string(u.Role),
		time.Duration(h.Cfg.RefreshTTLDays)*24*time.Hour)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.Tokens.Record(ctx, jti, u.ID, refreshExp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}

	setAuthCookies(c, access, accessExp, refresh, refreshExp)
	return c.JSON(http.StatusOK, echo.Map{"email": u.Email})
}

// Refresh rotates the session: it validates the refresh cookie,
// atomically swaps the ledger row to a new jti and issues a fresh
// cookie pair. A refresh token whose jti no longer matches a ledger
// row (already rotated or logged out) is rejected — replaying an old
// refresh token after rotation always fails here.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie("refresh_token")
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token missing"})
	}
	claims, err := utils.VerifyToken(h.Cfg.JWTSecret, cookie.Value, utils.TokenTypeRefresh)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	refresh, newJTI, refreshExp, err := utils.NewRefreshToken(h.Cfg.JWTSecret, claims.Subject, claims.UserID, claims.Role,
		time.Duration(h.Cfg.RefreshTTLDays)*24*time.Hour)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	matched, err := h.Tokens.Rotate(ctx, claims.ID, newJTI, refreshExp)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update refresh token"})
	}
	if !matched {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token is invalid or has been revoked"})
	}

	access, accessExp, err := utils.NewAccessToken(h.Cfg.JWTSecret, claims.Subject, claims.UserID, claims.Role,
		time.Duration(h.Cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}

	setAuthCookies(c, access, accessExp, refresh, refreshExp)
	return c.JSON(http.StatusOK, echo.Map{"message": "access token refreshed"})
}

// Logout deletes the refresh token's ledger row (idempotent: a second
// logout with the same token is fine) and clears both cookies. The
// access token is not revoked server-side and stays valid until its
// own expiry.
func (h *AuthHandler) Logout(c echo.Context) error {
	cookie, err := c.Cookie("refresh_token")
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token missing"})
	}
	claims, err := utils.VerifyToken(h.Cfg.JWTSecret, cookie.Value, utils.TokenTypeRefresh)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.Revoke(ctx, claims.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	clearAuthCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out successfully"})
}

// Info returns the authenticated user's own record.
func (h *AuthHandler) Info(c echo.Context) error {
	email, _ := c.Get(middleware.CtxEmail).(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Invite (admin only) stores a 7-day single-use invitation and queues
// the invitation email. The actual email dispatch is delegated to the
// background consumer.
func (h *AuthHandler) Invite(c echo.Context) error {
	var req inviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	role, ok := model.ParseRole(req.Role)
	if req.Email == "" || !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email and role required"})
	}

	token, err := utils.SecureToken()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	creatorID, _ := c.Get(middleware.CtxUserID).(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	expiresAt := time.Now().UTC().Add(7 * 24 * time.Hour)
	if err := h.Invites.Create(ctx, req.Email, role, creatorID, token, expiresAt); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create invitation failed"})
	}

	_ = queue.PublishEmailTask(ctx, queue.EmailTaskEvent{
		Task:      queue.TaskInvitationEmail,
		Email:     req.Email,
		Token:     token,
		Role:      string(role),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "invitation sent successfully"})
}

// AllUsers (admin only) lists every account.
func (h *AuthHandler) AllUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u))
	}
	return c.JSON(http.StatusOK, out)
}
