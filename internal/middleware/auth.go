// Package middleware contains reusable HTTP middleware: cookie-based
// JWT authentication, role enforcement and response caching.
package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/project-hosting/internal/model"
	"github.com/iliyamo/project-hosting/internal/utils"
)

// Context keys populated by JWTAuth for downstream handlers.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

// JWTAuth returns middleware that validates the access_token cookie
// and injects the verified identity into the request context. The
// secret must match the one used when issuing tokens. Validation is
// purely cryptographic — the revocation ledger is consulted only for
// refresh tokens — so a logged-out access token stays valid for its
// remaining short TTL.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie("access_token")
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			claims, err := utils.VerifyToken(secret, cookie.Value, utils.TokenTypeAccess)
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxEmail, claims.Subject)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}

// RequireRole returns middleware that enforces that the authenticated
// user holds one of the given roles. It assumes JWTAuth ran earlier
// and stored the role claim under CtxRole; anything missing, unknown
// or outside the allowed set is rejected with 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v, _ := c.Get(CtxRole).(string)
			role, ok := model.ParseRole(v)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
			}
			return next(c)
		}
	}
}
