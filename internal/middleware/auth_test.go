package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/project-hosting/internal/model"
	"github.com/iliyamo/project-hosting/internal/utils"
)

const testSecret = "mw-secret"

func doRequest(t *testing.T, mw echo.MiddlewareFunc, cookie *http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/projects/all", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, c
}

func TestJWTAuthMissingCookie(t *testing.T) {
	rec, _ := doRequest(t, JWTAuth(testSecret), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthInvalidToken(t *testing.T) {
	rec, _ := doRequest(t, JWTAuth(testSecret), &http.Cookie{Name: "access_token", Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthExpiredToken(t *testing.T) {
	token, _, err := utils.NewAccessToken(testSecret, "a@x.com", "user-1", "user", -time.Minute)
	require.NoError(t, err)

	rec, _ := doRequest(t, JWTAuth(testSecret), &http.Cookie{Name: "access_token", Value: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsRefreshToken(t *testing.T) {
	// A refresh token in the access cookie must not authenticate.
	token, _, _, err := utils.NewRefreshToken(testSecret, "a@x.com", "user-1", "user", time.Hour)
	require.NoError(t, err)

	rec, _ := doRequest(t, JWTAuth(testSecret), &http.Cookie{Name: "access_token", Value: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthInjectsIdentity(t *testing.T) {
	token, _, err := utils.NewAccessToken(testSecret, "a@x.com", "user-1", "operator", time.Minute)
	require.NoError(t, err)

	rec, c := doRequest(t, JWTAuth(testSecret), &http.Cookie{Name: "access_token", Value: token})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", c.Get(CtxUserID))
	assert.Equal(t, "a@x.com", c.Get(CtxEmail))
	assert.Equal(t, "operator", c.Get(CtxRole))
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		role    string
		allowed []model.Role
		want    int
	}{
		{"admin", []model.Role{model.RoleAdmin}, http.StatusOK},
		{"user", []model.Role{model.RoleAdmin}, http.StatusForbidden},
		{"operator", []model.Role{model.RoleAdmin, model.RoleOperator}, http.StatusOK},
		{"", []model.Role{model.RoleAdmin}, http.StatusForbidden},
		{"superuser", []model.Role{model.RoleAdmin}, http.StatusForbidden},
	}
	for _, tt := range tests {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/v1/users/admin/all-users", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(CtxRole, tt.role)

		handler := RequireRole(tt.allowed...)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, handler(c))
		assert.Equal(t, tt.want, rec.Code, "role %q", tt.role)
	}
}

func TestRequireRoleWithoutAuthContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequireRole(model.RoleAdmin)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
