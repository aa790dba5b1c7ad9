package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordedCookies(t *testing.T, run func(c echo.Context)) map[string]*http.Cookie {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/users/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	run(c)

	out := make(map[string]*http.Cookie)
	for _, ck := range rec.Result().Cookies() {
		out[ck.Name] = ck
	}
	return out
}

func TestSetAuthCookies(t *testing.T) {
	accessExp := time.Now().UTC().Add(30 * time.Minute)
	refreshExp := time.Now().UTC().Add(7 * 24 * time.Hour)

	cookies := recordedCookies(t, func(c echo.Context) {
		setAuthCookies(c, "acc-token", accessExp, "ref-token", refreshExp)
	})
	require.Contains(t, cookies, "access_token")
	require.Contains(t, cookies, "refresh_token")

	access := cookies["access_token"]
	assert.Equal(t, "acc-token", access.Value)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	assert.Equal(t, "/", access.Path)

	refresh := cookies["refresh_token"]
	assert.Equal(t, "ref-token", refresh.Value)
	assert.True(t, refresh.HttpOnly)
	assert.WithinDuration(t, refreshExp, refresh.Expires, time.Second)
}

func TestClearAuthCookies(t *testing.T) {
	cookies := recordedCookies(t, func(c echo.Context) {
		clearAuthCookies(c)
	})
	require.Contains(t, cookies, "access_token")
	require.Contains(t, cookies, "refresh_token")

	for _, name := range []string{"access_token", "refresh_token"} {
		ck := cookies[name]
		assert.Empty(t, ck.Value)
		assert.True(t, ck.Expires.Before(time.Now()), "%s must be expired", name)
	}
}
