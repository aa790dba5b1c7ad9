package middleware

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// responseRecorder captures the response body and status while still
// forwarding everything to the client.
type responseRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (rr *responseRecorder) WriteHeader(code int) {
	rr.status = code
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	rr.buf.Write(b)
	return rr.ResponseWriter.Write(b)
}

// CacheGET returns middleware that serves successful GET responses of
// listing endpoints from Redis for a short TTL. The key includes the
// authenticated user id so one user's listing can never be served to
// another. A nil client disables caching entirely; the short TTL
// stands in for explicit invalidation on writes.
func CacheGET(client *redis.Client, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if client == nil || ttl <= 0 || c.Request().Method != http.MethodGet {
				return next(c)
			}
			uid, _ := c.Get(CtxUserID).(string)
			sum := sha1.Sum([]byte(uid + "|" + c.Request().URL.RequestURI()))
			key := fmt.Sprintf("cache:%x", sum[:])

			ctx := c.Request().Context()
			if cached, err := client.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
				return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, cached)
			}

			rr := &responseRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = rr
			if err := next(c); err != nil {
				return err
			}
			if rr.status == http.StatusOK && rr.buf.Len() > 0 {
				// Best effort: a failed SET only means a cache miss next time.
				_ = client.Set(ctx, key, rr.buf.Bytes(), ttl).Err()
			}
			return nil
		}
	}
}
