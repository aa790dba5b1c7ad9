// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/project-hosting/internal/handler"
	"github.com/iliyamo/project-hosting/internal/middleware"
	"github.com/iliyamo/project-hosting/internal/model"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterUsers registers the account lifecycle endpoints. Register,
// activate, login and refresh are reachable without an access token
// (refresh authenticates via the refresh cookie itself); logout and
// info require a valid access token, and the admin group additionally
// requires the admin role.
func RegisterUsers(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/users")
	g.POST("/register", a.Register)
	g.POST("/activate", a.Activate)
	g.POST("/login", a.Login)
	g.GET("/refresh", a.Refresh)

	auth := e.Group("/v1/users", middleware.JWTAuth(jwtSecret))
	auth.POST("/logout", a.Logout)
	auth.GET("/info", a.Info)

	admin := e.Group("/v1/users/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	admin.POST("/invite", a.Invite)
	admin.GET("/all-users", a.AllUsers)
}

// RegisterProjects registers the project/version endpoints. All of
// them require authentication; the two listing GETs are additionally
// served through the Redis response cache (rdb may be nil, which
// disables caching).
func RegisterProjects(e *echo.Echo, p *handler.ProjectHandler, jwtSecret string, rdb *redis.Client, cacheTTL time.Duration) {
	g := e.Group("/v1/projects", middleware.JWTAuth(jwtSecret))
	g.POST("/upload", p.Upload)
	g.PUT("/update/:id", p.Update)
	g.PUT("/change-version/:id", p.ChangeVersion)
	g.GET("/versions/:id", p.Versions, middleware.CacheGET(rdb, cacheTTL))
	g.DELETE("/delete/:id", p.DeleteVersion)
	g.GET("/all", p.All, middleware.CacheGET(rdb, cacheTTL))

	admin := e.Group("/v1/projects/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	admin.GET("/user/:email", p.UserProjects)
}
