// Package router registers the HTTP routes of the API.
package router

import (
	"database/sql"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kehila/community-auth/internal/handler"
	"github.com/kehila/community-auth/internal/middleware"
)

// Guards are the two halves of the auth chain shared by every protected
// group.  Verify checks the bearer token; Authenticate attaches the grants
// that Authorize tests.
type Guards struct {
	Verify       echo.MiddlewareFunc
	Authenticate echo.MiddlewareFunc
}

// NewGuards builds the auth chain from a token validator and grant resolver.
func NewGuards(tokens middleware.TokenValidator, resolver middleware.GrantResolver, logger *slog.Logger) Guards {
	return Guards{
		Verify:       middleware.VerifyToken(tokens),
		Authenticate: middleware.Authenticate(resolver, logger),
	}
}

// RegisterRoutes registers the operational endpoints that do not require
// authentication: liveness, readiness and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the /api/auth endpoints and the self-service
// /api/users endpoints.  Register, login, refresh and the reset token flow
// are public; the rest need a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, u *handler.UserHandler, guard Guards) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/password-reset-request", a.PasswordResetRequest)
	g.POST("/password-reset/confirm", a.ConfirmPasswordReset)

	g.POST("/logout", a.Logout, guard.Verify)
	g.GET("/profile", a.Profile, guard.Verify, guard.Authenticate)
	g.GET("/protected", a.Protected, guard.Verify)
	g.POST("/reset-password", a.ResetPassword, guard.Verify)

	users := e.Group("/api/users", guard.Verify)
	users.POST("/update-profile", u.UpdateProfile)
}
