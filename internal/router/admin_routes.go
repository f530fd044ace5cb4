package router

import (
	"github.com/labstack/echo/v4"

	"github.com/kehila/community-auth/internal/handler"
	"github.com/kehila/community-auth/internal/middleware"
)

// RegisterAdmin registers the account administration endpoints under
// /api/admin.  Reading a user needs users:read; toggling activation needs
// users:delete.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, guard Guards) {
	g := e.Group("/api/admin", guard.Verify, guard.Authenticate)
	g.GET("/users/:userId", h.UserActivity, middleware.Authorize("users", "read"))
	g.PUT("/activation", h.ToggleActivation, middleware.Authorize("users", "delete"))
}
