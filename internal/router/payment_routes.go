package router

import (
	"github.com/labstack/echo/v4"

	"github.com/kehila/community-auth/internal/handler"
	"github.com/kehila/community-auth/internal/middleware"
)

// RegisterPayments registers /api/payments.  Listing one's own payments
// only needs a session; creating, updating and listing everybody's
// payments need payments:write.
func RegisterPayments(e *echo.Echo, h *handler.PaymentHandler, guard Guards) {
	g := e.Group("/api/payments", guard.Verify, guard.Authenticate)
	g.GET("", h.ListOwn)
	g.GET("/", h.ListOwn)
	g.GET("/all", h.ListAll, middleware.Authorize("payments", "write"))
	g.POST("", h.Create, middleware.Authorize("payments", "write"))
	g.POST("/", h.Create, middleware.Authorize("payments", "write"))
	g.PUT("/:id", h.UpdateStatus, middleware.Authorize("payments", "write"))
}
