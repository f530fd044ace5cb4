package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kehila/community-auth/internal/apperror"
	"github.com/kehila/community-auth/internal/metrics"
	"github.com/kehila/community-auth/internal/model"
)

const msgNotAuthenticated = "Unauthorized: User not authenticated"

// GrantResolver returns the grants held by a role level.
type GrantResolver interface {
	AllowedResources(ctx context.Context, roleID int) (model.GrantSet, error)
}

// Authenticate requires the identity set by VerifyToken and attaches the
// caller's grant set.  A resolver failure ends the request with 500; the
// cause is logged, never returned.
func Authenticate(resolver GrantResolver, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgNotAuthenticated})
			}

			ctx := c.Request().Context()
			grants, err := resolver.AllowedResources(ctx, claims.RoleID)
			if err != nil {
				logger.ErrorContext(ctx, "authentication error",
					slog.String("user_id", claims.UserID),
					slog.String("error", err.Error()))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Authentication failed"})
			}

			c.Set(grantsKey, grants)
			return next(c)
		}
	}
}

// Authorize forwards the request only when the caller holds exactly
// (resource, scope).  Scopes do not imply each other.
func Authorize(resource, scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := IdentityFrom(c); !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgNotAuthenticated})
			}
			grants, _ := GrantsFrom(c)
			if !grants.Has(resource, scope) {
				metrics.AuthorizeTotal.WithLabelValues(resource, scope, metrics.OutcomeDenied).Inc()
				denied := apperror.InsufficientGrant(resource, scope)
				return c.JSON(denied.Status, echo.Map{"error": denied.Message})
			}
			metrics.AuthorizeTotal.WithLabelValues(resource, scope, metrics.OutcomeAllowed).Inc()
			return next(c)
		}
	}
}
