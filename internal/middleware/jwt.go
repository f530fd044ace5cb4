// Package middleware provides the authentication and authorization chain
// for protected routes.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kehila/community-auth/internal/utils"
)

// TokenValidator checks a raw access token and returns its claims.
type TokenValidator interface {
	ValidateAccessToken(raw string) (*utils.Claims, error)
}

// VerifyToken returns an Echo middleware that validates the Bearer access
// token and stores its claims in the context as the request identity.  A
// missing header, a bad signature and an expired token each get their own
// 401 message; the handler is never reached in those cases.
func VerifyToken(tokens TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "No token provided"})
			}

			claims, err := tokens.ValidateAccessToken(strings.TrimSpace(raw))
			if errors.Is(err, utils.ErrExpiredToken) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token expired"})
			}
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token"})
			}

			c.Set(identityKey, claims)
			return next(c)
		}
	}
}
