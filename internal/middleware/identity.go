package middleware

// identity.go defines the context keys the auth chain writes and the helpers
// handlers use to read them back.

import (
	"github.com/labstack/echo/v4"

	"github.com/kehila/community-auth/internal/model"
	"github.com/kehila/community-auth/internal/utils"
)

const (
	identityKey = "identity"
	grantsKey   = "grants"
)

// IdentityFrom returns the claims stored by VerifyToken.
func IdentityFrom(c echo.Context) (*utils.Claims, bool) {
	claims, ok := c.Get(identityKey).(*utils.Claims)
	return claims, ok && claims != nil && claims.UserID != ""
}

// GrantsFrom returns the grant set stored by Authenticate.
func GrantsFrom(c echo.Context) (model.GrantSet, bool) {
	grants, ok := c.Get(grantsKey).(model.GrantSet)
	return grants, ok
}

// userID extracts the authenticated user id for logging.  It returns
// "guest" when no identity is attached.
func userID(c echo.Context) string {
	if claims, ok := IdentityFrom(c); ok {
		return claims.UserID
	}
	return "guest"
}
