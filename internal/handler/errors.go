package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kehila/community-auth/internal/apperror"
)

// requestTimeout bounds the store work of one request.
const requestTimeout = 5 * time.Second

// respondError writes err as {"error": message} with its mapped status.
// Internal causes were logged by the service and are not echoed.
func respondError(c echo.Context, err error) error {
	return c.JSON(apperror.HTTPStatus(err), echo.Map{"error": apperror.PublicMessage(err)})
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}
