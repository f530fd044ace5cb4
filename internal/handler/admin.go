package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kehila/community-auth/internal/apperror"
	"github.com/kehila/community-auth/internal/service"
)

// AdminHandler serves /api/admin.  Routes are gated by Authorize.
type AdminHandler struct {
	Admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{Admin: admin}
}

type activationReq struct {
	UserIDs []string `json:"user_ids"`
}

// UserActivity returns one user and the campaigns they joined.
func (h *AdminHandler) UserActivity(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	a, err := h.Admin.Activity(ctx, c.Param("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// ToggleActivation flips the active flag of every listed user.
func (h *AdminHandler) ToggleActivation(c echo.Context) error {
	var req activationReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperror.Validation("Invalid user IDs array"))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Admin.ToggleActivation(ctx, req.UserIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Users toggled successfully", "toggled": n})
}
