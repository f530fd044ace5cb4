package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kehila/community-auth/internal/apperror"
	"github.com/kehila/community-auth/internal/middleware"
	"github.com/kehila/community-auth/internal/service"
)

// UserHandler serves the self-service /api/users endpoints.
type UserHandler struct {
	Auth *service.AuthService
}

func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{Auth: auth}
}

type updateProfileReq struct {
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
}

// UpdateProfile sets the caller's phone and address.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	claims, ok := middleware.IdentityFrom(c)
	if !ok {
		return respondError(c, apperror.Unauthenticated("Unauthorized: User not authenticated"))
	}
	var req updateProfileReq
	if err := bindAndValidate(c, &req, "Phone and address are required"); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.UpdateContact(ctx, claims.UserID, req.Phone, req.Address); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully"})
}
