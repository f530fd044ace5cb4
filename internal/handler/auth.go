package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kehila/community-auth/internal/apperror"
	"github.com/kehila/community-auth/internal/middleware"
	"github.com/kehila/community-auth/internal/model"
	"github.com/kehila/community-auth/internal/service"
)

// AuthHandler serves the /api/auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// ----- DTOs -----

type registerReq struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
type logoutReq struct {
	RefreshToken string `json:"refresh_token"`
}
type resetRequestReq struct {
	Email string `json:"email" validate:"required"`
}
type resetPasswordReq struct {
	NewPassword string `json:"new_password" validate:"required"`
}
type confirmResetReq struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type tokenResp struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}
type loginResp struct {
	Message string `json:"message"`
	tokenResp
	User             model.Profile `json:"user"`
	AllowedResources []model.Grant `json:"allowed_resources"`
}

// Register creates an account with the default role.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindAndValidate(c, &req, "Missing required fields"); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.Auth.Register(ctx, service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Address:   req.Address,
	}); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "User registered successfully"})
}

// Login verifies credentials and returns a token pair with the profile and
// the caller's grants.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req, "Missing credentials"); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loginResp{
		Message:          "Login successful",
		tokenResp:        pairResp(res.Tokens),
		User:             res.User,
		AllowedResources: res.AllowedResources,
	})
}

// Refresh rotates a refresh token.  The presented token is consumed.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bindAndValidate(c, &req, "Refresh token required"); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, pairResp(pair))
}

// Logout revokes the given refresh token, or all of the caller's tokens
// when none is given.
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, ok := middleware.IdentityFrom(c)
	if !ok {
		return respondError(c, apperror.Unauthenticated("Unauthorized: User not authenticated"))
	}
	var req logoutReq
	_ = c.Bind(&req) // the body is optional

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, claims.UserID, req.RefreshToken); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// Profile returns the caller's profile and grants.
func (h *AuthHandler) Profile(c echo.Context) error {
	claims, ok := middleware.IdentityFrom(c)
	if !ok {
		return respondError(c, apperror.Unauthenticated("Unauthorized: User not authenticated"))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Auth.Profile(ctx, claims.UserID)
	if err != nil {
		return respondError(c, err)
	}
	grants, _ := middleware.GrantsFrom(c)
	return c.JSON(http.StatusOK, echo.Map{
		"message":           "Profile retrieved successfully",
		"user":              p,
		"allowed_resources": grants.List(),
	})
}

// Protected echoes the decoded token claims.
func (h *AuthHandler) Protected(c echo.Context) error {
	claims, ok := middleware.IdentityFrom(c)
	if !ok {
		return respondError(c, apperror.Unauthenticated("Unauthorized: User not authenticated"))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "This route is protected", "user": claims})
}

// PasswordResetRequest issues a reset token and hands it to the mailer.
func (h *AuthHandler) PasswordResetRequest(c echo.Context) error {
	var req resetRequestReq
	if err := bindAndValidate(c, &req, "Email is required"); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.RequestPasswordReset(ctx, req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset email sent"})
}

// ResetPassword changes the authenticated caller's password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	claims, ok := middleware.IdentityFrom(c)
	if !ok {
		return respondError(c, apperror.Unauthenticated("Unauthorized: User not authenticated"))
	}
	var req resetPasswordReq
	if err := bindAndValidate(c, &req, "New password is required"); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, claims.UserID, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated successfully"})
}

// ConfirmPasswordReset redeems an emailed reset token.
func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	var req confirmResetReq
	if err := bindAndValidate(c, &req, "Token and new password are required"); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.ConfirmPasswordReset(ctx, req.Token, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated successfully"})
}

func pairResp(p service.TokenPair) tokenResp {
	return tokenResp{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, ExpiresAt: p.ExpiresAt}
}
