package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kehila/community-auth/internal/apperror"
	"github.com/kehila/community-auth/internal/middleware"
	"github.com/kehila/community-auth/internal/service"
)

// PaymentHandler serves /api/payments.
type PaymentHandler struct {
	Payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{Payments: payments}
}

type createPaymentReq struct {
	Description string  `json:"description" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	DueDate     string  `json:"due_date"`
}

type updatePaymentReq struct {
	Status string `json:"status" validate:"required"`
}

// ListOwn returns the caller's payments.
func (h *PaymentHandler) ListOwn(c echo.Context) error {
	claims, ok := middleware.IdentityFrom(c)
	if !ok {
		return respondError(c, apperror.Unauthenticated("Unauthorized: User not authenticated"))
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Payments.ListOwn(ctx, claims.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// ListAll returns every payment.
func (h *PaymentHandler) ListAll(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Payments.ListAll(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Create stores a pending payment request owned by the caller.
func (h *PaymentHandler) Create(c echo.Context) error {
	claims, ok := middleware.IdentityFrom(c)
	if !ok {
		return respondError(c, apperror.Unauthenticated("Unauthorized: User not authenticated"))
	}
	var req createPaymentReq
	if err := bindAndValidate(c, &req, "Missing required fields"); err != nil {
		return respondError(c, err)
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		return respondError(c, apperror.Validation("Invalid due_date"))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Payments.Create(ctx, claims.UserID, service.CreatePaymentInput{
		Description: req.Description,
		Amount:      req.Amount,
		DueDate:     due,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// UpdateStatus changes the status of one of the caller's payments.
func (h *PaymentHandler) UpdateStatus(c echo.Context) error {
	claims, ok := middleware.IdentityFrom(c)
	if !ok {
		return respondError(c, apperror.Unauthenticated("Unauthorized: User not authenticated"))
	}
	var req updatePaymentReq
	if err := bindAndValidate(c, &req, "Invalid payment status"); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Payments.UpdateStatus(ctx, claims.UserID, c.Param("id"), strings.TrimSpace(req.Status))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// parseDueDate accepts a calendar date or an RFC 3339 timestamp.  Empty
// means no due date.
func parseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperror.Validation("Invalid due_date")
}
