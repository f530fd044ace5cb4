package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kehila/community-auth/internal/apperror"
	"github.com/kehila/community-auth/internal/model"
	"github.com/kehila/community-auth/internal/repository"
)

// PaymentService implements the payment request use cases.
type PaymentService struct {
	payments *repository.PaymentRepo
	logger   *slog.Logger
}

// NewPaymentService creates a payment service.
func NewPaymentService(payments *repository.PaymentRepo, logger *slog.Logger) *PaymentService {
	return &PaymentService{payments: payments, logger: logger}
}

// CreatePaymentInput holds the parameters of a new payment request.
type CreatePaymentInput struct {
	Description string
	Amount      float64
	DueDate     *time.Time
}

// ListOwn returns the caller's payments.
func (s *PaymentService) ListOwn(ctx context.Context, userID string) ([]model.Payment, error) {
	out, err := s.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.internal(ctx, "list payments", err)
	}
	return out, nil
}

// ListAll returns every payment.
func (s *PaymentService) ListAll(ctx context.Context) ([]model.Payment, error) {
	out, err := s.payments.ListAll(ctx)
	if err != nil {
		return nil, s.internal(ctx, "list all payments", err)
	}
	return out, nil
}

// Create stores a pending payment owned by userID and returns it.
func (s *PaymentService) Create(ctx context.Context, userID string, in CreatePaymentInput) (model.Payment, error) {
	if strings.TrimSpace(in.Description) == "" || in.Amount <= 0 {
		return model.Payment{}, apperror.Validation(msgMissingFields)
	}
	id, err := s.payments.Create(ctx, userID, strings.TrimSpace(in.Description), in.Amount, in.DueDate)
	if err != nil {
		return model.Payment{}, s.internal(ctx, "create payment", err)
	}
	p, err := s.payments.Get(ctx, id)
	if err != nil {
		return model.Payment{}, s.internal(ctx, "load payment", err)
	}
	s.logger.InfoContext(ctx, "payment created", slog.String("payment_id", id), slog.String("user_id", userID))
	return p, nil
}

// UpdateStatus changes the status of a payment owned by userID.  A payment
// of another user is forbidden even for holders of payments:write.
func (s *PaymentService) UpdateStatus(ctx context.Context, userID, paymentID, status string) (model.Payment, error) {
	p, err := s.payments.Get(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Payment{}, apperror.NotFound("Payment not found")
	}
	if err != nil {
		return model.Payment{}, s.internal(ctx, "load payment", err)
	}
	if p.UserID != userID {
		return model.Payment{}, apperror.Forbidden("Unauthorized")
	}
	if !model.ValidPaymentStatus(status) {
		return model.Payment{}, apperror.Validation("Invalid payment status")
	}

	err = s.payments.UpdateStatusOwned(ctx, paymentID, userID, status)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Payment{}, apperror.NotFound("Payment not found")
	}
	if err != nil {
		return model.Payment{}, s.internal(ctx, "update payment status", err)
	}
	p.Status = status
	return p, nil
}

func (s *PaymentService) internal(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, op+" failed", slog.String("error", err.Error()))
	return apperror.Internal(err)
}
