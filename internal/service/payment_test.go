package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kehila/community-auth/internal/apperror"
	"github.com/kehila/community-auth/internal/model"
	"github.com/kehila/community-auth/internal/repository"
)

var paymentCols = []string{"id", "user_id", "description", "amount", "due_date", "status", "created_at", "owner_id", "owner_name", "owner_email"}

func newPaymentService(t *testing.T) (*PaymentService, sqlmock.Sqlmock) {
	db, m := newMockDB(t)
	return NewPaymentService(repository.NewPaymentRepo(db), discardLogger()), m
}

func paymentRow(id, owner, status string) *sqlmock.Rows {
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(paymentCols).
		AddRow(id, owner, "Membership fee", 120.5, nil, status, created, owner, "Ada Lovelace", "a@x.com")
}

func TestPaymentService_Create(t *testing.T) {
	svc, m := newPaymentService(t)
	m.ExpectExec(q("INSERT INTO payments")).
		WithArgs(sqlmock.AnyArg(), "u-1", "Membership fee", 120.5, nil, model.PaymentPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectQuery(q("WHERE pay.id = ?")).WillReturnRows(paymentRow("p-1", "u-1", model.PaymentPending))

	p, err := svc.Create(context.Background(), "u-1", CreatePaymentInput{Description: " Membership fee ", Amount: 120.5})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, p.Status)
	assert.Equal(t, "Ada Lovelace", p.Owner.Name)
	assert.Nil(t, p.DueDate)
}

func TestPaymentService_Create_MissingFields(t *testing.T) {
	svc, _ := newPaymentService(t)

	_, err := svc.Create(context.Background(), "u-1", CreatePaymentInput{Description: "fee"})

	assertAppError(t, err, apperror.ErrValidation, 400, "Missing required fields")
}

func TestPaymentService_UpdateStatus(t *testing.T) {
	svc, m := newPaymentService(t)
	m.ExpectQuery(q("WHERE pay.id = ?")).WithArgs("p-1").
		WillReturnRows(paymentRow("p-1", "u-1", model.PaymentPending))
	m.ExpectExec(q("UPDATE payments SET status = ? WHERE id = ? AND user_id = ?")).
		WithArgs(model.PaymentPaid, "p-1", "u-1").WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := svc.UpdateStatus(context.Background(), "u-1", "p-1", model.PaymentPaid)

	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, p.Status)
}

func TestPaymentService_UpdateStatus_Errors(t *testing.T) {
	tests := []struct {
		name   string
		rows   *sqlmock.Rows
		status string
		class  error
		code   int
		msg    string
	}{
		{"missing payment", sqlmock.NewRows(paymentCols), model.PaymentPaid, apperror.ErrNotFound, 404, "Payment not found"},
		{"other owner", paymentRow("p-1", "u-2", model.PaymentPending), model.PaymentPaid, apperror.ErrAuthorization, 403, "Unauthorized"},
		{"bad status", paymentRow("p-1", "u-1", model.PaymentPending), "refunded", apperror.ErrValidation, 400, "Invalid payment status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newPaymentService(t)
			m.ExpectQuery(q("WHERE pay.id = ?")).WithArgs("p-1").WillReturnRows(tt.rows)

			_, err := svc.UpdateStatus(context.Background(), "u-1", "p-1", tt.status)

			assertAppError(t, err, tt.class, tt.code, tt.msg)
		})
	}
}

func TestPaymentService_ListOwn(t *testing.T) {
	svc, m := newPaymentService(t)
	m.ExpectQuery(q("WHERE pay.user_id = ?")).WithArgs("u-1").
		WillReturnRows(paymentRow("p-1", "u-1", model.PaymentPending))

	list, err := svc.ListOwn(context.Background(), "u-1")

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p-1", list[0].ID)
}
