package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kehila/community-auth/internal/model"
)

const paymentSelect = `SELECT pay.id, pay.user_id, pay.description, pay.amount, pay.due_date, pay.status, pay.created_at,
        COALESCE(u.id, ''), TRIM(CONCAT(COALESCE(ui.first_name, ''), ' ', COALESCE(ui.last_name, ''))), COALESCE(u.email, '')
 FROM payments pay
 LEFT JOIN user_info ui ON ui.id = pay.user_id
 LEFT JOIN user u ON u.id = pay.user_id`

// PaymentRepo provides data access to the payments table.
type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

// ListByUser returns the payments owned by userID.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID string) ([]model.Payment, error) {
	return r.list(ctx, paymentSelect+" WHERE pay.user_id = ? ORDER BY pay.created_at DESC", userID)
}

// ListAll returns every payment.
func (r *PaymentRepo) ListAll(ctx context.Context) ([]model.Payment, error) {
	return r.list(ctx, paymentSelect+" ORDER BY pay.created_at DESC")
}

func (r *PaymentRepo) list(ctx context.Context, query string, args ...any) ([]model.Payment, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get returns one payment.
func (r *PaymentRepo) Get(ctx context.Context, id string) (model.Payment, error) {
	p, err := scanPayment(r.DB.QueryRowContext(ctx, paymentSelect+" WHERE pay.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Payment{}, ErrNotFound
	}
	return p, err
}

// Create inserts a pending payment for userID and returns its id.
func (r *PaymentRepo) Create(ctx context.Context, userID, description string, amount float64, due *time.Time) (string, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO payments (id, user_id, description, amount, due_date, status) VALUES (?, ?, ?, ?, ?, ?)",
		id, userID, description, amount, due, model.PaymentPending)
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateStatusOwned sets the status of payment id if it belongs to ownerID.
// The ownership check is part of the statement so no other writer can slip
// in between check and update.
func (r *PaymentRepo) UpdateStatusOwned(ctx context.Context, id, ownerID, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE payments SET status = ? WHERE id = ? AND user_id = ?", status, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(s rowScanner) (model.Payment, error) {
	var (
		p   model.Payment
		due sql.NullTime
	)
	err := s.Scan(&p.ID, &p.UserID, &p.Description, &p.Amount, &due, &p.Status, &p.CreatedAt,
		&p.Owner.ID, &p.Owner.Name, &p.Owner.Email)
	if err != nil {
		return model.Payment{}, err
	}
	if due.Valid {
		t := due.Time
		p.DueDate = &t
	}
	return p, nil
}
