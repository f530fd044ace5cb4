package model

import "time"

// Payment statuses accepted by the status update endpoint.
const (
	PaymentPending   = "pending"
	PaymentPaid      = "paid"
	PaymentOverdue   = "overdue"
	PaymentCancelled = "cancelled"
)

// Payment represents a row in the `payments` table together with the
// owner's display data.
type Payment struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Description string       `json:"description"`
	Amount      float64      `json:"amount"`
	DueDate     *time.Time   `json:"due_date"`
	Status      string       `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	Owner       PaymentOwner `json:"user"`
}

// PaymentOwner is the embedded user summary of a payment.
type PaymentOwner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ValidPaymentStatus reports whether s is an accepted status.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue, PaymentCancelled:
		return true
	}
	return false
}
