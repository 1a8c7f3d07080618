package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "PENDING"
	InstallmentStatusPaid    InstallmentStatus = "PAID"
)

// Installment is one repayment term of a loan schedule.
// Amount is the scheduled amount and never changes; AmountPaid is what has
// been applied to the term so far.
type Installment struct {
	ID         string            `json:"id" db:"id"`
	LoanID     string            `json:"loan_id" db:"loan_id"`
	Term       int               `json:"term" db:"term"`
	Amount     decimal.Decimal   `json:"amount" db:"amount"`
	AmountPaid decimal.Decimal   `json:"amount_paid" db:"amount_paid"`
	DueDate    time.Time         `json:"due_date" db:"due_date"`
	Status     InstallmentStatus `json:"status" db:"status"`
	PaidAt     *time.Time        `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

func (i *Installment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid
}

// Remaining returns what is still owed on the term.
func (i *Installment) Remaining() decimal.Decimal {
	return i.Amount.Sub(i.AmountPaid)
}

// OverdueInstallment is a pending installment whose due date has passed,
// joined with the owner of its loan.
type OverdueInstallment struct {
	Installment
	OwnerID string `json:"owner_id" db:"owner_id"`
}
