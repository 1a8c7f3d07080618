package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount a NUMERIC(15,2) ledger column holds.
var MaxAmount = decimal.RequireFromString("9999999999999.99")

type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "PENDING"
	LoanStatusApproved LoanStatus = "APPROVED"
	LoanStatusPaid     LoanStatus = "PAID"
)

// IsTerminal reports whether no further transition is possible.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusPaid
}

// Loan represents a loan entity
type Loan struct {
	ID               string          `json:"id" db:"id"`
	OwnerID          string          `json:"owner_id" db:"owner_id"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	Terms            int             `json:"terms" db:"terms"`
	TermDurationDays int             `json:"term_duration_days" db:"term_duration_days"`
	Status           LoanStatus      `json:"status" db:"status"`
	IssuedAt         time.Time       `json:"issued_at" db:"issued_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
	// Version is bumped on every write and guards concurrent updates.
	Version int `json:"-" db:"version"`
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Terms  int             `json:"terms" validate:"required,gt=0"`
}

type RepaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

type LoanResponse struct {
	Loan     *Loan          `json:"loan"`
	Schedule []*Installment `json:"schedule"`
}

type RepaymentResponse struct {
	Loan      *Loan          `json:"loan"`
	Schedule  []*Installment `json:"schedule"`
	Repayment *Repayment     `json:"repayment"`
}

type OutstandingResponse struct {
	LoanID      string          `json:"loan_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
}
