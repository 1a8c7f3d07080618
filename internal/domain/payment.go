package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Repayment is one payment registered against a loan.
type Repayment struct {
	ID          string                 `json:"id" db:"id"`
	LoanID      string                 `json:"loan_id" db:"loan_id"`
	Amount      decimal.Decimal        `json:"amount" db:"amount"`
	Unallocated decimal.Decimal        `json:"unallocated" db:"unallocated"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
	Allocations []*RepaymentAllocation `json:"allocations" db:"-"`
}

// RepaymentAllocation records how much of a repayment went to a single term.
type RepaymentAllocation struct {
	RepaymentID string          `json:"repayment_id" db:"repayment_id"`
	Term        int             `json:"term" db:"term"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Settled     bool            `json:"settled" db:"settled"`
}
