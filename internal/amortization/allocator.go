package amortization

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

// Line is the part of a payment that was applied to one term.
type Line struct {
	Term    int
	Amount  decimal.Decimal
	Settled bool
}

// Allocation is the outcome of applying one payment to a schedule.
type Allocation struct {
	Lines []Line
	// Unallocated is what is left of the payment once every term is settled.
	Unallocated decimal.Decimal
	LoanStatus  domain.LoanStatus
}

// SettledTerms returns how many installments the payment settled.
func (a *Allocation) SettledTerms() int {
	n := 0
	for _, line := range a.Lines {
		if line.Settled {
			n++
		}
	}
	return n
}

// Allocator applies payments to the earliest open installment and cascades
// any excess forward in term order.
type Allocator struct {
	// AllowPartial accepts payments smaller than the open installment. When
	// false such payments fail with ErrInsufficientPayment.
	AllowPartial bool
}

// ApplyPayment applies amount with partial payments allowed.
func ApplyPayment(loan *domain.Loan, schedule []*domain.Installment, amount decimal.Decimal) (*Allocation, error) {
	return Allocator{AllowPartial: true}.Apply(loan, schedule, amount)
}

// Apply mutates schedule and loan.Status in place. The caller must hold the
// loan exclusively for the duration of the call and persist both as one unit.
func (a Allocator) Apply(loan *domain.Loan, schedule []*domain.Installment, amount decimal.Decimal) (*Allocation, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payment %s must be positive: %w", amount, customError.ErrInvalidPaymentAmount)
	}

	open := openInstallments(schedule)
	if len(open) == 0 {
		return nil, customError.ErrNoOpenInstallment
	}

	if !a.AllowPartial && amount.LessThan(open[0].Remaining()) {
		return nil, fmt.Errorf("payment %s is below term %d remaining %s: %w",
			amount, open[0].Term, open[0].Remaining(), customError.ErrInsufficientPayment)
	}

	result := &Allocation{Unallocated: decimal.Zero}
	remaining := amount
	next := 0

	// Each pass settles one installment, so the loop is bounded by len(open).
	for next < len(open) && remaining.IsPositive() {
		current := open[next]
		owed := current.Remaining()

		if remaining.LessThan(owed) {
			current.AmountPaid = current.AmountPaid.Add(remaining)
			result.Lines = append(result.Lines, Line{Term: current.Term, Amount: remaining})
			remaining = decimal.Zero
			break
		}

		excess := remaining.Sub(owed)
		if excess.IsNegative() || !owed.IsPositive() {
			return nil, fmt.Errorf("term %d owes %s with excess %s: %w", current.Term, owed, excess, customError.ErrAllocationInvariant)
		}

		current.AmountPaid = current.Amount
		current.Status = domain.InstallmentStatusPaid
		result.Lines = append(result.Lines, Line{Term: current.Term, Amount: owed, Settled: true})

		remaining = excess
		next++
	}

	if next == len(open) {
		loan.Status = domain.LoanStatusPaid
		result.Unallocated = remaining
	} else {
		loan.Status = domain.LoanStatusApproved
	}
	result.LoanStatus = loan.Status

	return result, nil
}

// openInstallments returns the pending installments ordered by term.
func openInstallments(schedule []*domain.Installment) []*domain.Installment {
	open := make([]*domain.Installment, 0, len(schedule))
	for _, installment := range schedule {
		if installment.Status == domain.InstallmentStatusPending {
			open = append(open, installment)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		return open[i].Term < open[j].Term
	})
	return open
}
