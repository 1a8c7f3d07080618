// Package amortization splits a loan principal into a repayment schedule and
// allocates incoming payments against it. Everything here is pure: callers
// own persistence, clocks and locking.
package amortization

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/utils"
)

// DefaultTermDurationDays is the spacing between two due dates.
const DefaultTermDurationDays = 7

// currencyPlaces is the minor-unit precision every amount is rounded to.
const currencyPlaces = 2

// GenerateSchedule splits principal into termCount installments of
// round(principal/termCount, 2). The rounding remainder is folded into the
// last installment so the amounts always sum to principal exactly.
// Installment k is due issuedAt + k*termDurationDays.
func GenerateSchedule(loanID string, principal decimal.Decimal, termCount int, issuedAt time.Time, termDurationDays int) ([]*domain.Installment, error) {
	if !principal.IsPositive() {
		return nil, fmt.Errorf("principal %s must be positive: %w", principal, customError.ErrInvalidScheduleInput)
	}
	if termCount <= 0 {
		return nil, fmt.Errorf("term count %d must be positive: %w", termCount, customError.ErrInvalidScheduleInput)
	}
	if termDurationDays <= 0 {
		return nil, fmt.Errorf("term duration %d must be positive: %w", termDurationDays, customError.ErrInvalidScheduleInput)
	}

	count := decimal.NewFromInt(int64(termCount))
	baseAmount := principal.Div(count).Round(currencyPlaces)
	remainder := principal.Sub(baseAmount.Mul(count).Round(currencyPlaces))
	lastAmount := baseAmount.Add(remainder)

	// Principals too small for the term count round down to empty terms.
	if !baseAmount.IsPositive() || !lastAmount.IsPositive() {
		return nil, fmt.Errorf("principal %s cannot be split into %d terms: %w", principal, termCount, customError.ErrInvalidScheduleInput)
	}

	schedule := make([]*domain.Installment, 0, termCount)
	for term := 1; term <= termCount; term++ {
		amount := baseAmount
		if term == termCount {
			amount = lastAmount
		}

		schedule = append(schedule, &domain.Installment{
			ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", loanID, term))).String(),
			LoanID:     loanID,
			Term:       term,
			Amount:     amount,
			AmountPaid: decimal.Zero,
			DueDate:    utils.CalculateDueDate(issuedAt, term, termDurationDays),
			Status:     domain.InstallmentStatusPending,
			CreatedAt:  issuedAt,
		})
	}

	return schedule, nil
}

// Outstanding returns the amount still owed across all pending installments.
func Outstanding(schedule []*domain.Installment) decimal.Decimal {
	total := decimal.Zero
	for _, installment := range schedule {
		if installment.Status == domain.InstallmentStatusPending {
			total = total.Add(installment.Remaining())
		}
	}
	return total
}
