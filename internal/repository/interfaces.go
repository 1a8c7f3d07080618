package repository

import (
	"context"
	"time"

	"github.com/segyhp/loan-ledger/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create stores a loan together with its schedule in one transaction
	Create(ctx context.Context, loan *domain.Loan, schedule []*domain.Installment) error

	// GetByID retrieves a loan by its ID
	GetByID(ctx context.Context, id string) (*domain.Loan, error)

	// ListByOwner retrieves all loans requested by ownerID, newest first
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Loan, error)

	// UpdateStatus moves a loan from one status to another. It returns
	// ErrConcurrentUpdate when the loan is no longer in status from.
	UpdateStatus(ctx context.Context, id string, from, to domain.LoanStatus) error

	// GetSchedule retrieves the installments of a loan ordered by term
	GetSchedule(ctx context.Context, loanID string) ([]*domain.Installment, error)

	// GetSchedules retrieves installments for several loans keyed by loan ID
	GetSchedules(ctx context.Context, loanIDs []string) (map[string][]*domain.Installment, error)

	// ListOverdueInstallments gets pending installments due before asOf
	ListOverdueInstallments(ctx context.Context, asOf time.Time) ([]*domain.OverdueInstallment, error)

	// ListInstallmentsDueBetween gets pending installments due in [from, to)
	ListInstallmentsDueBetween(ctx context.Context, from, to time.Time) ([]*domain.OverdueInstallment, error)
}

// RepaymentRepository defines the interface for repayment data operations
type RepaymentRepository interface {
	// Save commits the updated installments, the loan status and the
	// repayment with its allocation lines as a single transaction. It returns
	// ErrConcurrentUpdate when the loan version or an installment changed
	// since it was read.
	Save(ctx context.Context, loan *domain.Loan, changed []*domain.Installment, repayment *domain.Repayment) error

	// ListByLoanID retrieves all repayments for a loan, oldest first
	ListByLoanID(ctx context.Context, loanID string) ([]*domain.Repayment, error)
}
