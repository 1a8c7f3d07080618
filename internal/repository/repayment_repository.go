package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-ledger/internal/domain"
)

type repaymentRepository struct {
	db *sqlx.DB
}

func NewRepaymentRepository(db *sqlx.DB) RepaymentRepository {
	return &repaymentRepository{db: db}
}

func (r *repaymentRepository) Save(ctx context.Context, loan *domain.Loan, changed []*domain.Installment, repayment *domain.Repayment) error {
	loanQuery := `
		UPDATE loans
		SET status = $2, updated_at = $3, version = version + 1
		WHERE id = $1 AND version = $4
	`
	installmentQuery := `
		UPDATE installments
		SET amount_paid = $2, status = $3, paid_at = $4
		WHERE id = $1 AND status = 'PENDING'
	`
	repaymentQuery := `
		INSERT INTO repayments (id, loan_id, amount, unallocated, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	allocationQuery := `
		INSERT INTO repayment_allocations (repayment_id, term, amount, settled)
		VALUES ($1, $2, $3, $4)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Writing the loan row first serializes concurrent saves of one loan.
	result, err := tx.ExecContext(ctx, loanQuery, loan.ID, loan.Status, loan.UpdatedAt, loan.Version)
	if err != nil {
		return err
	}
	if err = expectOneRow(result, "loan "+loan.ID); err != nil {
		return err
	}

	for _, installment := range changed {
		result, err = tx.ExecContext(ctx, installmentQuery,
			installment.ID,
			installment.AmountPaid,
			installment.Status,
			installment.PaidAt,
		)
		if err != nil {
			return err
		}
		if err = expectOneRow(result, "installment "+installment.ID); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, repaymentQuery,
		repayment.ID,
		repayment.LoanID,
		repayment.Amount,
		repayment.Unallocated,
		repayment.CreatedAt,
	)
	if err != nil {
		return err
	}

	for _, allocation := range repayment.Allocations {
		_, err = tx.ExecContext(ctx, allocationQuery,
			repayment.ID,
			allocation.Term,
			allocation.Amount,
			allocation.Settled,
		)
		if err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	loan.Version++

	return nil
}

func (r *repaymentRepository) ListByLoanID(ctx context.Context, loanID string) ([]*domain.Repayment, error) {
	query := `
		SELECT id, loan_id, amount, unallocated, created_at
		FROM repayments
		WHERE loan_id = $1
		ORDER BY created_at, id
	`

	repayments := []*domain.Repayment{}
	if err := r.db.SelectContext(ctx, &repayments, query, loanID); err != nil {
		return nil, err
	}
	if len(repayments) == 0 {
		return repayments, nil
	}

	ids := make([]string, 0, len(repayments))
	byID := make(map[string]*domain.Repayment, len(repayments))
	for _, repayment := range repayments {
		ids = append(ids, repayment.ID)
		byID[repayment.ID] = repayment
	}

	allocationQuery, args, err := sqlx.In(`
		SELECT repayment_id, term, amount, settled
		FROM repayment_allocations
		WHERE repayment_id IN (?)
		ORDER BY repayment_id, term
	`, ids)
	if err != nil {
		return nil, err
	}

	var allocations []*domain.RepaymentAllocation
	if err := r.db.SelectContext(ctx, &allocations, r.db.Rebind(allocationQuery), args...); err != nil {
		return nil, err
	}

	for _, allocation := range allocations {
		if repayment, ok := byID[allocation.RepaymentID]; ok {
			repayment.Allocations = append(repayment.Allocations, allocation)
		}
	}

	return repayments, nil
}
