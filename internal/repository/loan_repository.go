package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

const (
	loanColumns        = `id, owner_id, amount, terms, term_duration_days, status, issued_at, created_at, updated_at, version`
	installmentColumns = `id, loan_id, term, amount, amount_paid, due_date, status, paid_at, created_at`
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan, schedule []*domain.Installment) error {
	loanQuery := `
		INSERT INTO loans (id, owner_id, amount, terms, term_duration_days, status, issued_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	installmentQuery := `
		INSERT INTO installments (id, loan_id, term, amount, amount_paid, due_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, loanQuery,
		loan.ID,
		loan.OwnerID,
		loan.Amount,
		loan.Terms,
		loan.TermDurationDays,
		loan.Status,
		loan.IssuedAt,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, installment := range schedule {
		_, err = tx.ExecContext(ctx, installmentQuery,
			installment.ID,
			installment.LoanID,
			installment.Term,
			installment.Amount,
			installment.AmountPaid,
			installment.DueDate,
			installment.Status,
			installment.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE id = $1
	`

	var loan domain.Loan
	err := r.db.GetContext(ctx, &loan, query, id)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	loans := []*domain.Loan{}
	err := r.db.SelectContext(ctx, &loans, query, ownerID)
	if err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) UpdateStatus(ctx context.Context, id string, from, to domain.LoanStatus) error {
	query := `
		UPDATE loans
		SET status = $3, updated_at = $4, version = version + 1
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return err
	}

	return expectOneRow(result, "loan "+id)
}

func (r *loanRepository) GetSchedule(ctx context.Context, loanID string) ([]*domain.Installment, error) {
	query := `
		SELECT ` + installmentColumns + `
		FROM installments
		WHERE loan_id = $1
		ORDER BY term
	`

	schedule := []*domain.Installment{}
	err := r.db.SelectContext(ctx, &schedule, query, loanID)
	if err != nil {
		return nil, err
	}

	return schedule, nil
}

func (r *loanRepository) GetSchedules(ctx context.Context, loanIDs []string) (map[string][]*domain.Installment, error) {
	schedules := make(map[string][]*domain.Installment, len(loanIDs))
	if len(loanIDs) == 0 {
		return schedules, nil
	}

	query, args, err := sqlx.In(`
		SELECT `+installmentColumns+`
		FROM installments
		WHERE loan_id IN (?)
		ORDER BY loan_id, term
	`, loanIDs)
	if err != nil {
		return nil, err
	}

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	for _, installment := range installments {
		schedules[installment.LoanID] = append(schedules[installment.LoanID], installment)
	}

	return schedules, nil
}

func (r *loanRepository) ListOverdueInstallments(ctx context.Context, asOf time.Time) ([]*domain.OverdueInstallment, error) {
	query := `
		SELECT i.id, i.loan_id, i.term, i.amount, i.amount_paid, i.due_date, i.status, i.paid_at, i.created_at, l.owner_id
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE i.status = 'PENDING' AND i.due_date < $1
		ORDER BY i.loan_id, i.term
	`

	var installments []*domain.OverdueInstallment
	err := r.db.SelectContext(ctx, &installments, query, asOf)
	if err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *loanRepository) ListInstallmentsDueBetween(ctx context.Context, from, to time.Time) ([]*domain.OverdueInstallment, error) {
	query := `
		SELECT i.id, i.loan_id, i.term, i.amount, i.amount_paid, i.due_date, i.status, i.paid_at, i.created_at, l.owner_id
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE i.status = 'PENDING' AND i.due_date >= $1 AND i.due_date < $2
		ORDER BY i.due_date, i.loan_id
	`

	var installments []*domain.OverdueInstallment
	err := r.db.SelectContext(ctx, &installments, query, from, to)
	if err != nil {
		return nil, err
	}

	return installments, nil
}

// expectOneRow reports ErrConcurrentUpdate when a guarded write matched no row.
func expectOneRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("%s: %w", what, customError.ErrConcurrentUpdate)
	}
	return nil
}
