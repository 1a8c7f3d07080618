package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/amortization"
	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/lock"
	"github.com/segyhp/loan-ledger/internal/metrics"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/utils"
)

// Locker grants exclusive access to one loan. The returned func releases it.
type Locker interface {
	Acquire(ctx context.Context, loanID string) (func(context.Context) error, error)
}

type LoanService struct {
	LoanRepo      repository.LoanRepository
	RepaymentRepo repository.RepaymentRepository
	locker        Locker
	config        config.BusinessConfig
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	repaymentRepo repository.RepaymentRepository,
	locker Locker,
	cfg config.BusinessConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *LoanService {
	return &LoanService{
		LoanRepo:      loanRepo,
		RepaymentRepo: repaymentRepo,
		locker:        locker,
		config:        cfg,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

// CreateLoan issues a loan for ownerID and stores it with its schedule
func (s *LoanService) CreateLoan(ctx context.Context, ownerID string, request *domain.CreateLoanRequest) (*domain.Loan, []*domain.Installment, error) {
	if ownerID == "" {
		return nil, nil, customError.WrapMissingOwner()
	}
	if !validAmount(request.Amount) {
		return nil, nil, customError.WrapInvalidLoanAmount(request.Amount.String())
	}
	if request.Terms <= 0 || request.Terms > s.config.MaxTerms {
		return nil, nil, customError.WrapInvalidLoanTerms(request.Terms, s.config.MaxTerms)
	}

	now := s.now().UTC()
	issuedAt := utils.StartOfDay(now)
	loanID := uuid.NewString()

	schedule, err := amortization.GenerateSchedule(loanID, request.Amount, request.Terms, issuedAt, s.config.TermDurationDays)
	if err != nil {
		return nil, nil, customError.WrapInvalidSchedule(err)
	}

	status := domain.LoanStatusPending
	if s.config.AutoApprove {
		status = domain.LoanStatusApproved
	}

	loan := &domain.Loan{
		ID:               loanID,
		OwnerID:          ownerID,
		Amount:           request.Amount,
		Terms:            request.Terms,
		TermDurationDays: s.config.TermDurationDays,
		Status:           status,
		IssuedAt:         issuedAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err = s.LoanRepo.Create(ctx, loan, schedule); err != nil {
		s.logger.Error("failed to store loan", zap.String("loan_id", loanID), zap.Error(err))
		return nil, nil, customError.WrapDatabaseError(err)
	}

	s.metrics.LoansCreated.Inc()
	s.logger.Info("loan created",
		zap.String("loan_id", loanID),
		zap.String("owner_id", ownerID),
		zap.String("amount", request.Amount.StringFixed(2)),
		zap.Int("terms", request.Terms),
		zap.String("status", string(status)),
	)

	return loan, schedule, nil
}

// GetLoan returns a loan of ownerID and its schedule
func (s *LoanService) GetLoan(ctx context.Context, ownerID, loanID string) (*domain.Loan, []*domain.Installment, error) {
	loan, err := s.getOwnedLoan(ctx, ownerID, loanID)
	if err != nil {
		return nil, nil, err
	}

	schedule, err := s.LoanRepo.GetSchedule(ctx, loanID)
	if err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	return loan, schedule, nil
}

// ListLoans returns every loan of ownerID with its schedule
func (s *LoanService) ListLoans(ctx context.Context, ownerID string) ([]*domain.LoanResponse, error) {
	if ownerID == "" {
		return nil, customError.WrapMissingOwner()
	}

	loans, err := s.LoanRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	ids := make([]string, 0, len(loans))
	for _, loan := range loans {
		ids = append(ids, loan.ID)
	}

	schedules, err := s.LoanRepo.GetSchedules(ctx, ids)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	result := make([]*domain.LoanResponse, 0, len(loans))
	for _, loan := range loans {
		schedule := schedules[loan.ID]
		if schedule == nil {
			schedule = []*domain.Installment{}
		}
		result = append(result, &domain.LoanResponse{Loan: loan, Schedule: schedule})
	}

	return result, nil
}

// ApproveLoan moves a pending loan to APPROVED under the loan lock.
// Approving an approved loan is a no-op.
func (s *LoanService) ApproveLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	release, err := s.lockLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	defer release()

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if loan.Status.IsTerminal() {
		return nil, customError.WrapLoanAlreadyPaid(loanID)
	}
	if loan.Status == domain.LoanStatusApproved {
		return loan, nil
	}

	err = s.LoanRepo.UpdateStatus(ctx, loanID, domain.LoanStatusPending, domain.LoanStatusApproved)
	if errors.Is(err, customError.ErrConcurrentUpdate) {
		// Moved on since it was read: a repayment approved or settled it.
		current, err := s.getLoan(ctx, loanID)
		if err != nil {
			return nil, err
		}
		if current.Status.IsTerminal() {
			return nil, customError.WrapLoanAlreadyPaid(loanID)
		}
		return current, nil
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	loan.Status = domain.LoanStatusApproved
	loan.UpdatedAt = s.now().UTC()
	loan.Version++

	s.metrics.LoansApproved.Inc()
	s.logger.Info("loan approved", zap.String("loan_id", loanID))

	return loan, nil
}

// Repay applies amount to the loan's schedule under the per-loan lock and
// commits the result atomically
func (s *LoanService) Repay(ctx context.Context, ownerID, loanID string, amount decimal.Decimal) (*domain.RepaymentResponse, error) {
	response, err := s.repay(ctx, ownerID, loanID, amount)
	if err != nil {
		outcome := metrics.OutcomeRejected
		switch customError.CodeOf(err) {
		case customError.ErrCodeDatabaseError, customError.ErrCodeInternal, customError.ErrCodeCacheError:
			outcome = metrics.OutcomeFailed
		}
		s.metrics.Repayments.WithLabelValues(outcome).Inc()
		return nil, err
	}

	return response, nil
}

func (s *LoanService) repay(ctx context.Context, ownerID, loanID string, amount decimal.Decimal) (*domain.RepaymentResponse, error) {
	if !validAmount(amount) {
		return nil, customError.WrapInvalidPaymentAmount(amount.String())
	}
	if ownerID == "" {
		return nil, customError.WrapMissingOwner()
	}

	release, err := s.lockLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	defer release()

	loan, schedule, err := s.GetLoan(ctx, ownerID, loanID)
	if err != nil {
		return nil, err
	}

	allocator := amortization.Allocator{AllowPartial: s.config.AllowPartialPayment}
	allocation, err := allocator.Apply(loan, schedule, amount)
	switch {
	case err == nil:
	case errors.Is(err, customError.ErrNoOpenInstallment):
		return nil, customError.WrapNoOpenInstallment(loanID)
	case errors.Is(err, customError.ErrInsufficientPayment):
		return nil, customError.WrapInsufficientPayment(err)
	case errors.Is(err, customError.ErrInvalidPaymentAmount):
		return nil, customError.WrapInvalidPaymentAmount(amount.String())
	default:
		s.logger.Error("allocation failed", zap.String("loan_id", loanID), zap.Error(err))
		return nil, customError.WrapInternal(err)
	}

	now := s.now().UTC()
	loan.UpdatedAt = now

	byTerm := make(map[int]*domain.Installment, len(schedule))
	for _, installment := range schedule {
		byTerm[installment.Term] = installment
	}

	repayment := &domain.Repayment{
		ID:          uuid.NewString(),
		LoanID:      loanID,
		Amount:      amount,
		Unallocated: allocation.Unallocated,
		CreatedAt:   now,
		Allocations: make([]*domain.RepaymentAllocation, 0, len(allocation.Lines)),
	}

	changed := make([]*domain.Installment, 0, len(allocation.Lines))
	for _, line := range allocation.Lines {
		installment := byTerm[line.Term]
		if line.Settled {
			installment.PaidAt = &now
		}
		changed = append(changed, installment)
		repayment.Allocations = append(repayment.Allocations, &domain.RepaymentAllocation{
			RepaymentID: repayment.ID,
			Term:        line.Term,
			Amount:      line.Amount,
			Settled:     line.Settled,
		})
	}

	err = s.RepaymentRepo.Save(ctx, loan, changed, repayment)
	if errors.Is(err, customError.ErrConcurrentUpdate) {
		s.logger.Warn("repayment lost a concurrent update", zap.String("loan_id", loanID), zap.Error(err))
		return nil, customError.WrapConcurrentUpdate(loanID)
	}
	if err != nil {
		s.logger.Error("failed to store repayment", zap.String("loan_id", loanID), zap.Error(err))
		return nil, customError.WrapDatabaseError(err)
	}

	outcome := metrics.OutcomeApplied
	if loan.Status == domain.LoanStatusPaid {
		outcome = metrics.OutcomeSettled
	}
	s.metrics.Repayments.WithLabelValues(outcome).Inc()
	s.metrics.InstallmentsSettled.Add(float64(allocation.SettledTerms()))
	s.metrics.RepaidAmount.Add(amount.InexactFloat64())

	s.logger.Info("repayment applied",
		zap.String("loan_id", loanID),
		zap.String("repayment_id", repayment.ID),
		zap.String("amount", amount.StringFixed(2)),
		zap.Int("settled_terms", allocation.SettledTerms()),
		zap.String("unallocated", allocation.Unallocated.StringFixed(2)),
		zap.String("loan_status", string(loan.Status)),
	)

	return &domain.RepaymentResponse{Loan: loan, Schedule: schedule, Repayment: repayment}, nil
}

// GetOutstanding returns the amount still owed on a loan
func (s *LoanService) GetOutstanding(ctx context.Context, ownerID, loanID string) (decimal.Decimal, error) {
	_, schedule, err := s.GetLoan(ctx, ownerID, loanID)
	if err != nil {
		return decimal.Zero, err
	}

	return amortization.Outstanding(schedule), nil
}

// ListRepayments returns the repayments registered against a loan
func (s *LoanService) ListRepayments(ctx context.Context, ownerID, loanID string) ([]*domain.Repayment, error) {
	if _, err := s.getOwnedLoan(ctx, ownerID, loanID); err != nil {
		return nil, err
	}

	repayments, err := s.RepaymentRepo.ListByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return repayments, nil
}

// lockLoan takes the per-loan lock. The returned func releases it and logs
// release failures.
func (s *LoanService) lockLoan(ctx context.Context, loanID string) (func(), error) {
	release, err := s.locker.Acquire(ctx, loanID)
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, customError.WrapLoanLocked(loanID)
	}
	if err != nil {
		return nil, customError.WrapCacheError(err)
	}

	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release loan lock", zap.String("loan_id", loanID), zap.Error(err))
		}
	}, nil
}

func (s *LoanService) getOwnedLoan(ctx context.Context, ownerID, loanID string) (*domain.Loan, error) {
	if ownerID == "" {
		return nil, customError.WrapMissingOwner()
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.OwnerID != ownerID {
		return nil, customError.WrapLoanForbidden(loanID)
	}

	return loan, nil
}

func (s *LoanService) getLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByID(ctx, loanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapLoanNotFound(loanID)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

// validAmount accepts positive amounts in whole cents that fit the ledger columns.
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && utils.HasCurrencyPrecision(amount) && !amount.GreaterThan(domain.MaxAmount)
}
