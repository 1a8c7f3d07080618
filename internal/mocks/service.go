package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-ledger/internal/domain"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, ownerID string, request *domain.CreateLoanRequest) (*domain.Loan, []*domain.Installment, error) {
	args := m.Called(ctx, ownerID, request)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Loan), args.Get(1).([]*domain.Installment), args.Error(2)
}

func (m *MockLoanService) GetLoan(ctx context.Context, ownerID, loanID string) (*domain.Loan, []*domain.Installment, error) {
	args := m.Called(ctx, ownerID, loanID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Loan), args.Get(1).([]*domain.Installment), args.Error(2)
}

func (m *MockLoanService) ListLoans(ctx context.Context, ownerID string) ([]*domain.LoanResponse, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanResponse), args.Error(1)
}

func (m *MockLoanService) ApproveLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) Repay(ctx context.Context, ownerID, loanID string, amount decimal.Decimal) (*domain.RepaymentResponse, error) {
	args := m.Called(ctx, ownerID, loanID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepaymentResponse), args.Error(1)
}

func (m *MockLoanService) GetOutstanding(ctx context.Context, ownerID, loanID string) (decimal.Decimal, error) {
	args := m.Called(ctx, ownerID, loanID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLoanService) ListRepayments(ctx context.Context, ownerID, loanID string) ([]*domain.Repayment, error) {
	args := m.Called(ctx, ownerID, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Repayment), args.Error(1)
}
