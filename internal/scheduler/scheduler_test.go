package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/mocks"
)

var now = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		OverdueSpec:    "0 0 0 * * *",
		ReminderSpec:   "0 0 9 * * SUN",
		ReminderWindow: 72 * time.Hour,
		Timezone:       "UTC",
	}
}

func newTestScheduler(source InstallmentSource, logger *zap.Logger) *Scheduler {
	s := New(source, testConfig(), time.UTC, logger)
	s.now = func() time.Time { return now }
	return s
}

func installment(loanID, owner string, term int, amount string, due time.Time) *domain.OverdueInstallment {
	return &domain.OverdueInstallment{
		Installment: domain.Installment{
			LoanID:  loanID,
			Term:    term,
			Amount:  decimal.RequireFromString(amount),
			DueDate: due,
			Status:  domain.InstallmentStatusPending,
		},
		OwnerID: owner,
	}
}

func TestOverdueReport_GroupsPerLoan(t *testing.T) {
	repo := new(mocks.MockLoanRepository)
	repo.On("ListOverdueInstallments", mock.Anything, now).Return([]*domain.OverdueInstallment{
		installment("loan-1", "user-1", 1, "3.33", now.AddDate(0, 0, -14)),
		installment("loan-1", "user-1", 2, "3.33", now.AddDate(0, 0, -7)),
		installment("loan-2", "user-2", 4, "25.00", now.AddDate(0, 0, -1)),
	}, nil)

	core, logs := observer.New(zap.InfoLevel)
	report, err := newTestScheduler(repo, zap.New(core)).OverdueReport(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Loans, 2)
	assert.Equal(t, []int{1, 2}, report.Loans[0].Terms)
	assert.Equal(t, "6.66", report.Loans[0].Amount.StringFixed(2))
	assert.Equal(t, 14, report.Loans[0].DaysOverdue)
	assert.Equal(t, 1, report.Loans[1].DaysOverdue)
	assert.Equal(t, "31.66", report.Total.StringFixed(2))

	assert.Equal(t, 2, logs.FilterMessage("loan in arrears").Len())
	assert.Equal(t, 1, logs.FilterMessage("overdue report").Len())
}

func TestOverdueReport_Empty(t *testing.T) {
	repo := new(mocks.MockLoanRepository)
	repo.On("ListOverdueInstallments", mock.Anything, now).Return([]*domain.OverdueInstallment{}, nil)

	report, err := newTestScheduler(repo, zap.NewNop()).OverdueReport(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Loans)
	assert.True(t, report.Total.IsZero())
}

func TestOverdueReport_SourceError(t *testing.T) {
	repo := new(mocks.MockLoanRepository)
	repo.On("ListOverdueInstallments", mock.Anything, now).Return(nil, errors.New("connection reset"))

	_, err := newTestScheduler(repo, zap.NewNop()).OverdueReport(context.Background())
	assert.EqualError(t, err, "connection reset")
}

func TestDueSoon(t *testing.T) {
	repo := new(mocks.MockLoanRepository)
	repo.On("ListInstallmentsDueBetween", mock.Anything, now, now.Add(72*time.Hour)).Return([]*domain.OverdueInstallment{
		installment("loan-1", "user-1", 3, "3.34", now.AddDate(0, 0, 2)),
	}, nil)

	reminders, err := newTestScheduler(repo, zap.NewNop()).DueSoon(context.Background())
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "user-1", reminders[0].OwnerID)
	assert.Equal(t, 3, reminders[0].Term)
	repo.AssertExpectations(t)
}

func TestOverdueReport_CountsOnlyUnpaidPart(t *testing.T) {
	partial := installment("loan-1", "user-1", 1, "3.33", now.AddDate(0, 0, -7))
	partial.AmountPaid = decimal.RequireFromString("1.00")

	repo := new(mocks.MockLoanRepository)
	repo.On("ListOverdueInstallments", mock.Anything, now).Return([]*domain.OverdueInstallment{partial}, nil)

	report, err := newTestScheduler(repo, zap.NewNop()).OverdueReport(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Loans, 1)
	assert.Equal(t, "2.33", report.Loans[0].Amount.StringFixed(2))
	assert.Equal(t, "2.33", report.Total.StringFixed(2))
}

func TestStart_InvalidSpec(t *testing.T) {
	cfg := testConfig()
	cfg.OverdueSpec = "not a cron spec"
	s := New(new(mocks.MockLoanRepository), cfg, time.UTC, zap.NewNop())

	err := s.Start()
	assert.ErrorContains(t, err, "overdue job")
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(new(mocks.MockLoanRepository), zap.NewNop())
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.Len(t, s.cron.Entries(), 2)
}
