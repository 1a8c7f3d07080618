package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/pkg/utils"
)

// InstallmentSource lists open installments by due date.
type InstallmentSource interface {
	ListOverdueInstallments(ctx context.Context, asOf time.Time) ([]*domain.OverdueInstallment, error)
	ListInstallmentsDueBetween(ctx context.Context, from, to time.Time) ([]*domain.OverdueInstallment, error)
}

// Arrears summarizes the overdue installments of one loan.
type Arrears struct {
	LoanID      string
	OwnerID     string
	Terms       []int
	Amount      decimal.Decimal
	OldestDue   time.Time
	DaysOverdue int
}

type OverdueReport struct {
	AsOf  time.Time
	Loans []*Arrears
	Total decimal.Decimal
}

type Reminder struct {
	LoanID  string
	OwnerID string
	Term    int
	Amount  decimal.Decimal
	DueDate time.Time
}

type Scheduler struct {
	cron   *cron.Cron
	source InstallmentSource
	config config.SchedulerConfig
	logger *zap.Logger
	now    func() time.Time
}

func New(source InstallmentSource, cfg config.SchedulerConfig, location *time.Location, logger *zap.Logger) *Scheduler {
	cronLog := cronLogger{logger: logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(location),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		source: source,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Start registers the report jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.config.OverdueSpec, s.runOverdue); err != nil {
		return fmt.Errorf("scheduler: overdue job %q: %w", s.config.OverdueSpec, err)
	}
	if _, err := s.cron.AddFunc(s.config.ReminderSpec, s.runReminders); err != nil {
		return fmt.Errorf("scheduler: reminder job %q: %w", s.config.ReminderSpec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("overdue_spec", s.config.OverdueSpec),
		zap.String("reminder_spec", s.config.ReminderSpec),
	)
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) runOverdue() {
	if _, err := s.OverdueReport(context.Background()); err != nil {
		s.logger.Error("overdue report failed", zap.Error(err))
	}
}

func (s *Scheduler) runReminders() {
	if _, err := s.DueSoon(context.Background()); err != nil {
		s.logger.Error("reminder report failed", zap.Error(err))
	}
}

// OverdueReport groups pending installments past their due date per loan.
func (s *Scheduler) OverdueReport(ctx context.Context) (*OverdueReport, error) {
	asOf := s.now().UTC()

	installments, err := s.source.ListOverdueInstallments(ctx, asOf)
	if err != nil {
		return nil, err
	}

	report := &OverdueReport{AsOf: asOf, Total: decimal.Zero}
	byLoan := make(map[string]*Arrears)
	for _, installment := range installments {
		if !utils.IsDateOverdue(installment.DueDate, asOf) {
			continue
		}

		arrears, ok := byLoan[installment.LoanID]
		if !ok {
			arrears = &Arrears{
				LoanID:    installment.LoanID,
				OwnerID:   installment.OwnerID,
				Amount:    decimal.Zero,
				OldestDue: installment.DueDate,
			}
			byLoan[installment.LoanID] = arrears
			report.Loans = append(report.Loans, arrears)
		}

		arrears.Terms = append(arrears.Terms, installment.Term)
		arrears.Amount = arrears.Amount.Add(installment.Remaining())
		if installment.DueDate.Before(arrears.OldestDue) {
			arrears.OldestDue = installment.DueDate
		}
		report.Total = report.Total.Add(installment.Remaining())
	}

	for _, arrears := range report.Loans {
		arrears.DaysOverdue = utils.DaysOverdue(arrears.OldestDue, asOf)
		s.logger.Warn("loan in arrears",
			zap.String("loan_id", arrears.LoanID),
			zap.String("owner_id", arrears.OwnerID),
			zap.Ints("terms", arrears.Terms),
			zap.String("amount", arrears.Amount.StringFixed(2)),
			zap.Int("days_overdue", arrears.DaysOverdue),
		)
	}

	s.logger.Info("overdue report",
		zap.Int("loans", len(report.Loans)),
		zap.String("total", report.Total.StringFixed(2)),
	)

	return report, nil
}

// DueSoon lists pending installments falling due inside the reminder window.
func (s *Scheduler) DueSoon(ctx context.Context) ([]*Reminder, error) {
	from := s.now().UTC()
	to := from.Add(s.config.ReminderWindow)

	installments, err := s.source.ListInstallmentsDueBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	reminders := make([]*Reminder, 0, len(installments))
	for _, installment := range installments {
		reminder := &Reminder{
			LoanID:  installment.LoanID,
			OwnerID: installment.OwnerID,
			Term:    installment.Term,
			Amount:  installment.Remaining(),
			DueDate: installment.DueDate,
		}
		reminders = append(reminders, reminder)

		s.logger.Info("installment due soon",
			zap.String("loan_id", reminder.LoanID),
			zap.String("owner_id", reminder.OwnerID),
			zap.Int("term", reminder.Term),
			zap.String("amount", reminder.Amount.StringFixed(2)),
			zap.Time("due_date", reminder.DueDate),
		)
	}

	s.logger.Info("reminder report", zap.Int("reminders", len(reminders)), zap.Duration("window", s.config.ReminderWindow))

	return reminders, nil
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
