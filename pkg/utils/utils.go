package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculateDueDate calculates the due date for a specific term.
// Term 1 is due termDurationDays after issuance, term 2 twice that, etc.
func CalculateDueDate(issuedAt time.Time, term int, termDurationDays int) time.Time {
	return issuedAt.AddDate(0, 0, term*termDurationDays)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DaysOverdue returns how many whole days have passed since dueDate, or 0
// when dueDate is not yet reached.
func DaysOverdue(dueDate time.Time, now time.Time) int {
	if !now.After(dueDate) {
		return 0
	}
	return int(now.Sub(dueDate).Hours() / 24)
}

// IsDateOverdue checks if a date is overdue relative to now
func IsDateOverdue(dueDate time.Time, now time.Time) bool {
	return now.After(dueDate)
}

// HasCurrencyPrecision reports whether d carries at most two decimal places.
func HasCurrencyPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
