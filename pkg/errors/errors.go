package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound         = errors.New("loan not found")
	ErrInvalidLoanAmount    = errors.New("invalid loan amount")
	ErrInvalidLoanTerms     = errors.New("invalid loan terms")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrInvalidScheduleInput = errors.New("invalid schedule input")
	ErrNoOpenInstallment    = errors.New("no open installment")
	ErrInsufficientPayment  = errors.New("payment does not cover the open installment")
	ErrAllocationInvariant  = errors.New("allocation invariant violated")
	ErrLoanAlreadyPaid      = errors.New("loan is already paid")
	ErrLoanLocked           = errors.New("loan is being serviced by another request")
	ErrMissingOwner         = errors.New("owner is required")
	ErrLoanForbidden        = errors.New("loan belongs to another owner")
	ErrConcurrentUpdate     = errors.New("loan was modified concurrently")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound         = "LOAN_NOT_FOUND"
	ErrCodeInvalidLoanAmount    = "INVALID_LOAN_AMOUNT"
	ErrCodeInvalidLoanTerms     = "INVALID_LOAN_TERMS"
	ErrCodeInvalidPaymentAmount = "INVALID_PAYMENT_AMOUNT"
	ErrCodeInvalidSchedule      = "INVALID_SCHEDULE_INPUT"
	ErrCodeNoOpenInstallment    = "NO_OPEN_INSTALLMENT"
	ErrCodeInsufficientPayment  = "INSUFFICIENT_PAYMENT"
	ErrCodeLoanAlreadyPaid      = "LOAN_ALREADY_PAID"
	ErrCodeLoanLocked           = "LOAN_LOCKED"
	ErrCodeMissingOwner         = "MISSING_OWNER"
	ErrCodeLoanForbidden        = "LOAN_FORBIDDEN"
	ErrCodeConcurrentUpdate     = "CONCURRENT_UPDATE"
	ErrCodeInternal             = "INTERNAL_ERROR"
	ErrCodeDatabaseError        = "DATABASE_ERROR"
	ErrCodeCacheError           = "CACHE_ERROR"
)

// CodeOf returns the business code carried by err, or ErrCodeInternal.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeInternal
}

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapInvalidLoanAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanAmount,
		fmt.Sprintf("Invalid loan amount: %s", amount),
		ErrInvalidLoanAmount,
	)
}

func WrapInvalidLoanTerms(terms, maxTerms int) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanTerms,
		fmt.Sprintf("Loan terms %d must be between 1 and %d", terms, maxTerms),
		ErrInvalidLoanTerms,
	)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapInvalidSchedule(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidSchedule,
		"Schedule cannot be generated for the given amount and terms",
		err,
	)
}

func WrapNoOpenInstallment(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoOpenInstallment,
		fmt.Sprintf("Loan with ID %s has no pending term", loanID),
		ErrNoOpenInstallment,
	)
}

func WrapInsufficientPayment(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeInsufficientPayment,
		"Payment amount is less than the open installment",
		err,
	)
}

func WrapLoanAlreadyPaid(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyPaid,
		fmt.Sprintf("Loan with ID %s is already settled", loanID),
		ErrLoanAlreadyPaid,
	)
}

func WrapLoanLocked(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanLocked,
		fmt.Sprintf("Loan with ID %s is busy, retry later", loanID),
		ErrLoanLocked,
	)
}

func WrapMissingOwner() *BusinessError {
	return NewBusinessError(
		ErrCodeMissingOwner,
		"Request has no owner identity",
		ErrMissingOwner,
	)
}

func WrapLoanForbidden(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanForbidden,
		fmt.Sprintf("Loan with ID %s belongs to another owner", loanID),
		ErrLoanForbidden,
	)
}

func WrapConcurrentUpdate(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrentUpdate,
		fmt.Sprintf("Loan with ID %s changed while the request was applied, retry", loanID),
		ErrConcurrentUpdate,
	)
}

func WrapInternal(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeInternal,
		"internal error",
		err,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
