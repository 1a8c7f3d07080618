package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/response"
)

// OwnerHeader carries the caller identity set by the upstream gateway.
const OwnerHeader = "X-User-ID"

type LoanService interface {
	CreateLoan(ctx context.Context, ownerID string, request *domain.CreateLoanRequest) (*domain.Loan, []*domain.Installment, error)
	GetLoan(ctx context.Context, ownerID, loanID string) (*domain.Loan, []*domain.Installment, error)
	ListLoans(ctx context.Context, ownerID string) ([]*domain.LoanResponse, error)
	ApproveLoan(ctx context.Context, loanID string) (*domain.Loan, error)
	Repay(ctx context.Context, ownerID, loanID string, amount decimal.Decimal) (*domain.RepaymentResponse, error)
	GetOutstanding(ctx context.Context, ownerID, loanID string) (decimal.Decimal, error)
	ListRepayments(ctx context.Context, ownerID, loanID string) ([]*domain.Repayment, error)
}

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewLoanHandler(service LoanService, logger *zap.Logger) *LoanHandler {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	return &LoanHandler{
		service:   service,
		validator: v,
		logger:    logger,
	}
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	ownerID := r.Header.Get(OwnerHeader)
	if ownerID == "" {
		h.writeError(w, customError.WrapMissingOwner())
		return
	}

	var req domain.CreateLoanRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, schedule, err := h.service.CreateLoan(r.Context(), ownerID, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, &domain.LoanResponse{Loan: loan, Schedule: schedule})
}

// ListLoans handles GET /api/v1/loans
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListLoans(r.Context(), r.Header.Get(OwnerHeader))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, loans)
}

// GetLoan handles GET /api/v1/loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, schedule, err := h.service.GetLoan(r.Context(), r.Header.Get(OwnerHeader), mux.Vars(r)["loanId"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, &domain.LoanResponse{Loan: loan, Schedule: schedule})
}

// ApproveLoan handles POST /api/v1/loans/{loanId}/approve
func (h *LoanHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.ApproveLoan(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, loan)
}

// Repay handles POST /api/v1/loans/{loanId}/repayments
func (h *LoanHandler) Repay(w http.ResponseWriter, r *http.Request) {
	var req domain.RepaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Repay(r.Context(), r.Header.Get(OwnerHeader), mux.Vars(r)["loanId"], req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, result)
}

// ListRepayments handles GET /api/v1/loans/{loanId}/repayments
func (h *LoanHandler) ListRepayments(w http.ResponseWriter, r *http.Request) {
	repayments, err := h.service.ListRepayments(r.Context(), r.Header.Get(OwnerHeader), mux.Vars(r)["loanId"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, repayments)
}

// GetOutstanding handles GET /api/v1/loans/{loanId}/outstanding
func (h *LoanHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	outstanding, err := h.service.GetOutstanding(r.Context(), r.Header.Get(OwnerHeader), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, &domain.OutstandingResponse{LoanID: loanID, Outstanding: outstanding})
}

// Register mounts the loan routes on router.
func (h *LoanHandler) Register(router *mux.Router) {
	router.HandleFunc("/loans", h.CreateLoan).Methods(http.MethodPost)
	router.HandleFunc("/loans", h.ListLoans).Methods(http.MethodGet)
	router.HandleFunc("/loans/{loanId}", h.GetLoan).Methods(http.MethodGet)
	router.HandleFunc("/loans/{loanId}/approve", h.ApproveLoan).Methods(http.MethodPost)
	router.HandleFunc("/loans/{loanId}/repayments", h.Repay).Methods(http.MethodPost)
	router.HandleFunc("/loans/{loanId}/repayments", h.ListRepayments).Methods(http.MethodGet)
	router.HandleFunc("/loans/{loanId}/outstanding", h.GetOutstanding).Methods(http.MethodGet)
}

func (h *LoanHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return false
	}
	return true
}

func (h *LoanHandler) writeError(w http.ResponseWriter, err error) {
	var be *customError.BusinessError
	if !errors.As(err, &be) {
		h.logger.Error("unhandled error", zap.Error(err))
		response.InternalServerError(w, "Internal server error", nil)
		return
	}

	status := statusFor(be.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("code", be.Code), zap.Error(be.Err))
	}

	response.WithCode(w, status, be.Code, be.Message, nil)
}

func statusFor(code string) int {
	switch code {
	case customError.ErrCodeLoanNotFound:
		return http.StatusNotFound
	case customError.ErrCodeMissingOwner:
		return http.StatusBadRequest
	case customError.ErrCodeLoanForbidden:
		return http.StatusForbidden
	case customError.ErrCodeLoanAlreadyPaid,
		customError.ErrCodeLoanLocked,
		customError.ErrCodeConcurrentUpdate:
		return http.StatusConflict
	case customError.ErrCodeInvalidLoanAmount,
		customError.ErrCodeInvalidLoanTerms,
		customError.ErrCodeInvalidPaymentAmount,
		customError.ErrCodeInvalidSchedule,
		customError.ErrCodeNoOpenInstallment,
		customError.ErrCodeInsufficientPayment:
		return http.StatusUnprocessableEntity
	case customError.ErrCodeCacheError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
