package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "loan_ledger"

// Repayment outcomes used as the "outcome" label.
const (
	OutcomeApplied  = "applied"
	OutcomeSettled  = "settled_loan"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics holds the ledger's prometheus collectors.
type Metrics struct {
	LoansCreated        prometheus.Counter
	LoansApproved       prometheus.Counter
	Repayments          *prometheus.CounterVec
	InstallmentsSettled prometheus.Counter
	RepaidAmount        prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		LoansCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_created_total",
			Help:      "Loans issued with a generated schedule.",
		}),
		LoansApproved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_approved_total",
			Help:      "Loans moved from PENDING to APPROVED by explicit approval.",
		}),
		Repayments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repayments_total",
			Help:      "Repayment requests by outcome.",
		}, []string{"outcome"}),
		InstallmentsSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installments_settled_total",
			Help:      "Installments moved to PAID.",
		}),
		RepaidAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repaid_amount_total",
			Help:      "Sum of accepted repayment amounts.",
		}),
		gatherer: reg,
	}

	reg.MustRegister(m.LoansCreated, m.LoansApproved, m.Repayments, m.InstallmentsSettled, m.RepaidAmount)

	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
