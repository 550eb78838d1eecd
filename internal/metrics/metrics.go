// Package metrics defines the Prometheus collectors exported by the client and agent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector of this package.
var Registry = prometheus.NewRegistry()

var (
	// LoginOutcomes counts completed login attempts by outcome.
	LoginOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "suizk",
		Name:      "login_outcomes_total",
		Help:      "Login completions by outcome.",
	}, []string{"outcome"})

	// ProofDuration observes proving-service latency.
	ProofDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "suizk",
		Name:      "proof_request_seconds",
		Help:      "Proving service round-trip time.",
		Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32},
	})

	// Transactions counts submitted transactions by result.
	Transactions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "suizk",
		Name:      "transactions_total",
		Help:      "Submitted transactions by result.",
	}, []string{"result"})

	// BalanceRefreshes counts balance refresh cycles.
	BalanceRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "suizk",
		Name:      "balance_refreshes_total",
		Help:      "Balance lookups by result.",
	}, []string{"result"})

	// Busy reports whether a long operation currently holds the busy indicator.
	Busy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "suizk",
		Name:      "busy",
		Help:      "Number of long operations in flight.",
	})
)

func init() {
	Registry.MustRegister(LoginOutcomes, ProofDuration, Transactions, BalanceRefreshes, Busy)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
