package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GraphQLRequestsTotal tracks GraphQL requests by operation and status
	GraphQLRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blinkwatch_graphql_requests_total",
			Help: "The total number of GraphQL requests",
		},
		[]string{"operation", "status"}, // success, unauthorized, not_found, network, other
	)

	// GraphQLRequestSeconds tracks GraphQL round-trip latency
	GraphQLRequestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blinkwatch_graphql_request_seconds",
			Help:    "Time taken by a single GraphQL request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// TransactionPagesFetched tracks transaction pages received
	TransactionPagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blinkwatch_transaction_pages_fetched_total",
		Help: "The total number of transaction pages fetched",
	})

	// RefreshCyclesTotal tracks refresh cycles by account and outcome
	RefreshCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blinkwatch_refresh_cycles_total",
			Help: "The total number of refresh cycles",
		},
		[]string{"account", "status"}, // success, partial, failed
	)

	// RefreshCycleSeconds tracks time taken by one refresh cycle
	RefreshCycleSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "blinkwatch_refresh_cycle_seconds",
		Help:    "Time taken by one refresh cycle in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
	})

	// WalletBalance tracks the last observed balance in minor units
	WalletBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blinkwatch_wallet_balance_minor_units",
			Help: "Last observed wallet balance in minor units (satoshis, cents)",
		},
		[]string{"account", "currency"},
	)

	// TransactionsListed tracks the size of the last fetched history
	TransactionsListed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blinkwatch_transactions_listed",
			Help: "Number of transactions in the last fetched history",
		},
		[]string{"account"},
	)

	// AccountHealthy tracks whether the last cycle of an account reached the API
	AccountHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blinkwatch_account_healthy",
			Help: "Whether the last refresh of the account succeeded (1 = healthy, 0 = unhealthy)",
		},
		[]string{"account"},
	)

	// SinkOperations tracks snapshot publishing by sink
	SinkOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blinkwatch_sink_operations_total",
			Help: "The total number of snapshot sink operations",
		},
		[]string{"sink", "status"},
	)
)

// RecordGraphQLRequest records a GraphQL request with the given status
func RecordGraphQLRequest(operation, status string, seconds float64) {
	GraphQLRequestsTotal.WithLabelValues(operation, status).Inc()
	GraphQLRequestSeconds.WithLabelValues(operation).Observe(seconds)
}

// RecordTransactionPage records one fetched transaction page
func RecordTransactionPage() {
	TransactionPagesFetched.Inc()
}

// RecordRefreshCycle records a completed refresh cycle
func RecordRefreshCycle(account, status string, seconds float64) {
	RefreshCyclesTotal.WithLabelValues(account, status).Inc()
	RefreshCycleSeconds.Observe(seconds)
}

// SetWalletBalance sets the balance gauge of one account currency
func SetWalletBalance(account, currency string, minorUnits int64) {
	WalletBalance.WithLabelValues(account, currency).Set(float64(minorUnits))
}

// SetTransactionsListed sets the history size gauge of one account
func SetTransactionsListed(account string, count int) {
	TransactionsListed.WithLabelValues(account).Set(float64(count))
}

// RecordSinkOperation records a snapshot sink write
func RecordSinkOperation(sink, status string) {
	SinkOperations.WithLabelValues(sink, status).Inc()
}

// SetAccountHealth sets the health status of an account
func SetAccountHealth(account string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	AccountHealthy.WithLabelValues(account).Set(value)
}
