package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordGraphQLRequest(t *testing.T) {
	before := testutil.ToFloat64(GraphQLRequestsTotal.WithLabelValues("Me", "success"))

	RecordGraphQLRequest("Me", "success", 0.2)
	RecordGraphQLRequest("Me", "success", 0.3)

	after := testutil.ToFloat64(GraphQLRequestsTotal.WithLabelValues("Me", "success"))
	assert.Equal(t, before+2, after)
}

func TestSetWalletBalance(t *testing.T) {
	SetWalletBalance("main", "BTC", 150000)
	assert.Equal(t, 150000.0, testutil.ToFloat64(WalletBalance.WithLabelValues("main", "BTC")))

	SetWalletBalance("main", "BTC", 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(WalletBalance.WithLabelValues("main", "BTC")))
}

func TestRecordRefreshCycle(t *testing.T) {
	before := testutil.ToFloat64(RefreshCyclesTotal.WithLabelValues("alt", "failed"))
	RecordRefreshCycle("alt", "failed", 1.5)
	assert.Equal(t, before+1, testutil.ToFloat64(RefreshCyclesTotal.WithLabelValues("alt", "failed")))
}

func TestSetAccountHealth(t *testing.T) {
	SetAccountHealth("shop", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(AccountHealthy.WithLabelValues("shop")))

	SetAccountHealth("shop", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(AccountHealthy.WithLabelValues("shop")))
}

func TestRecordSinkOperation(t *testing.T) {
	before := testutil.ToFloat64(SinkOperations.WithLabelValues("redis", "error"))
	RecordSinkOperation("redis", "error")
	assert.Equal(t, before+1, testutil.ToFloat64(SinkOperations.WithLabelValues("redis", "error")))
}
