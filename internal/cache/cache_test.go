package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnt/blinkwatch/internal/dashboard"
	"github.com/wnt/blinkwatch/internal/models"
)

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, "blinkwatch:snapshot:main", SnapshotKey("main"))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("not a url", time.Minute, zerolog.Nop())
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}

// newTestClient connects to REDIS_URL when RUN_REDIS_TESTS is set
func newTestClient(t *testing.T) *Client {
	t.Helper()
	if os.Getenv("RUN_REDIS_TESTS") == "" {
		t.Skip("set RUN_REDIS_TESTS=1 to run Redis integration tests")
	}

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}

	c, err := NewClient(url, time.Minute, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPublishAndLatest(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	account := "test-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { _ = c.Forget(ctx, account) })

	sats := int64(4200)
	snap := &dashboard.Snapshot{
		Account:          account,
		CycleID:          "0b8e6f5a-8e59-4c8c-9d89-0d4c3f0e8a11",
		TakenAt:          time.Unix(1710497400, 0).UTC(),
		Balances:         models.Balances{BTC: &sats},
		TransactionCount: 1,
		Complete:         true,
		HistoryLoaded:    true,
		Groups: []models.MonthGroup{{Key: "March 2024", Transactions: []models.FormattedTransaction{
			{MonthKey: "March 2024", SignedAmount: "+4,200 sats", Hash: "abc123"},
		}}},
	}

	require.NoError(t, c.Publish(ctx, snap))

	got, err := c.Latest(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, snap.CycleID, got.CycleID)
	assert.True(t, snap.TakenAt.Equal(got.TakenAt))
	require.NotNil(t, got.Balances.BTC)
	assert.Equal(t, sats, *got.Balances.BTC)
	assert.Nil(t, got.Balances.USD)
	assert.Equal(t, snap.Groups, got.Groups)

	ttl, err := c.client.TTL(ctx, SnapshotKey(account)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	times, err := c.LastRefresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1710497400), times[account].Unix())
}

func TestLatest_NotFound(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Latest(context.Background(), "missing-account")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestPrune(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	suffix := time.Now().Format("150405.000000")
	kept, stale := "kept-"+suffix, "stale-"+suffix
	t.Cleanup(func() {
		_ = c.Forget(ctx, kept)
		_ = c.Forget(ctx, stale)
	})

	for _, account := range []string{kept, stale} {
		require.NoError(t, c.Publish(ctx, &dashboard.Snapshot{Account: account, CycleID: account, TakenAt: time.Now()}))
	}

	// Other tests may share the database, so keep everything but stale
	times, err := c.LastRefresh(ctx)
	require.NoError(t, err)
	keep := make([]string, 0, len(times))
	for account := range times {
		if account != stale {
			keep = append(keep, account)
		}
	}

	removed, err := c.Prune(ctx, keep)
	require.NoError(t, err)
	assert.Equal(t, []string{stale}, removed)

	_, err = c.Latest(ctx, stale)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	_, err = c.Latest(ctx, kept)
	assert.NoError(t, err)
}
