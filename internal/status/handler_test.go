package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnt/blinkwatch/internal/accounts"
	"github.com/wnt/blinkwatch/internal/cache"
	"github.com/wnt/blinkwatch/internal/config"
	"github.com/wnt/blinkwatch/internal/dashboard"
	"github.com/wnt/blinkwatch/internal/graphql"
	"github.com/wnt/blinkwatch/internal/models"
)

type fakeStats struct{}

func (fakeStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"accounts": 2, "healthy_accounts": 1}
}

type fakeSnapshots struct {
	snapshots map[string]*dashboard.Snapshot
	refreshed map[string]time.Time
	err       error
}

func (f *fakeSnapshots) Latest(ctx context.Context, account string) (*dashboard.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	snap, ok := f.snapshots[account]
	if !ok {
		return nil, cache.ErrSnapshotNotFound
	}
	return snap, nil
}

func (f *fakeSnapshots) LastRefresh(ctx context.Context) (map[string]time.Time, error) {
	return f.refreshed, f.err
}

type fakeHistory struct {
	limits []int
}

func (f *fakeHistory) Recent(ctx context.Context, account string, limit int) ([]models.BalanceRecord, error) {
	f.limits = append(f.limits, limit)
	sats := int64(1000)
	return []models.BalanceRecord{{Account: account, BTCSats: &sats, CycleID: "c1"}}, nil
}

func newTestRegistry(t *testing.T) *accounts.Registry {
	t.Helper()
	exec := graphql.ExecutorFunc(func(ctx context.Context, query string, vars map[string]any) (json.RawMessage, error) {
		return nil, errors.New("not used")
	})
	registry, err := accounts.New(
		[]config.Account{{Name: "personal", APIKey: "key-1"}, {Name: "shop", APIKey: "key-2"}},
		func(config.Account) graphql.Executor { return exec },
		zerolog.Nop(),
	)
	require.NoError(t, err)
	registry.MarkUnhealthy("shop", &graphql.Error{Kind: graphql.KindUnauthorized, StatusCode: 401})
	return registry
}

func serve(t *testing.T, h *Handler, path string) (int, map[string]any) {
	t.Helper()
	r := mux.NewRouter()
	h.Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestOverview(t *testing.T) {
	refreshed := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	snapshots := &fakeSnapshots{refreshed: map[string]time.Time{"personal": refreshed}}
	h := NewHandler(fakeStats{}, newTestRegistry(t), zerolog.Nop(), WithSnapshots(snapshots))

	code, body := serve(t, h, "/status")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["accounts"])
	assert.Equal(t, map[string]any{"personal": "2024-03-15T10:30:00Z"}, body["last_refresh"])
}

func TestOverview_WithoutCache(t *testing.T) {
	code, body := serve(t, NewHandler(fakeStats{}, newTestRegistry(t), zerolog.Nop()), "/status")
	assert.Equal(t, http.StatusOK, code)
	assert.NotContains(t, body, "last_refresh")
}

func TestOverview_CacheFailure(t *testing.T) {
	snapshots := &fakeSnapshots{err: errors.New("connection refused")}
	code, body := serve(t, NewHandler(fakeStats{}, newTestRegistry(t), zerolog.Nop(), WithSnapshots(snapshots)), "/status")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cache unavailable", body["last_refresh_error"])
}

func TestAccount(t *testing.T) {
	snapshots := &fakeSnapshots{snapshots: map[string]*dashboard.Snapshot{
		"shop": {Account: "shop", CycleID: "c9", BalanceStatus: "Invalid API key", HistoryStatus: "Invalid API key"},
	}}
	history := &fakeHistory{}
	h := NewHandler(fakeStats{}, newTestRegistry(t), zerolog.Nop(), WithSnapshots(snapshots), WithHistory(history))

	code, body := serve(t, h, "/status/shop?limit=500")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, dashboard.StatusFailed, body["status"])

	account := body["account"].(map[string]any)
	assert.Equal(t, "shop", account["name"])
	assert.Equal(t, false, account["healthy"])

	snapshot := body["snapshot"].(map[string]any)
	assert.Equal(t, "c9", snapshot["cycleId"])
	assert.Len(t, body["balance_history"], 1)
	assert.Equal(t, []int{maxHistoryLimit}, history.limits)
}

func TestAccount_NoSnapshotYet(t *testing.T) {
	history := &fakeHistory{}
	h := NewHandler(fakeStats{}, newTestRegistry(t), zerolog.Nop(), WithSnapshots(&fakeSnapshots{}), WithHistory(history))

	code, body := serve(t, h, "/status/personal")
	assert.Equal(t, http.StatusOK, code)
	assert.NotContains(t, body, "snapshot")
	assert.NotContains(t, body, "snapshot_error")
	assert.Equal(t, []int{defaultHistoryLimit}, history.limits)
}

func TestAccount_Errors(t *testing.T) {
	h := NewHandler(fakeStats{}, newTestRegistry(t), zerolog.Nop())

	code, body := serve(t, h, "/status/nobody")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "unknown_account", body["error"])

	code, body = serve(t, h, "/status/personal?limit=zero")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_limit", body["error"])
}
