package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/wnt/blinkwatch/internal/accounts"
	"github.com/wnt/blinkwatch/internal/cache"
	"github.com/wnt/blinkwatch/internal/dashboard"
	"github.com/wnt/blinkwatch/internal/models"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// StatsSource reports manager statistics
type StatsSource interface {
	GetStats() map[string]interface{}
}

// SnapshotSource reads published snapshots
type SnapshotSource interface {
	Latest(ctx context.Context, account string) (*dashboard.Snapshot, error)
	LastRefresh(ctx context.Context) (map[string]time.Time, error)
}

// HistorySource reads recorded balances
type HistorySource interface {
	Recent(ctx context.Context, account string, limit int) ([]models.BalanceRecord, error)
}

// Handler serves account health and the latest published data as JSON
type Handler struct {
	stats     StatsSource
	registry  *accounts.Registry
	snapshots SnapshotSource
	history   HistorySource
	logger    zerolog.Logger
}

// Option configures a Handler
type Option func(*Handler)

// WithSnapshots adds cached snapshots and refresh times to responses
func WithSnapshots(source SnapshotSource) Option {
	return func(h *Handler) {
		h.snapshots = source
	}
}

// WithHistory adds recorded balance history to account responses
func WithHistory(source HistorySource) Option {
	return func(h *Handler) {
		h.history = source
	}
}

func NewHandler(stats StatsSource, registry *accounts.Registry, logger zerolog.Logger, options ...Option) *Handler {
	h := &Handler{
		stats:    stats,
		registry: registry,
		logger:   logger.With().Str("component", "status").Logger(),
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// Register adds the status routes to r
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/status", h.Overview).Methods(http.MethodGet)
	r.HandleFunc("/status/{account}", h.Account).Methods(http.MethodGet)
}

// Overview reports every account's health and last refresh time
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	body := h.stats.GetStats()

	if h.snapshots != nil {
		refreshed, err := h.snapshots.LastRefresh(r.Context())
		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to read last refresh times")
			body["last_refresh_error"] = "cache unavailable"
		} else {
			body["last_refresh"] = refreshed
		}
	}

	h.respondWithJSON(w, http.StatusOK, body)
}

// Account reports one account's health, its latest snapshot and recent
// balance history. Sources that are not configured are left out.
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["account"]
	account, ok := h.registry.Get(name)
	if !ok {
		h.respondWithError(w, http.StatusNotFound, "unknown_account", "Unknown account")
		return
	}

	limit := defaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 {
			h.respondWithError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(l, maxHistoryLimit)
	}

	body := map[string]interface{}{
		"account": account.Status(),
	}

	if h.snapshots != nil {
		snap, err := h.snapshots.Latest(r.Context(), name)
		switch {
		case errors.Is(err, cache.ErrSnapshotNotFound):
		case err != nil:
			h.logger.Warn().Err(err).Str("account", name).Msg("Failed to read snapshot")
			body["snapshot_error"] = "cache unavailable"
		default:
			body["status"] = snap.Status()
			body["snapshot"] = snap
		}
	}

	if h.history != nil {
		records, err := h.history.Recent(r.Context(), name, limit)
		if err != nil {
			h.logger.Warn().Err(err).Str("account", name).Msg("Failed to read balance history")
			body["balance_history_error"] = "database unavailable"
		} else {
			body["balance_history"] = records
		}
	}

	h.respondWithJSON(w, http.StatusOK, body)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	h.respondWithJSON(w, code, map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write response")
	}
}
