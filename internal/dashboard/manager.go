package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wnt/blinkwatch/internal/accounts"
	"github.com/wnt/blinkwatch/internal/transactions"
)

// Settings are shared by every poller of a manager
type Settings struct {
	Interval  time.Duration
	Options   Options
	Formatter transactions.Formatter
	Sinks     []Sink
}

// Manager runs one poller per registered account
type Manager struct {
	registry *accounts.Registry
	pollers  []*Poller
	logger   zerolog.Logger
}

// NewManager creates a manager for every account in registry
func NewManager(registry *accounts.Registry, settings Settings, logger zerolog.Logger) (*Manager, error) {
	if settings.Interval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", settings.Interval)
	}

	m := &Manager{
		registry: registry,
		logger:   logger.With().Str("component", "dashboard_manager").Logger(),
	}

	for _, account := range registry.All() {
		refresher := NewRefresher(account.Name, account.Executor(), settings.Options, settings.Formatter, settings.Sinks, logger)
		m.pollers = append(m.pollers, NewPoller(refresher, settings.Interval, registry, logger))
	}

	return m, nil
}

// Start runs all pollers until ctx is cancelled. Cancellation is a clean
// shutdown and returns nil.
func (m *Manager) Start(ctx context.Context) error {
	m.logger.Info().
		Int("accounts", len(m.pollers)).
		Msg("Starting dashboard manager")

	eg, egCtx := errgroup.WithContext(ctx)
	for _, p := range m.pollers {
		eg.Go(func() error {
			return p.Start(egCtx)
		})
	}

	err := eg.Wait()
	m.logger.Info().
		Int("healthy_accounts", m.registry.HealthyCount()).
		Msg("Dashboard manager stopped")

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// RunOnce runs a single cycle for every account concurrently and returns
// the snapshots in account order
func (m *Manager) RunOnce(ctx context.Context) []*Snapshot {
	snapshots := make([]*Snapshot, len(m.pollers))

	var eg errgroup.Group
	for i, p := range m.pollers {
		eg.Go(func() error {
			snapshots[i] = p.RunOnce(ctx)
			return nil
		})
	}
	_ = eg.Wait()

	return snapshots
}

// GetStats returns current manager statistics
func (m *Manager) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"accounts":         m.registry.Len(),
		"healthy_accounts": m.registry.HealthyCount(),
		"account_status":   m.registry.Stats(),
	}
}
