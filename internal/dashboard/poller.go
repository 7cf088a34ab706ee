package dashboard

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wnt/blinkwatch/internal/logger"
)

// HealthReporter is told the outcome of every cycle
type HealthReporter interface {
	MarkHealthy(account string)
	MarkUnhealthy(account string, err error)
}

// Poller repeats refresh cycles for one account until its context ends
type Poller struct {
	refresher *Refresher
	interval  time.Duration
	health    HealthReporter
	logger    zerolog.Logger
}

// NewPoller creates a poller. health may be nil.
func NewPoller(refresher *Refresher, interval time.Duration, health HealthReporter, baseLogger zerolog.Logger) *Poller {
	return &Poller{
		refresher: refresher,
		interval:  interval,
		health:    health,
		logger:    logger.WithAccount(baseLogger.With().Str("component", "poller").Logger(), refresher.Account()),
	}
}

// Start runs a cycle immediately and then one per interval. A failed cycle
// never stops the loop; Start only returns when ctx is done.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info().Dur("interval", p.interval).Msg("Starting poller")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller received shutdown signal")
			return ctx.Err()
		case <-timer.C:
			p.RunOnce(ctx)
			timer.Reset(p.interval)
		}
	}
}

// RunOnce runs one cycle and reports its health
func (p *Poller) RunOnce(ctx context.Context) *Snapshot {
	snap := p.refresher.RunCycle(ctx)
	if p.health == nil || ctx.Err() != nil {
		return snap
	}

	// The account counts as unhealthy only when nothing could be fetched
	if snap.Status() == StatusFailed {
		p.health.MarkUnhealthy(snap.Account, snap.Err())
	} else {
		p.health.MarkHealthy(snap.Account)
	}
	return snap
}
