package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wnt/blinkwatch/internal/balance"
	"github.com/wnt/blinkwatch/internal/config"
	"github.com/wnt/blinkwatch/internal/graphql"
	"github.com/wnt/blinkwatch/internal/logger"
	"github.com/wnt/blinkwatch/internal/metrics"
	"github.com/wnt/blinkwatch/internal/models"
	"github.com/wnt/blinkwatch/internal/transactions"
)

// Options controls what one refresh cycle fetches
type Options struct {
	HistoryMode config.HistoryMode
	Pagination  transactions.Options

	// RecentSize is the page size in recent mode; zero means Pagination.PageSize
	RecentSize int
}

// OptionsFromConfig builds cycle options from configuration
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		HistoryMode: cfg.HistoryMode,
		Pagination: transactions.Options{
			PageSize: cfg.PageSize,
			MaxPages: cfg.MaxPages,
		},
		RecentSize: cfg.RecentSize,
	}
}

// Refresher runs refresh cycles for one account: balance, then history,
// then hand-off to the sinks. A cycle never fails as a whole; failures are
// carried in the snapshot.
type Refresher struct {
	account   string
	exec      graphql.Executor
	opts      Options
	formatter transactions.Formatter
	sinks     []Sink
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRefresher creates a refresher for the named account
func NewRefresher(account string, exec graphql.Executor, opts Options, formatter transactions.Formatter, sinks []Sink, baseLogger zerolog.Logger) *Refresher {
	return &Refresher{
		account:   account,
		exec:      exec,
		opts:      opts,
		formatter: formatter,
		sinks:     sinks,
		logger:    logger.WithAccount(baseLogger.With().Str("component", "refresher").Logger(), account),
		now:       time.Now,
	}
}

// Account returns the account this refresher serves
func (r *Refresher) Account() string {
	return r.account
}

// RunCycle performs one refresh cycle and publishes the snapshot. Sinks are
// skipped when ctx is cancelled during the cycle.
func (r *Refresher) RunCycle(ctx context.Context) *Snapshot {
	start := time.Now()
	snap := &Snapshot{
		Account: r.account,
		CycleID: uuid.NewString(),
		TakenAt: r.now(),
	}
	log := logger.WithCycle(r.logger, snap.CycleID)

	log.Debug().Str("history_mode", string(r.opts.HistoryMode)).Msg("Starting refresh cycle")

	r.refreshBalances(ctx, snap, log)
	r.refreshHistory(ctx, snap, log)

	duration := time.Since(start)
	status := snap.Status()
	metrics.RecordRefreshCycle(r.account, status, duration.Seconds())

	event := log.Info()
	if status != StatusSuccess {
		event = log.Warn().Err(snap.Err())
	}
	event.
		Str("status", status).
		Int("transactions", snap.TransactionCount).
		Bool("complete", snap.Complete).
		Dur("duration", duration).
		Msg("Refresh cycle finished")

	if ctx.Err() != nil {
		log.Debug().Msg("Context cancelled, skipping sinks")
		return snap
	}
	r.publish(ctx, snap, log)

	return snap
}

func (r *Refresher) refreshBalances(ctx context.Context, snap *Snapshot, log zerolog.Logger) {
	wallets, err := balance.Fetch(ctx, r.exec)
	if err != nil {
		snap.setBalanceErr(err)
		return
	}

	snap.Balances = balance.Normalize(wallets)
	if snap.Balances.BTC != nil {
		metrics.SetWalletBalance(r.account, string(models.CurrencyBTC), *snap.Balances.BTC)
	}
	if snap.Balances.USD != nil {
		metrics.SetWalletBalance(r.account, string(models.CurrencyUSD), *snap.Balances.USD)
	}

	log.Debug().Int("wallets", len(wallets)).Msg("Fetched balances")
}

func (r *Refresher) refreshHistory(ctx context.Context, snap *Snapshot, log zerolog.Logger) {
	paginator := transactions.NewPaginator(r.exec, r.opts.Pagination, log)

	var edges []models.TransactionEdge
	var err error

	switch r.opts.HistoryMode {
	case config.HistoryOff:
		return
	case config.HistoryRecent:
		size := r.opts.RecentSize
		if size <= 0 {
			size = r.opts.Pagination.PageSize
		}
		edges, err = paginator.FetchRecent(ctx, size)
	case config.HistoryAll, "":
		edges, err = paginator.FetchAll(ctx)
		snap.Complete = err == nil
	default:
		err = fmt.Errorf("unknown history mode %q", r.opts.HistoryMode)
	}

	if err != nil {
		snap.setHistoryErr(err)
		return
	}

	formatted := r.formatter.FormatAll(edges)
	snap.Groups = transactions.GroupByMonth(formatted)
	snap.TransactionCount = len(formatted)
	snap.HistoryLoaded = true

	metrics.SetTransactionsListed(r.account, snap.TransactionCount)
}

func (r *Refresher) publish(ctx context.Context, snap *Snapshot, log zerolog.Logger) {
	for _, sink := range r.sinks {
		if err := sink.Publish(ctx, snap); err != nil {
			metrics.RecordSinkOperation(sink.Name(), "error")
			log.Error().Err(err).Str("sink", sink.Name()).Msg("Failed to publish snapshot")
			continue
		}
		metrics.RecordSinkOperation(sink.Name(), "success")
	}
}
