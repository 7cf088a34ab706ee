package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wnt/blinkwatch/internal/accounts"
	"github.com/wnt/blinkwatch/internal/cache"
	"github.com/wnt/blinkwatch/internal/config"
	"github.com/wnt/blinkwatch/internal/dashboard"
	"github.com/wnt/blinkwatch/internal/database"
	"github.com/wnt/blinkwatch/internal/logger"
	"github.com/wnt/blinkwatch/internal/render"
	"github.com/wnt/blinkwatch/internal/status"
	"github.com/wnt/blinkwatch/internal/transactions"
)

func main() {
	envFile := flag.String("envFile", ".env", "Path to .env file")
	once := flag.Bool("once", false, "Run a single refresh cycle per account and exit")
	only := flag.String("account", "", "Only watch the named account")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Logs go to stderr so the dashboard owns stdout
	logs := logger.NewWithWriter(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := accounts.FromConfig(cfg, logs)
	if err != nil {
		logs.Fatal().Err(err).Msg("Failed to register accounts")
	}
	if *only != "" {
		registry, err = registry.Only(*only)
		if err != nil {
			logs.Fatal().Err(err).Strs("accounts", registryNames(cfg)).Msg("Unknown account")
		}
	}

	out := buildSinks(cfg, logs)
	closeSinks := out.close
	defer closeSinks()

	if out.cache != nil {
		if _, err := out.cache.Prune(ctx, registryNames(cfg)); err != nil {
			logs.Warn().Err(err).Msg("Failed to prune cached snapshots")
		}
	}

	manager, err := dashboard.NewManager(registry, dashboard.Settings{
		Interval:  cfg.RefreshInterval,
		Options:   dashboard.OptionsFromConfig(cfg),
		Formatter: transactions.NewFormatter(cfg.DisplayUnit, cfg.Location),
		Sinks:     out.sinks,
	}, logs)
	if err != nil {
		logs.Fatal().Err(err).Msg("Failed to create dashboard manager")
	}

	if *once {
		exitCode := 0
		for _, snap := range manager.RunOnce(ctx) {
			if snap.Status() == dashboard.StatusFailed {
				exitCode = 1
			}
		}
		closeSinks()
		os.Exit(exitCode)
	}

	logs.Info().
		Strs("accounts", registry.Names()).
		Dur("refresh_interval", cfg.RefreshInterval).
		Str("history_mode", string(cfg.HistoryMode)).
		Msg("Starting blinkwatch")

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return manager.Start(egCtx)
	})
	if cfg.MetricsPort != "" {
		var opts []status.Option
		if out.cache != nil {
			opts = append(opts, status.WithSnapshots(out.cache))
		}
		if out.history != nil {
			opts = append(opts, status.WithHistory(out.history))
		}
		statusHandler := status.NewHandler(manager, registry, logs, opts...)

		eg.Go(func() error {
			return serveMetrics(egCtx, ":"+cfg.MetricsPort, statusHandler, logs)
		})
	}

	if err := eg.Wait(); err != nil {
		logs.Error().Err(err).Msg("blinkwatch stopped with error")
		closeSinks()
		os.Exit(1)
	}

	logs.Info().Msg("blinkwatch stopped gracefully")
}

type outputs struct {
	sinks   []dashboard.Sink
	cache   *cache.Client
	history *database.HistoryStore
	close   func()
}

// buildSinks always renders to stdout and adds the optional Redis and
// Postgres sinks. Unreachable optional sinks are logged and skipped.
func buildSinks(cfg config.Config, logs zerolog.Logger) outputs {
	out := outputs{
		sinks: []dashboard.Sink{
			render.NewSink(os.Stdout, render.Renderer{Unit: cfg.DisplayUnit, Location: cfg.Location}),
		},
	}
	var closers []func() error

	if cfg.RedisURL != "" {
		redisCache, err := cache.NewClient(cfg.RedisURL, 3*cfg.RefreshInterval, logs)
		if err != nil {
			logs.Error().Err(err).Msg("Redis unavailable, snapshots will not be cached")
		} else {
			out.sinks = append(out.sinks, redisCache)
			out.cache = redisCache
			closers = append(closers, redisCache.Close)
		}
	}

	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			logs.Error().Err(err).Msg("Database unavailable, balance history will not be recorded")
		} else {
			store := database.NewHistoryStore(db, logs)
			out.sinks = append(out.sinks, store)
			out.history = store
			closers = append(closers, store.Close)
		}
	}

	closed := false
	out.close = func() {
		if closed {
			return
		}
		closed = true
		for _, c := range closers {
			if err := c(); err != nil {
				logs.Warn().Err(err).Msg("Failed to close sink")
			}
		}
	}
	return out
}

// serveMetrics serves /metrics and the status routes until ctx is done
func serveMetrics(ctx context.Context, addr string, statusHandler *status.Handler, logs zerolog.Logger) error {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	statusHandler.Register(r)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Info().Str("addr", addr).Msg("Metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logs.Info().Msg("Metrics server stopped")
	return nil
}

func registryNames(cfg config.Config) []string {
	names := make([]string, 0, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		names = append(names, a.Name)
	}
	return names
}
