// Package cli wires configuration, logging, the byte store, metrics, the
// record store and optional event publishing into one App shared by every
// chitieu command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"chitieu/internal/amqp"
	"chitieu/internal/backend"
	"chitieu/internal/config"
	"chitieu/internal/core"
	"chitieu/internal/intake"
	"chitieu/internal/log"
	"chitieu/internal/metrics"
	"chitieu/internal/store"
)

const metricsNamespace = "chitieu"

// Options control how the App is built.
type Options struct {
	ConfigPath string
	EnvFiles   []string  // defaults to .env
	LogOutput  io.Writer // defaults to stderr
	// RequireEvents turns an unreachable broker into a startup error instead
	// of a warning. Ignored when AMQP_URL is empty.
	RequireEvents bool
	// Config skips loading when set.
	Config *config.Config
}

// App holds the long-lived components of one chitieu process.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Metrics *metrics.Collector
	Store   *store.Store
	Intake  *intake.Intake
	Budgets map[core.Category]decimal.Decimal
	Events  *amqp.Client // nil when events are disabled

	backend *backend.BackendResult
}

// Bootstrap builds the App: config, logger, byte store, metrics, record store
// (loaded from the byte store), event publisher and intake, in that order.
func Bootstrap(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		if err := config.LoadDotEnv(opts.EnvFiles...); err != nil {
			return nil, err
		}
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
		Format:    cfg.LogFormat,
		Output:    out,
	})
	log.SetDefault(logger)

	budgets, err := cfg.BudgetAmounts()
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewCollector(metricsNamespace),
		Budgets: budgets,
		backend: res,
	}

	app.Store = store.Open(ctx, res.Store,
		store.WithKey(cfg.StorageKey),
		store.WithLogger(logger),
		store.WithMetrics(app.Metrics),
		store.WithQuarantine(cfg.QuarantineMalformed),
	)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		switch {
		case err != nil && opts.RequireEvents:
			_ = app.Close()
			return nil, fmt.Errorf("connect event broker: %w", err)
		case err != nil:
			logger.Warn("Event broker unreachable, record events disabled", log.FieldError, err)
		default:
			app.Events = client
			app.Store.AddObserver(amqp.NewPublisher(client, logger, app.Metrics))
			logger.Info("Record events enabled", "exchange", cfg.AMQPExchange)
		}
	}

	app.Intake = intake.New(app.Store, logger)

	logger.Debug("Application ready",
		log.FieldBackend, string(bcfg.Type),
		log.FieldKey, app.Store.Key(),
		log.FieldCount, app.Store.Len())
	return app, nil
}

// Close releases the broker connection and the byte store.
func (a *App) Close() error {
	var errs []error
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event broker: %w", err))
		}
	}
	if err := a.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close backend: %w", err))
	}
	return errors.Join(errs...)
}

// Now returns the current time in the configured timezone.
func (a *App) Now() time.Time {
	return time.Now().In(a.Config.Location())
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
