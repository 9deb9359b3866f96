package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/motocare/internal/expiry"
	"github.com/MarkoPoloResearchLab/motocare/internal/httpapi"
	"github.com/MarkoPoloResearchLab/motocare/internal/observability"
	"github.com/MarkoPoloResearchLab/motocare/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/motocare/pkg/booking"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bookingd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	root := &cobra.Command{
		Use:           "bookingd",
		Short:         "Bike service booking backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
	}
	registerFlags(root)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the booking API and run the expiry sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Expire stale appointment requests once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSweep(ctx, cfg)
		},
	}
	root.AddCommand(serve, sweep)
	return root
}

type application struct {
	logger   *zap.Logger
	registry *prometheus.Registry
	service  *booking.Service
	sweeper  *expiry.Sweeper
	cleanup  func() error
}

func newApplication(ctx context.Context, cfg *runtimeConfig) (*application, error) {
	logger, err := observability.NewLogger(cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}

	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database open: %w", err)
	}
	if err := prepareSchema(ctx, gormDB, driver); err != nil {
		_ = cleanup()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	clock := func() time.Time { return time.Now().UTC() }
	service, err := booking.NewService(
		gormstore.New(gormDB),
		clock,
		booking.WithConfig(cfg.Booking),
		booking.WithOperationLogger(observability.NewOperationLogger(logger, metrics)),
	)
	if err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("booking service init: %w", err)
	}

	sweeper, err := expiry.NewSweeper(service, clock, logger, metrics, cfg.Sweep)
	if err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("sweeper init: %w", err)
	}

	return &application{
		logger:   logger,
		registry: registry,
		service:  service,
		sweeper:  sweeper,
		cleanup:  cleanup,
	}, nil
}

func (app *application) close() {
	if err := app.cleanup(); err != nil {
		app.logger.Warn("database close failed", zap.Error(err))
	}
	_ = app.logger.Sync()
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	if err := cfg.HTTP.Validate(); err != nil {
		return err
	}
	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("sweeper start: %w", err)
	}
	defer app.sweeper.Stop()

	router := httpapi.NewRouter(cfg.HTTP, app.service, app.logger, app.registry)
	return httpapi.Run(ctx, cfg.HTTP, router, app.logger)
}

func runSweep(ctx context.Context, cfg *runtimeConfig) error {
	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	expired, err := app.sweeper.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "expired %d appointment requests\n", expired)
	return nil
}
