// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/presence"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/web"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Default values for serve flags.
const (
	defaultSweepInterval = time.Hour
	shutdownTimeout      = 10 * time.Second
)

// serveOptions are the serve flags that are not part of the config file.
type serveOptions struct {
	autoMigrate   bool
	sweepInterval time.Duration
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server",
		Long: `Start the REST API, the presence websocket endpoints, the metrics
server and the expired token sweeper.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.autoMigrate, "auto-migrate", true, "apply pending migrations before serving")
	cmd.Flags().DurationVar(&opts.sweepInterval, "sweep-interval", defaultSweepInterval, "how often expired tokens are deleted")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts *serveOptions) error {
	logger := logging.SetDefault("gatehouse", version, cfg.LogFormat)
	logger.Info("starting gatehouse",
		"listen_addr", cfg.ListenAddr,
		"metrics_addr", cfg.MetricsAddr,
		"config", cfg.String(),
	)

	if opts.autoMigrate {
		if err := applyMigrations(cfg.DatabaseURL, logger); err != nil {
			return err
		}
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL, store.ConnectOptions{Logger: logger})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	obs := observability.NewServer(cfg.MetricsAddr, func(ctx context.Context) error {
		return pool.Ping(ctx)
	}, logger)
	auth.RegisterMetrics(obs.Registry())
	presence.RegisterMetrics(obs.Registry())

	notifier, err := newResetNotifier(cfg, logger)
	if err != nil {
		return err
	}
	svc, err := buildServices(pool, notifier, logger)
	if err != nil {
		return err
	}

	api, err := web.New(web.Deps{
		Auth:           svc.auth,
		Reset:          svc.reset,
		Sessions:       svc.sessions,
		Tokens:         svc.tokens,
		Activity:       svc.activity,
		Bus:            presence.NewBus(cfg.Presence.Buffer, logger),
		Presence:       svc.users,
		Metrics:        obs.Metrics(),
		Logger:         logger,
		CookieSecure:   cfg.CookieSecure,
		AnnounceOnline: cfg.Presence.AnnounceOnline,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MetricsAddr != "" {
		obsErrChan, err := obs.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obs.Addr())
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.ListenAddr).Wrap(err)
	}
	httpServer := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	httpErrChan := make(chan error, 1)
	go func() {
		defer close(httpErrChan)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrChan <- oops.Code("HTTP_SERVE_FAILED").Wrap(err)
		}
	}()
	go monitorServerErrors(ctx, cancel, httpErrChan, "http")

	var sweeps sync.WaitGroup
	sweeps.Add(1)
	go func() {
		defer sweeps.Done()
		runSweeper(ctx, svc.sessions, opts.sweepInterval, time.Now, logger)
	}()

	cmd.Println("Gatehouse started")
	logger.Info("gatehouse ready", "addr", listener.Addr().String())

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errutil.LogErrorLevel(shutdownCtx, logger, slog.LevelWarn, "error stopping http server", err)
	}
	// Hijacked websocket connections are not covered by http.Server.Shutdown.
	if err := api.Shutdown(shutdownCtx); err != nil {
		errutil.LogErrorLevel(shutdownCtx, logger, slog.LevelWarn, "error closing presence sessions", err)
	}
	sweeps.Wait()
	if cfg.MetricsAddr != "" {
		if err := obs.Stop(shutdownCtx); err != nil {
			errutil.LogErrorLevel(shutdownCtx, logger, slog.LevelWarn, "error stopping observability server", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func applyMigrations(databaseURL string, logger *slog.Logger) (err error) {
	m, err := openMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if err := m.Up(); err != nil {
		return err
	}
	v, _, err := m.Version()
	if err != nil {
		return err
	}
	logger.Info("schema is current", "version", v)
	return nil
}

// monitorServerErrors cancels ctx when a server reports a failure. It exits
// when the channel closes or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
