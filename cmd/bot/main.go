// Package main provides the entry point for the video backup bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/videobackup-bot/internal/bootstrap"
	"github.com/maauso/videobackup-bot/internal/bot"
	"github.com/maauso/videobackup-bot/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting video backup bot",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("temp_dir", cfg.TempDir),
		slog.String("timezone", cfg.Timezone),
		slog.String("root_folder", cfg.RootFolder),
		slog.Int("allowed_users", len(cfg.AllowedUserIDs)),
		slog.Bool("groups_only", cfg.GroupsOnly),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies using bootstrap
	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      deps.HTTPHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Handlers outlive the poller so in-flight uploads can finish during shutdown.
	handlerCtx, cancelHandlers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelHandlers()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Telegram.Run(gctx, func(ev bot.Event) {
			deps.Router.Dispatch(handlerCtx, ev)
		})
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	})

	runErr := g.Wait()

	waitCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := deps.Router.Wait(waitCtx); err != nil {
		logger.Warn("abandoning in-flight uploads", slog.String("error", err.Error()))
		cancelHandlers()
	}

	if runErr != nil {
		return runErr
	}

	logger.Info("bot stopped gracefully")
	return nil
}
