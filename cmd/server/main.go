// resampled-server runs the standalone HTTP API for local development.
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

	"github.com/spf13/cobra"

	"github.com/datakite/resampled/internal/config"
	"github.com/datakite/resampled/internal/metastore"
	"github.com/datakite/resampled/internal/notify"
	"github.com/datakite/resampled/internal/objectstore"
	"github.com/datakite/resampled/internal/orchestrator"
	"github.com/datakite/resampled/internal/resample"
	"github.com/datakite/resampled/internal/server"
)

var version = "dev"

func main() {
	var configDir string

	root := &cobra.Command{
		Use:     "resampled-server",
		Short:   "HTTP API for the dataset resampling service",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configDir)
		},
	}
	root.Flags().StringVarP(&configDir, "config-dir", "c", ".", "directory containing resampled.yaml")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(configDir string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	store, err := metastore.New(cfg.Metastore, metastore.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating metadata store: %w", err)
	}
	objects, err := objectstore.New(ctx, cfg.ObjectStore)
	if err != nil {
		return fmt.Errorf("creating object store: %w", err)
	}
	notifier, err := notify.New(cfg.TopicARN, notify.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating notifier: %w", err)
	}
	runner := resample.NewHTTPRunner(cfg.ResamplerBaseURL)

	orc := orchestrator.New(store, objects, notifier, runner, cfg.Orchestrator,
		orchestrator.WithLogger(logger))

	srv := server.New(cfg.Server.Addr, server.NewHandlers(orc, notifier, store), cfg.Server.APIKey)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
	}
	return nil
}
