package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"sweeper/internal/config"
	"sweeper/internal/daemon"
	"sweeper/internal/history"
	"sweeper/internal/logging"
)

func runDaemon(ctx context.Context, configPath string) error {
	cfg, resolvedPath, exists, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	if !exists {
		logger.Warn("no configuration file found, using defaults",
			logging.String("searched", resolvedPath))
	}

	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer func() { _ = store.Close() }()

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
