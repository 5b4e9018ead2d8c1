package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/httpserver"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/metadata"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

// runServe runs the HTTP API and the archive sweeper until interrupted.
func runServe(e *env, a *args) error {
	addr := e.cfg.ListenAddr
	if v := a.flag("addr"); v != "" {
		addr = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sweeper *scheduler.Sweeper
	if e.cfg.SweepInterval > 0 {
		sweeper = scheduler.NewSweeper(e.lib, e.log, e.cfg.SweepInterval)
		sweeper.Start(ctx)
		e.log.Info("archive sweeper started", logger.Duration("interval", e.cfg.SweepInterval))
	}

	server := httpserver.New(addr, httpserver.Deps{
		Library:   e.lib,
		Logger:    e.log,
		Metadata:  metadata.Fetcher{Timeout: e.cfg.MetadataTimeout},
		StartTime: time.Now(),
		Version:   version,
		TimeNow:   time.Now,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		e.log.Info("shutting down gracefully")
	case runErr = <-errCh:
	}

	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}
	return runErr
}
