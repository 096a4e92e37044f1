package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stevemurr/comparison-api/config"
	"github.com/stevemurr/comparison-api/handler"
	"github.com/stevemurr/comparison-api/logging"
	"github.com/stevemurr/comparison-api/metrics"
	"github.com/stevemurr/comparison-api/service"
	"github.com/stevemurr/comparison-api/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "comparison-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}

	log, logCloser, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to create store (backend=%s): %w", cfg.Store.Backend, err)
	}
	if c, ok := st.(io.Closer); ok {
		defer c.Close()
	}

	opts := []service.Option{service.WithLogger(log)}
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		rec := metrics.New()
		opts = append(opts, service.WithMetrics(rec))
		metricsHandler = rec.Handler()
	}
	svc := service.New(st, opts...)

	h := handler.New(svc, handler.Options{
		AppName: cfg.AppName,
		Logger:  log,
		Metrics: metricsHandler,
	})
	wrapped := handler.Chain(h,
		handler.RequestLogger(log),
		handler.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		handler.CORS(cfg.AllowedOrigins),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           wrapped,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting",
			"app", cfg.AppName, "version", cfg.AppVersion, "description", cfg.AppDescription,
			"addr", srv.Addr, "store", cfg.Store.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
