package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tourcatalog/internal/api"
	"tourcatalog/internal/app"
	"tourcatalog/internal/config"
	"tourcatalog/internal/logging"
	"tourcatalog/internal/observability"
)

func main() {
	logging.InitDefault()
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("invalid configuration", zap.Error(err))
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		logging.Fatal("logger init failed", zap.Error(err))
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logging.Fatal("startup failed", zap.Error(err))
	}
	defer application.Close()

	observability.Start(cfg.MetricsPort)

	opts := api.Options{KeyPrefix: cfg.CacheKeyPrefix, RefreshTimeout: cfg.RefreshTimeout}
	if application.Runs != nil {
		opts.Runs = application.Runs
	}
	handler := api.NewHandler(application.Store, application.Refresher, opts)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// POST /refresh blocks for a whole run
		WriteTimeout: cfg.RefreshTimeout + 30*time.Second,
	}

	if cfg.RefreshInterval > 0 {
		go application.Refresher.Schedule(ctx, cfg.RefreshInterval, cfg.RefreshTimeout)
		logging.Info("scheduled refresh enabled", zap.Duration("interval", cfg.RefreshInterval))
	}

	go func() {
		logging.Info("catalog server listening", zap.String("addr", server.Addr), zap.String("metrics_port", cfg.MetricsPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("graceful shutdown failed", zap.Error(err))
	}
}
