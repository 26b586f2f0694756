package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"tourcatalog/internal/app"
	"tourcatalog/internal/config"
	"tourcatalog/internal/logging"
)

// go run ./cmd/refresh
// go run ./cmd/refresh -timeout=10m -skip="School Trips,Private" -currencies=USD,EUR
func main() {
	timeout := flag.Duration("timeout", 0, "Budget of the whole run (default REFRESH_TIMEOUT)")
	skip := flag.String("skip", "", "Folder titles to skip, comma separated (default SKIP_FOLDERS)")
	currencies := flag.String("currencies", "", "Target currencies, comma separated (default PRICE_CURRENCIES)")
	flag.Parse()

	logging.InitDefault()
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("invalid configuration", zap.Error(err))
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		logging.Fatal("logger init failed", zap.Error(err))
	}
	defer logging.Sync()

	if *timeout > 0 {
		cfg.RefreshTimeout = *timeout
	}
	if *skip != "" {
		cfg.SkipFolders = config.SplitList(*skip, nil)
	}
	if *currencies != "" {
		cfg.PriceCurrencies = config.SplitList(*currencies, strings.ToUpper)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logging.Fatal("startup failed", zap.Error(err))
	}
	defer application.Close()

	runCtx, cancel := context.WithTimeout(ctx, cfg.RefreshTimeout)
	defer cancel()

	res, err := application.Refresher.Run(runCtx)
	if err != nil {
		logging.Error("refresh failed", zap.Error(err))
		application.Close()
		logging.Sync()
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	os.Stdout.Write(append(out, '\n'))
}
