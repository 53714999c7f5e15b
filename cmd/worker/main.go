package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/recares/dme-matcher/internal/app"
	"github.com/recares/dme-matcher/internal/config"
	"github.com/recares/dme-matcher/internal/pkg/logger"
	"github.com/recares/dme-matcher/internal/worker"
)

func main() {
	cfg, err := config.LoadFromEnv(config.ResolvePath(""))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	worker.NewExpirationWorker(a.Service, cfg.Sweep.Interval(), cfg.Sweep.RunOnStart).Start(ctx)
	logger.Info("worker stopped")
}
