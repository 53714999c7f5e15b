package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/recares/dme-matcher/internal/api"
	"github.com/recares/dme-matcher/internal/app"
	"github.com/recares/dme-matcher/internal/config"
	"github.com/recares/dme-matcher/internal/pkg/logger"
	"github.com/recares/dme-matcher/internal/service/listings"
)

func main() {
	cfg, err := config.LoadFromEnv(config.ResolvePath(""))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	handlers := api.NewHandlers(a.Service, listings.Sheets{Main: cfg.Sheets.Main, OptOut: cfg.Sheets.OptOut})
	router := api.SetupRoutes(handlers, api.NewHealthChecker(a.DB, a.Redis), api.RouteConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IntakeToken:    cfg.Server.IntakeToken,
		RequestTimeout: cfg.Lock.TTL(),
	})
	if cfg.Server.IntakeToken == "" {
		logger.Warn("intake token not set; /api routes are unauthenticated")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
