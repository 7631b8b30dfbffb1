package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/ledgermatch/internal/api"
	"github.com/eshaffer321/ledgermatch/internal/domain/recon"
	"github.com/eshaffer321/ledgermatch/internal/infrastructure/config"
	"github.com/eshaffer321/ledgermatch/internal/infrastructure/logging"
	"github.com/eshaffer321/ledgermatch/internal/infrastructure/storage"
	"github.com/eshaffer321/ledgermatch/internal/service"
)

func main() {
	cfg := config.LoadOrEnv()
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err, "path", cfg.Storage.DatabasePath)
		os.Exit(1)
	}
	defer store.Close()

	matching := recon.Config{
		MinLagDays:  cfg.Matching.MinLagDays,
		MaxLagDays:  cfg.Matching.MaxLagDays,
		EnableSplit: cfg.Matching.EnableSplit,
		SplitMaxK:   cfg.Matching.SplitMaxK,
	}
	if err := matching.Validate(); err != nil {
		logger.Error("invalid matching config", "error", err)
		os.Exit(1)
	}

	svc := service.NewReconService(store, logger)

	server := api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Matching:       matching,
	}, store, svc, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
			os.Exit(1)
		}
	}
}
