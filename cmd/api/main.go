package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/leafit/leafit-backend/config"
	"github.com/leafit/leafit-backend/internal/bootstrap"
	"github.com/leafit/leafit-backend/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("startup failed", "error", err)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		lg.Error("server stopped", "error", err)
	}
}
