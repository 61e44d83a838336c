package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/aq2208/campuspay-terminal/cmd/campuspay-terminal/app"
	"github.com/aq2208/campuspay-terminal/configs"
	"github.com/aq2208/campuspay-terminal/internal/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	env := os.Getenv("APP_ENV") // dev | staging | prod
	if env == "" {
		env = "dev"
	}

	cfg, err := configs.Load("configs", env)
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.InitWithConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	logger.Info("campuspay-terminal listening", "env", env, "addr", cfg.App.HTTPAddr)
	if err := a.Run(ctx); err != nil {
		logger.Error("terminal stopped", "error", err)
		cleanup()
		os.Exit(1)
	}
	logger.Info("terminal stopped")
}
