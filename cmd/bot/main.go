package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dual-dex-bot/internal/app"
	"dual-dex-bot/internal/config"
	"dual-dex-bot/internal/lock"
	"dual-dex-bot/internal/logging"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	flag.Parse()

	if err := config.LoadEnv(config.EnvFile()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()
	log.Info("config loaded", zap.String("path", *configPath), zap.Strings("symbols", cfg.Strategy.Symbols))

	secrets, err := config.LoadSecrets()
	if err != nil {
		log.Error("missing credentials", zap.Error(err))
		os.Exit(1)
	}

	pidLock, err := lock.Acquire(cfg.Lock.Path)
	if err != nil {
		log.Error("failed to acquire instance lock", zap.String("path", cfg.Lock.Path), zap.Error(err))
		os.Exit(1)
	}
	defer func() { _ = pidLock.Release() }()

	application, err := app.New(cfg, secrets, log)
	if err != nil {
		log.Error("failed to initialize app", zap.Error(err))
		os.Exit(1)
	}
	defer func() { _ = application.Close() }()
	log.Info("app initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("app terminated", zap.Error(err))
		_ = application.Close()
		_ = pidLock.Release()
		os.Exit(1)
	}
	log.Info("stopped")
}
