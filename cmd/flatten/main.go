// Command flatten closes every position either venue reports for the
// configured symbols, then exits. It takes the same instance lock as the bot.
package main

import (
	"context"
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
		fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	secrets, err := config.LoadSecrets()
	if err != nil {
		fatal(err)
	}
	pidLock, err := lock.Acquire(cfg.Lock.Path)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = pidLock.Release() }()

	application, err := app.New(cfg, secrets, log)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = application.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := application.Flatten(ctx)
	if err != nil {
		log.Error("flatten failed", zap.Error(err))
		_ = application.Close()
		_ = pidLock.Release()
		os.Exit(1)
	}
	for _, label := range res.Closed {
		fmt.Printf("closed     %s\n", label)
	}
	for _, label := range res.Unresolved {
		fmt.Printf("unresolved %s\n", label)
	}
	if len(res.Unresolved) > 0 {
		_ = application.Close()
		_ = pidLock.Release()
		os.Exit(2)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
