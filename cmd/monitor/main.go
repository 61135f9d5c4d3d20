// cmd/monitor/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/rovshanmuradov/raffle-monitor/internal/bot"
	"github.com/rovshanmuradov/raffle-monitor/internal/config"
	"github.com/rovshanmuradov/raffle-monitor/internal/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional, env overrides apply)")
	envFile := flag.String("env", ".env", "Path to dotenv file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadEnvFiles(*envFile); err != nil {
		log.Fatalf("Failed to load env: %v", err)
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.DebugLogging
	appLogger, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	runner, err := bot.NewRunner(cfg, appLogger.Logger)
	if err != nil {
		appLogger.Fatal("Failed to initialize monitor", zap.Error(err))
	}
	if err := runner.Run(rootCtx); err != nil {
		appLogger.Fatal("Monitor stopped with error", zap.Error(err))
	}
}
