package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/raffle-monitor/internal/bot"
	"github.com/rovshanmuradov/raffle-monitor/internal/config"
	"github.com/rovshanmuradov/raffle-monitor/internal/logger"
	"github.com/rovshanmuradov/raffle-monitor/internal/ui"
	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	envFile := flag.String("env", ".env", "Path to dotenv file")
	flag.Parse()

	// Create context with signal handling
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadEnvFiles(*envFile); err != nil {
		log.Fatalf("Failed to load env: %v", err)
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Console output would corrupt the alt screen; logs go to the file and the log pane
	buffer, err := logger.NewLogBuffer(1000, cfg.SpillFile, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to init log buffer: %v", err)
	}
	defer buffer.Close()
	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.DebugLogging
	logCfg.ConsoleDisabled = true
	logCfg.Buffer = buffer
	appLogger, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	runner, err := bot.NewRunner(cfg, appLogger.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize monitor: %v", err)
	}

	updates := make(chan tea.Msg, 256)
	sender := ui.NewUpdateSender(updates, appLogger.Named("ui"))
	defer sender.Close()
	runner.Subscribe(sender)

	program := tea.NewProgram(
		ui.NewDashboard(ui.Options{
			Monitor: runner.Monitor(),
			Feed:    runner.Feed(),
			Logs:    buffer,
			Updates: updates,
		}),
		tea.WithAltScreen(),
		tea.WithContext(rootCtx),
	)

	monitorCtx, cancel := context.WithCancel(rootCtx)
	done := make(chan error, 1)
	go func() {
		done <- runner.Run(monitorCtx)
	}()

	if _, err := program.Run(); err != nil && rootCtx.Err() == nil {
		appLogger.Error("TUI application failed", zap.Error(err))
	}

	appLogger.Info("Shutting down TUI application")
	cancel()
	if err := <-done; err != nil {
		appLogger.Error("Monitor stopped with error", zap.Error(err))
	}
}
