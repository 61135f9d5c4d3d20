// internal/bot/runner.go
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rovshanmuradov/raffle-monitor/internal/blockchain"
	"github.com/rovshanmuradov/raffle-monitor/internal/blockchain/solbc"
	"github.com/rovshanmuradov/raffle-monitor/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/raffle-monitor/internal/config"
	"github.com/rovshanmuradov/raffle-monitor/internal/events"
	"github.com/rovshanmuradov/raffle-monitor/internal/export"
	"github.com/rovshanmuradov/raffle-monitor/internal/metrics"
	"github.com/rovshanmuradov/raffle-monitor/internal/monitor"
	"github.com/rovshanmuradov/raffle-monitor/internal/notify"
	"github.com/rovshanmuradov/raffle-monitor/internal/parser"
	"github.com/rovshanmuradov/raffle-monitor/internal/server"
	"go.uber.org/zap"
	tb "gopkg.in/tucnak/telebot.v2"
)

const (
	eventBufferSize   = 256
	feedSize          = 200
	journalSize       = 200
	shutdownTimeout   = 15 * time.Second
	telegramSendLimit = 15 * time.Second
)

// Runner owns every long-lived component of the service.
type Runner struct {
	logger    *zap.Logger
	config    *config.Config
	ledger    blockchain.Ledger
	notifier  notify.Notifier
	telegram  *tb.Bot
	collector *metrics.Collector
	bus       *events.Bus
	feed      *events.Feed
	journal   *monitor.Journal
	monitor   *monitor.Monitor
	server    *server.Server
	shutdown  *ShutdownHandler
}

// Option overrides a dependency the runner would otherwise build from config.
type Option func(*Runner)

// WithLedger replaces the Solana RPC client.
func WithLedger(l blockchain.Ledger) Option {
	return func(r *Runner) { r.ledger = l }
}

// WithNotifier replaces the notifiers built from config.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// NewRunner: принимает cfg и logger, собирает все компоненты
func NewRunner(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Runner, error) {
	r := &Runner{
		logger:    logger,
		config:    cfg,
		collector: metrics.NewCollector(),
		shutdown:  NewShutdownHandler(logger.Named("shutdown"), shutdownTimeout),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.ledger == nil {
		pool, err := rpc.NewPool(cfg.RPCList, rpc.Options{
			Timeout:  cfg.RequestTimeout(),
			Retries:  cfg.RPCRetries,
			Observer: r.collector.RecordRPCLatency,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create rpc pool: %w", err)
		}
		r.ledger = solbc.NewClient(pool, logger)
	}

	if r.notifier == nil {
		n, err := r.buildNotifier()
		if err != nil {
			return nil, err
		}
		r.notifier = n
	}

	r.bus = events.NewBus(logger, eventBufferSize)
	r.feed = events.NewFeed(feedSize)
	r.feed.Attach(r.bus)
	r.shutdown.AddFunc("event-bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return r.bus.Shutdown(ctx)
	})

	journal, err := monitor.NewJournal(cfg.JournalFile, journalSize, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	r.journal = journal
	r.shutdown.Add("journal", journal)
	if cfg.ReportDir != "" {
		exporter := export.NewExporter(logger)
		r.shutdown.AddFunc("daily-report", func() error {
			_, err := exporter.ExportDailyReport(journal.Recent(0), time.Now(), cfg.ReportDir)
			return err
		})
	}

	r.monitor, err = monitor.New(monitorConfig(cfg), r.ledger, r.notifier, logger,
		monitor.WithEvents(r.bus),
		monitor.WithMetrics(r.collector),
		monitor.WithJournal(journal),
	)
	if err != nil {
		return nil, err
	}

	if r.telegram != nil && cfg.Telegram.Commands {
		cmds := notify.NewCommands(r.telegram, r.notifier, notify.CommandsConfig{
			AdminIDs:      cfg.Telegram.AdminIDs,
			VideoPath:     cfg.Telegram.VideoPath,
			TimeVideoPath: cfg.Telegram.TimeVideoPath,
			Timeout:       telegramSendLimit,
		}, r.monitor.StatusText, logger)
		cmds.Register(r.telegram)
	}

	if cfg.StatusAddr != "" {
		r.server = server.New(cfg.StatusAddr, server.Deps{
			Status:   r.monitor,
			Events:   r.feed,
			Journal:  journal,
			Registry: r.collector.Registry(),
		}, logger)
	}

	return r, nil
}

func (r *Runner) buildNotifier() (notify.Notifier, error) {
	var out notify.Multi
	if r.config.TelegramEnabled() {
		bot, err := notify.NewBot(r.config.Telegram.Token, telegramSendLimit, r.config.Telegram.Commands)
		if err != nil {
			return nil, err
		}
		chat, err := notify.ParseChat(r.config.Telegram.ChannelID)
		if err != nil {
			return nil, err
		}
		r.telegram = bot
		out = append(out, notify.NewTelegram(bot, chat, r.logger))
	}
	if r.config.WebhookURL != "" {
		out = append(out, notify.NewWebhook(r.config.WebhookURL, telegramSendLimit, r.logger))
	}
	if len(out) == 0 {
		r.logger.Warn("No notification channel configured, announcements go to the log")
		return notify.NewLog(r.logger), nil
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

func monitorConfig(cfg *config.Config) monitor.Config {
	extraction := parser.DefaultSettings()
	extraction.TicketPrice = cfg.DefaultTicketPrice
	extraction.MinTicketPrice = cfg.MinTicketPrice
	extraction.MaxTickets = cfg.DefaultMaxTickets
	extraction.Duration = cfg.DefaultDuration()
	extraction.Prize = cfg.DefaultPrize
	extraction.PlatformFee = cfg.PlatformFee
	extraction.SynthesizeIDs = cfg.AnnounceUnattributedWinners

	return monitor.Config{
		ProgramID:              cfg.ProgramID,
		Network:                cfg.Network,
		PollInterval:           cfg.PollInterval(),
		Lookback:               cfg.Lookback(),
		SignatureLimit:         cfg.SignatureLimit,
		MaxProcessedSignatures: cfg.MaxProcessedSignatures,
		MaxKnownAnnouncements:  cfg.MaxKnownAnnouncements,
		EndedGrace:             cfg.EndedGrace(),
		FetchConcurrency:       cfg.FetchConcurrency,
		RequestTimeout:         cfg.RequestTimeout(),
		SendTimeout:            telegramSendLimit,
		VideoPath:              cfg.Telegram.VideoPath,
		Extraction:             extraction,
	}
}

// Subscribe attaches h to every domain event. Used by the terminal UI.
func (r *Runner) Subscribe(h events.Handler) events.Subscription {
	return r.bus.Subscribe(events.AllEvents, h)
}

func (r *Runner) Monitor() *monitor.Monitor { return r.monitor }

func (r *Runner) Feed() *events.Feed { return r.feed }

// Run starts the auxiliary services, announces startup and polls until ctx
// is cancelled. Shutdown runs before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	defer r.Shutdown()

	if r.server != nil {
		if err := r.server.Start(); err != nil {
			return err
		}
		r.shutdown.AddFunc("status-server", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return r.server.Shutdown(ctx)
		})
	}

	if r.telegram != nil && r.config.Telegram.Commands {
		go r.telegram.Start()
		r.shutdown.AddFunc("telegram-poller", func() error {
			r.telegram.Stop()
			return nil
		})
		r.logger.Info("Telegram commands enabled", zap.Int("admins", len(r.config.Telegram.AdminIDs)))
	}

	sendCtx, cancel := context.WithTimeout(ctx, telegramSendLimit)
	if err := r.notifier.SendMessage(sendCtx, notify.StartupMessage(r.config.Network), notify.Markdown); err != nil {
		r.logger.Warn("Startup message failed", zap.Error(err))
	}
	cancel()

	return r.monitor.Run(ctx)
}

// Shutdown closes every registered service. Safe to call more than once.
func (r *Runner) Shutdown() {
	if err := r.shutdown.Shutdown(context.Background()); err != nil {
		r.logger.Warn("Shutdown finished with errors", zap.Error(err))
	}
}
