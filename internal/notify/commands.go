// internal/notify/commands.go
package notify

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	tb "gopkg.in/tucnak/telebot.v2"
)

type handlerRegistry interface {
	Handle(endpoint interface{}, handler interface{})
}

// CommandsConfig configures the admin command surface.
type CommandsConfig struct {
	AdminIDs      []int64
	VideoPath     string
	TimeVideoPath string
	Timeout       time.Duration
}

// Commands serves admin chat commands that relay announcements to the channel.
type Commands struct {
	replies sender
	channel Notifier
	admins  map[int64]bool
	cfg     CommandsConfig
	status  func() string
	logger  *zap.Logger
}

// NewCommands creates the handler set. replies answers the command author;
// channel receives the relayed announcements. status may be nil.
func NewCommands(replies sender, channel Notifier, cfg CommandsConfig, status func() string, logger *zap.Logger) *Commands {
	admins := make(map[int64]bool, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = true
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Commands{
		replies: replies,
		channel: channel,
		admins:  admins,
		cfg:     cfg,
		status:  status,
		logger:  logger.Named("commands"),
	}
}

// Register binds the handlers to a bot.
func (c *Commands) Register(bot handlerRegistry) {
	bot.Handle("/announce", c.handleAnnounce)
	bot.Handle("/announceWithVideo", c.handleAnnounceWithVideo)
	bot.Handle("/announceTime", c.handleAnnounceTime)
	bot.Handle("/status", c.handleStatus)
	bot.Handle("/help", c.handleHelp)
	if len(c.admins) > 0 {
		c.logger.Info("Bot commands enabled", zap.Int("admins", len(c.admins)))
	}
}

func (c *Commands) isAdmin(m *tb.Message) bool {
	return m.Sender != nil && c.admins[m.Sender.ID]
}

func (c *Commands) reply(m *tb.Message, text string, opts ...interface{}) {
	if _, err := c.replies.Send(m.Chat, text, opts...); err != nil {
		c.logger.Warn("Failed to reply to command", zap.Error(err))
	}
}

// authorize checks admin rights and a non-empty payload.
func (c *Commands) authorize(m *tb.Message) (string, bool) {
	if !c.isAdmin(m) {
		c.reply(m, "⛔ You are not authorized to use this command.")
		return "", false
	}
	text := strings.TrimSpace(m.Payload)
	if text == "" {
		c.reply(m, "❌ Please provide an announcement text.")
		return "", false
	}
	return text, true
}

func (c *Commands) handleAnnounce(m *tb.Message) {
	text, ok := c.authorize(m)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()

	if err := c.channel.SendMessage(ctx, text, Markdown); err != nil {
		c.logger.Error("Failed to send admin announcement", zap.Error(err))
		c.reply(m, "❌ Error sending announcement: "+err.Error())
		return
	}
	c.logger.Info("Admin announcement sent", zap.Int64("user_id", m.Sender.ID))
	c.reply(m, "✅ Announcement sent successfully!")
}

func (c *Commands) handleAnnounceWithVideo(m *tb.Message) {
	c.announceVideo(m, c.cfg.VideoPath, "Video")
}

func (c *Commands) handleAnnounceTime(m *tb.Message) {
	c.announceVideo(m, c.cfg.TimeVideoPath, "7FTime video")
}

func (c *Commands) announceVideo(m *tb.Message, path, label string) {
	text, ok := c.authorize(m)
	if !ok {
		return
	}
	if path == "" {
		c.reply(m, "❌ "+label+" file not found!")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()

	if err := c.channel.SendMedia(ctx, path, text, Markdown); err != nil {
		c.logger.Error("Failed to send admin video announcement", zap.String("path", path), zap.Error(err))
		c.reply(m, "❌ Error sending "+strings.ToLower(label)+" announcement: "+err.Error())
		return
	}
	c.logger.Info("Admin video announcement sent", zap.Int64("user_id", m.Sender.ID))
	c.reply(m, "✅ "+label+" announcement sent successfully!")
}

func (c *Commands) handleStatus(m *tb.Message) {
	if !c.isAdmin(m) {
		c.reply(m, "⛔ You are not authorized to use this command.")
		return
	}
	if c.status == nil {
		c.reply(m, "Status is not available.")
		return
	}
	c.reply(m, c.status())
}

func (c *Commands) handleHelp(m *tb.Message) {
	var b strings.Builder
	b.WriteString("🤖 *7affle Bot Commands*\n\n")
	if c.isAdmin(m) {
		b.WriteString("*Admin Commands:*\n")
		b.WriteString("`/announce [text]` - Send a text announcement to the channel\n")
		b.WriteString("`/announceWithVideo [text]` - Send a raffle notification video announcement\n")
		b.WriteString("`/announceTime [text]` - Send a 7F logo animation video announcement\n")
		b.WriteString("`/status` - Show monitor status\n")
		b.WriteString("`/help` - Show this help message\n\n")
	}
	b.WriteString("Visit 7affle.fun to participate in our raffles!")
	c.reply(m, b.String(), tb.ModeMarkdown)
}
