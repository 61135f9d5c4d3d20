// internal/notify/telegram.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	tb "gopkg.in/tucnak/telebot.v2"
)

// sender is the subset of *tb.Bot used for delivery.
type sender interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

// channelName addresses a public channel by its @username.
type channelName string

func (c channelName) Recipient() string { return string(c) }

// ParseChat accepts either a numeric chat id or an @channel name.
func ParseChat(channelID string) (tb.Recipient, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, errors.New("telegram channel id is empty")
	}
	if strings.HasPrefix(channelID, "@") {
		return channelName(channelID), nil
	}
	id, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram channel id %q: %w", channelID, err)
	}
	return &tb.Chat{ID: id}, nil
}

// NewBot creates a telebot client whose HTTP calls are bounded by timeout.
// A poller is attached only when commands are served.
func NewBot(token string, timeout time.Duration, poll bool) (*tb.Bot, error) {
	settings := tb.Settings{
		Token:  token,
		Client: &http.Client{Timeout: timeout},
	}
	if poll {
		settings.Poller = &tb.LongPoller{Timeout: 10 * time.Second}
	}
	bot, err := tb.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to start telegram bot: %w", err)
	}
	return bot, nil
}

// Telegram delivers notifications to one channel.
type Telegram struct {
	bot    sender
	chat   tb.Recipient
	logger *zap.Logger
}

// NewTelegram wraps a bot bound to chat.
func NewTelegram(bot sender, chat tb.Recipient, logger *zap.Logger) *Telegram {
	return &Telegram{
		bot:    bot,
		chat:   chat,
		logger: logger.Named("telegram"),
	}
}

func sendOptions(mode ParseMode) *tb.SendOptions {
	opts := &tb.SendOptions{DisableWebPagePreview: true}
	if mode == Markdown {
		opts.ParseMode = tb.ModeMarkdown
	}
	return opts
}

// SendMessage отправляет текстовое сообщение в канал.
func (t *Telegram) SendMessage(ctx context.Context, text string, mode ParseMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(t.chat, text, sendOptions(mode)); err != nil {
		return fmt.Errorf("telegram send message: %w", err)
	}
	t.logger.Debug("Message sent", zap.Int("length", len(text)))
	return nil
}

// SendMedia отправляет видео с подписью.
func (t *Telegram) SendMedia(ctx context.Context, path, caption string, mode ParseMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
	}

	video := &tb.Video{File: tb.FromDisk(path), Caption: caption}
	if _, err := t.bot.Send(t.chat, video, sendOptions(mode)); err != nil {
		return fmt.Errorf("telegram send video: %w", err)
	}
	t.logger.Debug("Video sent", zap.String("path", path))
	return nil
}
