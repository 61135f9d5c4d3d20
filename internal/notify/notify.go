// internal/notify/notify.go
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ParseMode selects message formatting.
type ParseMode string

const (
	PlainText ParseMode = ""
	Markdown  ParseMode = "Markdown"
)

// ErrMediaUnavailable is returned when the attachment cannot be read.
var ErrMediaUnavailable = errors.New("media unavailable")

// Notifier is an outbound notification channel.
type Notifier interface {
	SendMessage(ctx context.Context, text string, mode ParseMode) error
	SendMedia(ctx context.Context, path, caption string, mode ParseMode) error
}

// SendWithFallback sends caption with the media at path. When path is empty,
// the file is missing or the media send fails, text is sent as a plain
// message instead. It reports whether the media variant was delivered.
// A Multi applies the fallback per channel, so each channel receives
// exactly one message.
func SendWithFallback(ctx context.Context, n Notifier, path, caption, text string, mode ParseMode, logger *zap.Logger) (bool, error) {
	if m, ok := n.(Multi); ok {
		return m.sendWithFallback(ctx, path, caption, text, mode, logger)
	}
	if path != "" {
		err := n.SendMedia(ctx, path, caption, mode)
		if err == nil {
			return true, nil
		}
		logger.Warn("Media send failed, falling back to text",
			zap.String("path", path),
			zap.Error(err))
	}
	return false, n.SendMessage(ctx, text, mode)
}

// PartialError reports a fan-out where some channels failed and at least
// one delivered.
type PartialError struct {
	Delivered int
	Failed    int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%d of %d channels failed: %v", e.Failed, e.Delivered+e.Failed, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// IsPartial reports whether err left at least one channel delivered.
func IsPartial(err error) bool {
	var p *PartialError
	return errors.As(err, &p)
}

// Multi fans a notification out to several channels. Every channel is
// attempted. When all fail the errors are joined; when only some fail the
// result is a *PartialError.
type Multi []Notifier

func (m Multi) SendMessage(ctx context.Context, text string, mode ParseMode) error {
	return m.each(func(n Notifier) error { return n.SendMessage(ctx, text, mode) })
}

func (m Multi) SendMedia(ctx context.Context, path, caption string, mode ParseMode) error {
	return m.each(func(n Notifier) error { return n.SendMedia(ctx, path, caption, mode) })
}

// sendWithFallback reports media delivery when any channel delivered it.
func (m Multi) sendWithFallback(ctx context.Context, path, caption, text string, mode ParseMode, logger *zap.Logger) (bool, error) {
	var anyMedia bool
	err := m.each(func(n Notifier) error {
		media, err := SendWithFallback(ctx, n, path, caption, text, mode, logger)
		anyMedia = anyMedia || media
		return err
	})
	return anyMedia, err
}

func (m Multi) each(send func(Notifier) error) error {
	var errs []error
	for _, n := range m {
		if err := send(n); err != nil {
			errs = append(errs, err)
		}
	}
	switch {
	case len(errs) == 0:
		return nil
	case len(errs) == len(m):
		return errors.Join(errs...)
	default:
		return &PartialError{Delivered: len(m) - len(errs), Failed: len(errs), Err: errors.Join(errs...)}
	}
}

// Log writes notifications to the logger instead of an external service.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a dry-run notifier.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger.Named("notify")}
}

func (l *Log) SendMessage(_ context.Context, text string, mode ParseMode) error {
	l.logger.Info("📣 Notification", zap.String("mode", string(mode)), zap.String("text", text))
	return nil
}

func (l *Log) SendMedia(_ context.Context, path, caption string, mode ParseMode) error {
	l.logger.Info("📣 Media notification",
		zap.String("mode", string(mode)),
		zap.String("media", path),
		zap.String("caption", caption))
	return nil
}
