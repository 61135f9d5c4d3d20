// internal/notify/webhook.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// webhookPayload is the JSON body posted to a webhook endpoint.
type webhookPayload struct {
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
	Media     string `json:"media,omitempty"`
}

// Webhook posts notifications as JSON to an HTTPS endpoint.
type Webhook struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhook creates a webhook notifier; timeout bounds each request.
func NewWebhook(url string, timeout time.Duration, logger *zap.Logger) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("webhook"),
	}
}

func (w *Webhook) SendMessage(ctx context.Context, text string, mode ParseMode) error {
	return w.post(ctx, webhookPayload{Text: text, ParseMode: string(mode)})
}

// SendMedia posts the caption with the media file name; the file itself is
// not uploaded, but it must exist.
func (w *Webhook) SendMedia(ctx context.Context, path, caption string, mode ParseMode) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
	}
	return w.post(ctx, webhookPayload{Text: caption, ParseMode: string(mode), Media: filepath.Base(path)})
}

func (w *Webhook) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	w.logger.Debug("Webhook delivered", zap.Int("status", resp.StatusCode))
	return nil
}
