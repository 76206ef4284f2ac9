package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"logwatch/pkg/engine"
)

var ErrWebhookStatus = errors.New("webhook returned non-success status")

// Webhook posts a Slack-compatible {"text": ...} payload.
type Webhook struct {
	url     string
	service string
	client  *http.Client
}

func NewWebhook(url, service string, timeout time.Duration) *Webhook {
	return &Webhook{
		url:     url,
		service: service,
		client:  &http.Client{Timeout: timeout},
	}
}

func (w *Webhook) Notify(ctx context.Context, findings []engine.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"text": Message(w.service, findings)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrWebhookStatus, resp.StatusCode)
	}
	return nil
}
