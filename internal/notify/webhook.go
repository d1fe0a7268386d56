package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// AlertEvent is the payload posted to the configured webhook when a reading
// breaches a sensor's validation band.
type AlertEvent struct {
	AlertID    string    `json:"alert_id"`
	SensorID   string    `json:"sensor_id"`
	SensorName string    `json:"sensor_name"`
	ZoneID     string    `json:"zone_id"`
	AlertType  string    `json:"alert_type"`
	Value      float64   `json:"value"`
	Threshold  float64   `json:"threshold"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notifier delivers alert events to an external system.
type Notifier interface {
	NotifyAlert(ctx context.Context, event *AlertEvent) error
}

// WebhookNotifier posts alert events as JSON to a fixed URL.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

var _ Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a notifier posting to url with the given timeout.
func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &WebhookNotifier{
		client: client,
		url:    url,
		logger: logger,
	}
}

// NotifyAlert posts the event. Non-2xx responses are errors so callers can log
// the failed delivery; delivery is best-effort and never rolls back the alert.
func (n *WebhookNotifier) NotifyAlert(ctx context.Context, event *AlertEvent) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post alert webhook: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode())
	}

	n.logger.Debug("alert webhook delivered",
		zap.String("alert_id", event.AlertID),
		zap.Int("status", resp.StatusCode()),
	)
	return nil
}
