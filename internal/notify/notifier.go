package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"resty.dev/v3"

	"github.com/seoulquant/autotrader/internal/events"
	"github.com/seoulquant/autotrader/internal/logger"
)

// WebhookNotifier mirrors hub events to an external webhook (Discord, Slack,
// anything that accepts {"content": ...} JSON). Delivery is best effort.
type WebhookNotifier struct {
	url    string
	client *resty.Client
	logger logger.Logger
}

func NewWebhookNotifier(url string, logger logger.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")

	return &WebhookNotifier{
		url:    url,
		client: client,
		logger: logger,
	}
}

// Run forwards log and status events from the hub until ctx is cancelled.
func (n *WebhookNotifier) Run(ctx context.Context, hub *events.Hub) {
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub:
			if !ok {
				return
			}
			if event.Type == events.EventRefresh {
				continue
			}
			if err := n.send(ctx, format(event)); err != nil {
				n.logger.Warnf("can't deliver notification: %v", err)
			}
		}
	}
}

func format(event events.Event) string {
	switch event.Type {
	case events.EventStatusChange:
		if event.Reason != "" {
			return fmt.Sprintf("[%s] %s -> %s (%s)", event.Timestamp.Format("15:04:05"), event.Code, event.Status, event.Reason)
		}
		return fmt.Sprintf("[%s] %s -> %s", event.Timestamp.Format("15:04:05"), event.Code, event.Status)
	default:
		return fmt.Sprintf("[%s] %s", event.Timestamp.Format("15:04:05"), event.LogLine)
	}
}

func (n *WebhookNotifier) send(ctx context.Context, content string) error {
	payload, err := sonic.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("%w: can't marshal payload", err)
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("%w: can't post webhook", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned %s", resp.Status())
	}

	return nil
}

func (n *WebhookNotifier) Close() error {
	return n.client.Close()
}
