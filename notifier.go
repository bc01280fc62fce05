// FILE: notifier.go
// Package main – Notifier capability (spec.md §6), grounded on
// trading_bot_engine/notifications/webhook.py's send_notification(event,
// payload) shape.
package main

import "context"

// Notifier delivers best-effort external notifications. Failures are
// logged by the caller, never fatal to the control loop (spec.md §7:
// notification delivery is not one of the six error kinds — it sits
// outside the loop's error taxonomy entirely).
type Notifier interface {
	Notify(ctx context.Context, event NotifyEvent, payload map[string]any) error
}

// newNotifier selects a backend by InfraConfig.NotifierKind, the way
// main.go's "switch strings.ToLower(getEnv("BROKER", ...))" selects a
// Broker constructor.
func newNotifier(cfg InfraConfig) Notifier {
	switch cfg.NotifierKind {
	case "telegram":
		if cfg.TelegramToken == "" {
			return noopNotifier{}
		}
		n, err := newTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return noopNotifier{}
		}
		return n
	case "webhook":
		if cfg.WebhookURL == "" {
			return noopNotifier{}
		}
		return newWebhookNotifier(cfg.WebhookURL)
	default:
		return noopNotifier{}
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, event NotifyEvent, payload map[string]any) error {
	return nil
}
