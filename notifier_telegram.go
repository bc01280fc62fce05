// FILE: notifier_telegram.go
// Package main – Telegram Notifier backend, grounded on
// yohannesjx-sniperterminal's notification_service.go use of
// github.com/go-telegram-bot-api/telegram-bot-api/v5.
package main

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func newTelegramNotifier(token string, chatID int64) (*telegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram notifier: %w", err)
	}
	return &telegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *telegramNotifier) Notify(ctx context.Context, event NotifyEvent, payload map[string]any) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]\n", event)
	for k, v := range payload {
		fmt.Fprintf(&sb, "%s: %v\n", k, v)
	}
	msg := tgbotapi.NewMessage(n.chatID, sb.String())
	_, err := n.bot.Send(msg)
	return err
}
