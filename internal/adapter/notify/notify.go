// Package notify tells a human operator about reconciliation gaps.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

// Text renders a gap for a human.
func Text(g usecase.Gap) string {
	var b strings.Builder
	b.WriteString("RECONCILIATION REQUIRED\n")
	fmt.Fprintf(&b, "Order #%d was charged but not marked paid.\n", g.OrderID)
	fmt.Fprintf(&b, "Amount: %s\n", g.Amount.StringFixed(2))
	fmt.Fprintf(&b, "Recipient: %s\n", g.Recipient)
	fmt.Fprintf(&b, "Flow: %s\n", g.Flow)
	fmt.Fprintf(&b, "Attempt: %s\n", g.AttemptID)
	if g.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", g.Reason)
	}
	if !g.OccurredAt.IsZero() {
		fmt.Fprintf(&b, "At: %s", g.OccurredAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	return strings.TrimRight(b.String(), "\n")
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts gaps to an operator chat.
type TelegramNotifier struct {
	bot    sender
	chatID int64
}

// NewTelegramNotifier authenticates the bot token against Telegram.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: api, chatID: chatID}, nil
}

func newTelegramNotifier(bot sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

func (n *TelegramNotifier) NotifyGap(ctx context.Context, g usecase.Gap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, Text(g))
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Flag lets the notifier act as the reconciliation sink when no broker is configured.
func (n *TelegramNotifier) Flag(ctx context.Context, g usecase.Gap) error { return n.NotifyGap(ctx, g) }

// LogNotifier writes gaps to the error log only.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier { return &LogNotifier{log: log} }

func (n *LogNotifier) NotifyGap(_ context.Context, g usecase.Gap) error {
	n.log.Error("reconciliation gap", "order_id", g.OrderID, "attempt_id", g.AttemptID,
		"amount", g.Amount.StringFixed(2), "recipient", g.Recipient, "reason", g.Reason)
	return nil
}

func (n *LogNotifier) Flag(ctx context.Context, g usecase.Gap) error { return n.NotifyGap(ctx, g) }

var (
	_ usecase.GapNotifier        = (*TelegramNotifier)(nil)
	_ usecase.ReconciliationSink = (*TelegramNotifier)(nil)
	_ usecase.GapNotifier        = (*LogNotifier)(nil)
	_ usecase.ReconciliationSink = (*LogNotifier)(nil)
)
