package telegram

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"finance-billing/internal/domain/ports/adapter"
	"finance-billing/internal/infra/metrics"
	"finance-billing/internal/infra/worker"
)

var _ adapter.OpsAlerter = (*AlertNotifier)(nil)

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Submitter queues work off the caller's goroutine.
type Submitter interface {
	Submit(task worker.Task) error
}

// AlertNotifier posts operator alerts to a Telegram chat. Delivery runs on the
// worker pool; a full queue drops the alert after logging it.
type AlertNotifier struct {
	bot    Sender
	chatID int64
	pool   Submitter
	log    *zerolog.Logger
}

func NewAlertNotifier(bot Sender, chatID int64, pool Submitter, logger *zerolog.Logger) (*AlertNotifier, error) {
	if bot == nil {
		return nil, errors.New("telegram: bot is nil")
	}
	if pool == nil {
		return nil, errors.New("telegram: worker pool is nil")
	}
	if chatID == 0 {
		return nil, errors.New("telegram: chat id is required")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "ops_alerts").Logger()
	return &AlertNotifier{bot: bot, chatID: chatID, pool: pool, log: &l}, nil
}

// NewBotAPI connects to Telegram with the given token.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, errors.New("telegram: token is empty")
	}
	return tgbotapi.NewBotAPI(token)
}

func (n *AlertNotifier) Alert(ctx context.Context, a adapter.OpsAlert) {
	msg := tgbotapi.NewMessage(n.chatID, FormatAlert(a))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	err := n.pool.Submit(func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			metrics.IncAlert("dropped")
			return err
		}
		if _, err := n.bot.Send(msg); err != nil {
			metrics.IncAlert("error")
			return fmt.Errorf("send alert %q: %w", a.Title, err)
		}
		metrics.IncAlert("sent")
		return nil
	})
	if err != nil {
		metrics.IncAlert("dropped")
		n.log.Error().Err(err).Str("title", a.Title).Str("severity", string(a.Severity)).
			Msg("ops alert dropped")
	}
}

// FormatAlert renders a as MarkdownV2 with fields in key order.
func FormatAlert(a adapter.OpsAlert) string {
	var b strings.Builder
	icon := "⚠️"
	if a.Severity == adapter.AlertCritical {
		icon = "🚨"
	}
	b.WriteString(icon)
	b.WriteString(" *")
	b.WriteString(esc(strings.ToUpper(string(a.Severity))))
	b.WriteString("* ")
	b.WriteString(esc(a.Title))

	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\n")
		b.WriteString(esc(k))
		b.WriteString(": `")
		b.WriteString(esc(a.Fields[k]))
		b.WriteString("`")
	}
	return b.String()
}

func esc(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s) }
