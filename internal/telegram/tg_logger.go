package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/boostly/internal/config"
	"github.com/set-night/boostly/internal/domain"
	"github.com/set-night/boostly/internal/service"
)

const queueSize = 64

// Sender is the part of *bot.Bot the logger needs.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type LogType string

const (
	LogTypeError       LogType = "error"
	LogTypeOrderFailed LogType = "orderFailed"
	LogTypeIssue       LogType = "issue"
	LogTypePayment     LogType = "payment"
)

type entry struct {
	logType LogType
	text    string
}

// TelegramLogger mirrors operational events into topics of an admin chat.
// Messages are queued and delivered by Run so callers never wait on
// Telegram.
type TelegramLogger struct {
	sender Sender
	cfg    *config.Config
	queue  chan entry
	now    func() time.Time
}

var _ service.Notifier = (*TelegramLogger)(nil)

func NewTelegramLogger(s Sender, cfg *config.Config) *TelegramLogger {
	return &TelegramLogger{
		sender: s,
		cfg:    cfg,
		queue:  make(chan entry, queueSize),
		now:    time.Now,
	}
}

// Run delivers queued messages until ctx is done.
func (l *TelegramLogger) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-l.queue:
			l.send(ctx, e)
		}
	}
}

// Log queues a message for its topic. Disabled or unrouted types are
// dropped, as is everything while the queue is full.
func (l *TelegramLogger) Log(logType LogType, message string) {
	if l.cfg.LogTelegramChatID == 0 || l.topicID(logType) == 0 {
		return
	}
	select {
	case l.queue <- entry{logType: logType, text: message}:
	default:
		slog.Warn("telegram log queue full, dropping message", "type", logType)
	}
}

func (l *TelegramLogger) send(ctx context.Context, e entry) {
	ctx, cancel := context.WithTimeout(ctx, config.TelegramSendTimeout)
	defer cancel()

	_, err := l.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            truncate(e.text, config.MaxTelegramMessageLen),
		ParseMode:       models.ParseModeMarkdownV1,
		MessageThreadID: l.topicID(e.logType),
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", e.logType, "error", err)
	}
}

func (l *TelegramLogger) Error(err error, context string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		escapeMarkdown(context), codeSpan(err.Error()), l.stamp())
	l.Log(LogTypeError, msg)
}

func (l *TelegramLogger) OrderFailed(o *domain.Order) {
	msg := fmt.Sprintf("⚠️ *Order Failed*\n\n*Order:* `%s`\n*Owner:* `%s`\n*Amount:* $%s\n*Payment:* %s\n*Reason:* %s",
		o.ID, codeSpan(o.OwnerID), o.SettledAmount().StringFixed(2), o.PaymentMethod, escapeMarkdown(o.FailureReason))
	l.Log(LogTypeOrderFailed, msg)
}

func (l *TelegramLogger) IssueReported(o *domain.Order, t *domain.Ticket) {
	msg := fmt.Sprintf("🎫 *Issue Reported*\n\n*Ticket:* `%s`\n*Order:* `%s` (%s)\n*Owner:* `%s`\n\n%s",
		t.ID, o.ID, o.Status, codeSpan(t.OwnerID), escapeMarkdown(t.Details))
	l.Log(LogTypeIssue, msg)
}

func (l *TelegramLogger) PaymentFailed(outcome domain.PaymentOutcome) {
	msg := fmt.Sprintf("💳 *Payment Failed*\n\n*Order:* `%s`\n*Reason:* %s\n*Time:* %s",
		outcome.OrderID, escapeMarkdown(outcome.Reason), l.stamp())
	l.Log(LogTypePayment, msg)
}

func (l *TelegramLogger) stamp() string {
	return l.now().Format("2006-01-02 15:04:05")
}

func (l *TelegramLogger) topicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeOrderFailed:
		return l.cfg.LogTopicOrderFailed
	case LogTypeIssue:
		return l.cfg.LogTopicIssue
	case LogTypePayment:
		return l.cfg.LogTopicPayment
	default:
		return 0
	}
}
