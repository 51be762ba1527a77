// Package telegram delivers reminders to a Telegram chat and answers
// reminder commands sent to the bot.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mklimuk/skyadmin/pkg/reminder"
)

const commandTimeout = 30 * time.Second

// Poller is the reminder poller surface the bot drives.
type Poller interface {
	Kind() string
	State() reminder.State
	Interval() time.Duration
	Pending(ctx context.Context) ([]reminder.Item, error)
	CheckNow(ctx context.Context) (*reminder.Report, error)
}

// Bot wraps the Telegram bot API and the reminder pollers.
type Bot struct {
	API     *tgbotapi.BotAPI
	sender  Sender
	chatID  int64
	pollers []Poller
	logger  *slog.Logger
	stopCh  chan struct{}
}

// NewAPI connects to the Bot API with token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("error creating Telegram bot: %w", err)
	}
	return api, nil
}

// NewBot creates a command bot on api. When chatID is set the bot only
// answers that chat.
func NewBot(api *tgbotapi.BotAPI, chatID int64, pollers []Poller, logger *slog.Logger) *Bot {
	b := newBot(api, chatID, pollers, logger)
	b.API = api
	return b
}

func newBot(sender Sender, chatID int64, pollers []Poller, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		sender:  sender,
		chatID:  chatID,
		pollers: pollers,
		logger:  logger.With("component", "telegram"),
		stopCh:  make(chan struct{}),
	}
}

// Start begins polling for updates in a goroutine
func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.API.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-b.stopCh:
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil {
					b.handleMessage(update.Message)
				}
			}
		}
	}()

	return nil
}

// Stop stops polling for updates
func (b *Bot) Stop() {
	close(b.stopCh)
	b.API.StopReceivingUpdates()
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	if b.chatID != 0 && msg.Chat.ID != b.chatID {
		b.logger.Warn("ignoring message from unknown chat", "chat_id", msg.Chat.ID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	command, arg := ParseCommand(msg.Text)
	var reply string
	switch command {
	case "/check":
		reply = b.handleCheck(ctx, arg)
	case "/pending":
		reply = b.handlePending(ctx, arg)
	case "/status":
		reply = b.handleStatus()
	default:
		return
	}
	b.reply(msg.Chat.ID, reply)
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("failed to send Telegram reply", "error", err)
	}
}

func (b *Bot) selectPollers(kind string) ([]Poller, error) {
	if kind == "" {
		return b.pollers, nil
	}
	for _, p := range b.pollers {
		if p.Kind() == kind {
			return []Poller{p}, nil
		}
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}

func (b *Bot) handleCheck(ctx context.Context, kind string) string {
	pollers, err := b.selectPollers(kind)
	if err != nil {
		return err.Error()
	}
	var sb strings.Builder
	for _, p := range pollers {
		report, err := p.CheckNow(ctx)
		if err != nil {
			fmt.Fprintf(&sb, "%s: check failed: %v\n", p.Kind(), err)
			continue
		}
		fmt.Fprintf(&sb, "%s: %d pending, %d fired", report.Kind, len(report.Pending), len(report.Fired))
		if n := len(report.Undelivered); n > 0 {
			fmt.Fprintf(&sb, ", %d undelivered", n)
		}
		if n := len(report.Invalid); n > 0 {
			fmt.Fprintf(&sb, ", %d invalid", n)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func (b *Bot) handlePending(ctx context.Context, kind string) string {
	pollers, err := b.selectPollers(kind)
	if err != nil {
		return err.Error()
	}
	var sb strings.Builder
	for _, p := range pollers {
		items, err := p.Pending(ctx)
		if err != nil {
			fmt.Fprintf(&sb, "%s: %v\n", p.Kind(), err)
			continue
		}
		if len(items) == 0 {
			fmt.Fprintf(&sb, "%s: nothing pending\n", p.Kind())
			continue
		}
		fmt.Fprintf(&sb, "%s:\n", p.Kind())
		for _, it := range items {
			fmt.Fprintf(&sb, "  #%d %s %s %s\n", it.ID, it.ReminderDate, it.ReminderTime, TruncateTitle(it.Title))
		}
	}
	return strings.TrimSpace(sb.String())
}

func (b *Bot) handleStatus() string {
	var sb strings.Builder
	sb.WriteString("Reminder service is online.")
	for _, p := range b.pollers {
		fmt.Fprintf(&sb, "\n%s: %s, every %s", p.Kind(), p.State(), p.Interval())
	}
	return sb.String()
}

// ParseCommand extracts the command and its argument from a message text.
// A "@botname" suffix on the command is dropped. Unknown commands return
// an empty command and the text unchanged.
func ParseCommand(text string) (command, arg string) {
	text = strings.TrimSpace(text)
	head, rest, _ := strings.Cut(text, " ")
	head, _, _ = strings.Cut(head, "@")
	switch head {
	case "/check", "/pending", "/status":
		return head, strings.TrimSpace(rest)
	}
	return "", text
}

// TruncateTitle shortens a title to 20 characters, appending "..." when
// something was cut.
func TruncateTitle(content string) string {
	r := []rune(content)
	if len(r) > 20 {
		return string(r[:20]) + "..."
	}
	return content
}
