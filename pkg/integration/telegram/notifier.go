package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mklimuk/skyadmin/pkg/notify"
)

// Sender is the part of the Bot API used to post messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts reminder notifications to one Telegram chat.
type Notifier struct {
	sender Sender
	chatID int64
}

var _ notify.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier that posts to chatID through sender.
func NewNotifier(sender Sender, chatID int64) *Notifier {
	return &Notifier{sender: sender, chatID: chatID}
}

func (n *Notifier) Name() string { return "telegram" }

func (n *Notifier) Supported() bool { return n.sender != nil && n.chatID != 0 }

func (n *Notifier) Show(_ context.Context, msg notify.Notification) error {
	if !n.Supported() {
		return notify.ErrUnsupported
	}
	text := msg.Title
	if msg.Body != "" {
		text += "\n" + msg.Body
	}
	m := tgbotapi.NewMessage(n.chatID, text)
	m.DisableNotification = msg.Urgency == notify.UrgencyLow
	if _, err := n.sender.Send(m); err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	return nil
}
