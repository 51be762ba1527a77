// Package discord posts reminder notifications to a Discord channel.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/mklimuk/skyadmin/pkg/notify"
)

// SendFunc posts content to a channel.
type SendFunc func(channelID, content string) error

// Notifier posts reminders to one channel.
type Notifier struct {
	send      SendFunc
	channelID string
}

var _ notify.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier backed by a bot session. The REST API is
// used directly, so the websocket connection does not need to be opened.
func NewNotifier(token, channelID string) (*Notifier, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	return NewNotifierFunc(SessionSender(dg), channelID), nil
}

// NewNotifierFunc creates a notifier that posts through send.
func NewNotifierFunc(send SendFunc, channelID string) *Notifier {
	return &Notifier{send: send, channelID: channelID}
}

// SessionSender adapts a discordgo session to a SendFunc.
func SessionSender(s *discordgo.Session) SendFunc {
	return func(channelID, content string) error {
		_, err := s.ChannelMessageSend(channelID, content)
		return err
	}
}

func (n *Notifier) Name() string { return "discord" }

func (n *Notifier) Supported() bool { return n.send != nil && n.channelID != "" }

func (n *Notifier) Show(_ context.Context, msg notify.Notification) error {
	if !n.Supported() {
		return notify.ErrUnsupported
	}
	if err := n.send(n.channelID, Format(msg)); err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}
	return nil
}

// Format renders a notification as Discord markdown.
func Format(msg notify.Notification) string {
	text := "**" + msg.Title + "**"
	if msg.Body != "" {
		text += "\n" + msg.Body
	}
	if msg.Urgency == notify.UrgencyCritical {
		text = "@here " + text
	}
	return text
}
