package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/skyadmin/pkg/notify"
	"github.com/mklimuk/skyadmin/pkg/reminder"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, m)
	}
	return tgbotapi.Message{MessageID: len(s.sent)}, nil
}

type fakePoller struct {
	kind    string
	pending []reminder.Item
	report  *reminder.Report
	err     error
	checks  int
}

func (p *fakePoller) Kind() string            { return p.kind }
func (p *fakePoller) State() reminder.State   { return reminder.StateIdle }
func (p *fakePoller) Interval() time.Duration { return time.Minute }

func (p *fakePoller) Pending(context.Context) ([]reminder.Item, error) {
	return p.pending, p.err
}

func (p *fakePoller) CheckNow(context.Context) (*reminder.Report, error) {
	p.checks++
	return p.report, p.err
}

func testBot(sender Sender, pollers ...Poller) *Bot {
	return newBot(sender, 42, pollers, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func message(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: chatID}}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantCmd string
		wantArg string
	}{
		{name: "check all", input: "/check", wantCmd: "/check"},
		{name: "check kind", input: "/check notes", wantCmd: "/check", wantArg: "notes"},
		{name: "bot suffix", input: "/pending@skyadmin_bot todos", wantCmd: "/pending", wantArg: "todos"},
		{name: "status", input: " /status ", wantCmd: "/status"},
		{name: "unknown command", input: "/help", wantArg: "/help"},
		{name: "plain text", input: "hello world", wantArg: "hello world"},
		{name: "prefix is not a command", input: "/checkfoo", wantArg: "/checkfoo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, arg := ParseCommand(tt.input)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArg, arg)
		})
	}
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "short content unchanged", content: "Buy groceries", want: "Buy groceries"},
		{name: "exactly 20 chars unchanged", content: "12345678901234567890", want: "12345678901234567890"},
		{name: "21 chars truncated", content: "123456789012345678901", want: "12345678901234567890..."},
		{name: "multibyte counted as characters", content: strings.Repeat("ł", 21), want: strings.Repeat("ł", 20) + "..."},
		{name: "empty string", content: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateTitle(tt.content))
		})
	}
}

func TestHandleCheck(t *testing.T) {
	sender := &fakeSender{}
	notes := &fakePoller{kind: "notes", report: &reminder.Report{
		Kind:        "notes",
		Pending:     []reminder.Item{{ID: 1}, {ID: 2}},
		Fired:       []reminder.Item{{ID: 1}},
		Undelivered: []reminder.Item{{ID: 1}},
	}}
	todos := &fakePoller{kind: "todos", err: errors.New("database is closed")}
	b := testBot(sender, notes, todos)

	b.handleMessage(message(42, "/check"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Equal(t, "notes: 2 pending, 1 fired, 1 undelivered\ntodos: check failed: database is closed", sender.sent[0].Text)

	b.handleMessage(message(42, "/check notes"))
	assert.Equal(t, 2, notes.checks)
	assert.Equal(t, 1, todos.checks)

	b.handleMessage(message(42, "/check events"))
	assert.Equal(t, `unknown kind "events"`, sender.sent[2].Text)
}

func TestHandlePending(t *testing.T) {
	sender := &fakeSender{}
	notes := &fakePoller{kind: "notes", pending: []reminder.Item{
		{ID: 7, Title: "Renew the warehouse lease", ReminderDate: "2024-06-01", ReminderTime: "09:00"},
	}}
	todos := &fakePoller{kind: "todos"}
	b := testBot(sender, notes, todos)

	b.handleMessage(message(42, "/pending"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "notes:\n  #7 2024-06-01 09:00 Renew the warehouse ...\ntodos: nothing pending", sender.sent[0].Text)
}

func TestHandleStatus(t *testing.T) {
	sender := &fakeSender{}
	b := testBot(sender, &fakePoller{kind: "notes"})

	b.handleMessage(message(42, "/status"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Reminder service is online.\nnotes: idle, every 1m0s", sender.sent[0].Text)
}

func TestIgnoresOtherChatsAndText(t *testing.T) {
	sender := &fakeSender{}
	notes := &fakePoller{kind: "notes", report: &reminder.Report{Kind: "notes"}}
	b := testBot(sender, notes)

	b.handleMessage(message(7, "/check"))
	b.handleMessage(message(42, "just chatting"))
	b.handleMessage(&tgbotapi.Message{Text: "/status"})

	assert.Empty(t, sender.sent)
	assert.Equal(t, 0, notes.checks)
}

func TestNotifier(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, 42)
	require.True(t, n.Supported())
	assert.Equal(t, "telegram", n.Name())

	err := n.Show(context.Background(), notify.Notification{Title: "🔔 Reminder - Pay invoice", Body: "Reminder time reached: 08:00 on 2024-06-01", Urgency: notify.UrgencyNormal})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "🔔 Reminder - Pay invoice\nReminder time reached: 08:00 on 2024-06-01", sender.sent[0].Text)
	assert.False(t, sender.sent[0].DisableNotification)

	sender.err = errors.New("Forbidden: bot was blocked by the user")
	err = n.Show(context.Background(), notify.Notification{Title: "x"})
	require.ErrorContains(t, err, "blocked")
}

func TestNotifierUnsupported(t *testing.T) {
	for _, n := range []*Notifier{NewNotifier(nil, 42), NewNotifier(&fakeSender{}, 0)} {
		assert.False(t, n.Supported())
		require.ErrorIs(t, n.Show(context.Background(), notify.Notification{Title: "x"}), notify.ErrUnsupported)
	}
}
