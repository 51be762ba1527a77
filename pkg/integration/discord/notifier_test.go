package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/skyadmin/pkg/notify"
)

func TestNotifierShow(t *testing.T) {
	var gotChannel, gotContent string
	n := NewNotifierFunc(func(channelID, content string) error {
		gotChannel, gotContent = channelID, content
		return nil
	}, "123456")

	require.True(t, n.Supported())
	assert.Equal(t, "discord", n.Name())

	err := n.Show(context.Background(), notify.Notification{
		Title:   "🔔 Task reminder - Ship order",
		Body:    "Reminder time reached: 07:30 on 2024-01-01",
		Urgency: notify.UrgencyNormal,
	})
	require.NoError(t, err)
	assert.Equal(t, "123456", gotChannel)
	assert.Equal(t, "**🔔 Task reminder - Ship order**\nReminder time reached: 07:30 on 2024-01-01", gotContent)
}

func TestNotifierSendError(t *testing.T) {
	n := NewNotifierFunc(func(string, string) error { return errors.New("HTTP 403 Forbidden") }, "1")
	err := n.Show(context.Background(), notify.Notification{Title: "x"})
	require.ErrorContains(t, err, "403")
}

func TestNotifierUnsupported(t *testing.T) {
	n := NewNotifierFunc(nil, "1")
	assert.False(t, n.Supported())
	require.ErrorIs(t, n.Show(context.Background(), notify.Notification{}), notify.ErrUnsupported)

	n = NewNotifierFunc(func(string, string) error { return nil }, "")
	assert.False(t, n.Supported())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "**t**", Format(notify.Notification{Title: "t"}))
	assert.Equal(t, "@here **t**\nb", Format(notify.Notification{Title: "t", Body: "b", Urgency: notify.UrgencyCritical}))
}

func TestNewNotifier(t *testing.T) {
	n, err := NewNotifier("token", "42")
	require.NoError(t, err)
	assert.True(t, n.Supported())
}
