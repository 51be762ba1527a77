package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	name      string
	supported bool
	err       error
	shown     []Notification
}

func (f *fakeNotifier) Name() string    { return f.name }
func (f *fakeNotifier) Supported() bool { return f.supported }
func (f *fakeNotifier) Show(_ context.Context, n Notification) error {
	if f.err != nil {
		return f.err
	}
	f.shown = append(f.shown, n)
	return nil
}

func TestMultiDeliversToSupportedBackends(t *testing.T) {
	a := &fakeNotifier{name: "a", supported: true}
	b := &fakeNotifier{name: "b", supported: false}
	c := &fakeNotifier{name: "c", supported: true, err: errors.New("boom")}
	m := NewMulti(nil, a, nil, b, c)

	require.True(t, m.Supported())
	assert.Equal(t, []string{"a", "b", "c"}, m.Backends())

	err := m.Show(context.Background(), Notification{Title: "hi"})
	require.NoError(t, err, "one delivered backend is enough")
	assert.Len(t, a.shown, 1)
	assert.Empty(t, b.shown)
}

func TestMultiAllFailed(t *testing.T) {
	boom := errors.New("boom")
	m := NewMulti(nil,
		&fakeNotifier{name: "a", supported: true, err: boom},
		&fakeNotifier{name: "b", supported: true, err: errors.New("other")},
	)

	err := m.Show(context.Background(), Notification{Title: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "b: other")
}

func TestMultiUnsupported(t *testing.T) {
	m := NewMulti(nil, &fakeNotifier{name: "a"})
	assert.False(t, m.Supported())
	assert.ErrorIs(t, m.Show(context.Background(), Notification{}), ErrUnsupported)

	empty := NewMulti(nil)
	assert.False(t, empty.Supported())
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	require.True(t, l.Supported())
	require.NoError(t, l.Show(context.Background(), Notification{Title: "Pay rent", Body: "today", Urgency: UrgencyNormal}))
	assert.Contains(t, buf.String(), "Pay rent")
	assert.Contains(t, buf.String(), "urgency=normal")
}
