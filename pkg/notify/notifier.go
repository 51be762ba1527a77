// Package notify defines how reminders reach the user.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnsupported is returned by Show when no backend can deliver.
var ErrUnsupported = errors.New("notifications not supported")

// Urgency hints how intrusive a notification should be.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyCritical Urgency = "critical"
)

// Notification is a single message shown to the user.
type Notification struct {
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	Urgency Urgency `json:"urgency"`
}

// Notifier delivers notifications. Delivery is best effort: Show returns
// once the backend accepted the message, without a read receipt.
type Notifier interface {
	// Name identifies the backend in logs.
	Name() string
	// Supported reports whether the backend can deliver on this host.
	Supported() bool
	Show(ctx context.Context, n Notification) error
}

// Multi fans a notification out to several backends.
type Multi struct {
	notifiers []Notifier
	logger    *slog.Logger
}

var _ Notifier = (*Multi)(nil)

// NewMulti creates a fan-out notifier. Nil entries are skipped.
func NewMulti(logger *slog.Logger, notifiers ...Notifier) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Multi{logger: logger}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

func (m *Multi) Name() string { return "multi" }

// Supported is true when at least one backend is supported.
func (m *Multi) Supported() bool {
	for _, n := range m.notifiers {
		if n.Supported() {
			return true
		}
	}
	return false
}

// Show delivers to every supported backend. It succeeds when at least one
// backend delivered; otherwise the joined backend errors are returned.
func (m *Multi) Show(ctx context.Context, n Notification) error {
	var errs []error
	delivered := 0
	for _, b := range m.notifiers {
		if !b.Supported() {
			continue
		}
		if err := b.Show(ctx, n); err != nil {
			m.logger.Warn("notification backend failed", "backend", b.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		delivered++
	}
	if delivered > 0 {
		return nil
	}
	if len(errs) == 0 {
		return ErrUnsupported
	}
	return errors.Join(errs...)
}

// Backends returns the names of the configured backends.
func (m *Multi) Backends() []string {
	names := make([]string, 0, len(m.notifiers))
	for _, n := range m.notifiers {
		names = append(names, n.Name())
	}
	return names
}

// Log writes notifications to a structured logger. It is always supported
// and is useful on headless hosts.
type Log struct {
	logger *slog.Logger
}

var _ Notifier = (*Log)(nil)

// NewLog creates a notifier that logs at info level.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Name() string    { return "log" }
func (l *Log) Supported() bool { return true }

func (l *Log) Show(_ context.Context, n Notification) error {
	l.logger.Info("reminder notification", "title", n.Title, "body", n.Body, "urgency", string(n.Urgency))
	return nil
}

// TestNotification is the message sent by the "test notification" action.
func TestNotification() Notification {
	return Notification{
		Title:   "🔔 Test reminder",
		Body:    "Notifications from SkyAdmin are working.",
		Urgency: UrgencyNormal,
	}
}
