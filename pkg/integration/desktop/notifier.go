// Package desktop shows reminders as native desktop notifications.
package desktop

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/gen2brain/beeep"

	"github.com/mklimuk/skyadmin/pkg/notify"
)

// Notifier shows notifications through the platform notification service.
type Notifier struct {
	goos   string
	getenv func(string) string
	show   func(title, body string) error
	alert  func(title, body string) error
}

var _ notify.Notifier = (*Notifier)(nil)

// NewNotifier returns a notifier for the current host.
func NewNotifier() *Notifier {
	return &Notifier{
		goos:   runtime.GOOS,
		getenv: os.Getenv,
		show:   func(title, body string) error { return beeep.Notify(title, body, "") },
		alert:  func(title, body string) error { return beeep.Alert(title, body, "") },
	}
}

func (n *Notifier) Name() string { return "desktop" }

// Supported reports whether a notification service is reachable. On Linux
// and the BSDs that requires a graphical or D-Bus session.
func (n *Notifier) Supported() bool {
	switch n.goos {
	case "darwin", "windows":
		return true
	case "linux", "freebsd", "netbsd", "openbsd":
		for _, key := range []string{"DISPLAY", "WAYLAND_DISPLAY", "DBUS_SESSION_BUS_ADDRESS"} {
			if n.getenv(key) != "" {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (n *Notifier) Show(_ context.Context, msg notify.Notification) error {
	if !n.Supported() {
		return notify.ErrUnsupported
	}
	show := n.show
	if msg.Urgency == notify.UrgencyCritical {
		show = n.alert
	}
	if err := show(msg.Title, msg.Body); err != nil {
		return fmt.Errorf("failed to show desktop notification: %w", err)
	}
	return nil
}
