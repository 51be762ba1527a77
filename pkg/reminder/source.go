package reminder

import (
	"context"
	"fmt"
	"strings"

	"github.com/mklimuk/skyadmin/pkg/db"
	"github.com/mklimuk/skyadmin/pkg/notify"
)

// Item is a pending reminder as seen by the poller.
type Item struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	ReminderDate string `json:"reminder_date"`
	ReminderTime string `json:"reminder_time"`
	Priority     string `json:"priority,omitempty"`
}

// Source is one kind of reminder-bearing entity.
type Source interface {
	// Kind names the entity kind, e.g. "notes".
	Kind() string
	// FetchUnfired returns every item with a reminder date that has not
	// fired. An empty result is not an error.
	FetchUnfired(ctx context.Context) ([]Item, error)
	// MarkFired flags the item as fired. It is idempotent.
	MarkFired(ctx context.Context, id int64) error
	// Describe renders the notification for a due item.
	Describe(item Item) notify.Notification
}

// Store is the persistence needed by StoreSource.
type Store interface {
	PendingReminders(ctx context.Context, kind string) ([]db.PendingReminder, error)
	MarkReminderFired(ctx context.Context, kind string, id int64) error
}

// StoreSource reads reminders of one kind from the database.
type StoreSource struct {
	store    Store
	kind     string
	titlePfx string
	fallback string
}

var _ Source = (*StoreSource)(nil)

// NewNoteSource returns the reminder source for notes.
func NewNoteSource(store Store) *StoreSource {
	return &StoreSource{store: store, kind: db.KindNotes, titlePfx: "🔔 Reminder", fallback: "Note"}
}

// NewTodoSource returns the reminder source for todos.
func NewTodoSource(store Store) *StoreSource {
	return &StoreSource{store: store, kind: db.KindTodos, titlePfx: "🔔 Task reminder", fallback: "Task"}
}

// NewSource returns the source for a kind listed in db.Kinds.
func NewSource(store Store, kind string) (*StoreSource, error) {
	switch kind {
	case db.KindNotes:
		return NewNoteSource(store), nil
	case db.KindTodos:
		return NewTodoSource(store), nil
	default:
		return nil, fmt.Errorf("unknown reminder kind %q", kind)
	}
}

func (s *StoreSource) Kind() string { return s.kind }

func (s *StoreSource) FetchUnfired(ctx context.Context) ([]Item, error) {
	rows, err := s.store.PendingReminders(ctx, s.kind)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, Item{
			ID:           r.ID,
			Title:        r.Title,
			ReminderDate: r.ReminderDate,
			ReminderTime: r.ReminderTime,
			Priority:     r.Priority,
		})
	}
	return items, nil
}

func (s *StoreSource) MarkFired(ctx context.Context, id int64) error {
	return s.store.MarkReminderFired(ctx, s.kind, id)
}

func (s *StoreSource) Describe(item Item) notify.Notification {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = s.fallback
	}
	clock := strings.TrimSpace(item.ReminderTime)
	if clock == "" {
		clock = DefaultClock.String()
	}
	return notify.Notification{
		Title:   s.titlePfx + " - " + title,
		Body:    fmt.Sprintf("Reminder time reached: %s on %s", clock, strings.TrimSpace(item.ReminderDate)),
		Urgency: urgencyOf(item.Priority),
	}
}

// urgencyOf maps a todo priority to a notification urgency.
func urgencyOf(priority string) notify.Urgency {
	switch priority {
	case db.TodoPriorityHigh:
		return notify.UrgencyCritical
	case db.TodoPriorityLow:
		return notify.UrgencyLow
	default:
		return notify.UrgencyNormal
	}
}
