package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Reminder kinds. Each kind is backed by its own table.
const (
	KindNotes = "notes"
	KindTodos = "todos"
)

// Kinds lists every reminder-bearing kind.
var Kinds = []string{KindNotes, KindTodos}

// PendingReminder is the reminder projection of a note or todo row.
type PendingReminder struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	ReminderDate string `json:"reminder_date"`
	ReminderTime string `json:"reminder_time"`
	// Priority is the todo priority; empty for notes.
	Priority string `json:"priority,omitempty"`
}

func reminderTable(kind string) (string, error) {
	switch kind {
	case KindNotes:
		return "notes", nil
	case KindTodos:
		return "todos", nil
	default:
		return "", fmt.Errorf("unknown reminder kind %q", kind)
	}
}

// priorityColumn selects the priority of a reminder row. Notes have none.
func priorityColumn(kind string) string {
	if kind == KindTodos {
		return "priority"
	}
	return "''"
}

// PendingReminders returns every row of kind that has a reminder date and
// has not fired yet. No ordering is guaranteed.
func (r *Repository) PendingReminders(ctx context.Context, kind string) ([]PendingReminder, error) {
	table, err := reminderTable(kind)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, reminder_date, reminder_time, `+priorityColumn(kind)+` FROM `+table+`
		WHERE reminder_date IS NOT NULL AND TRIM(reminder_date) != ''
		AND COALESCE(reminder_fired, 0) = 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending %s reminders: %w", kind, err)
	}
	defer rows.Close()

	pending := []PendingReminder{}
	for rows.Next() {
		var p PendingReminder
		var clock, priority sql.NullString
		if err := rows.Scan(&p.ID, &p.Title, &p.ReminderDate, &clock, &priority); err != nil {
			return nil, fmt.Errorf("failed to scan %s reminder: %w", kind, err)
		}
		p.ReminderTime = clock.String
		p.Priority = priority.String
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending %s reminders: %w", kind, err)
	}
	return pending, nil
}

// MarkReminderFired flags the reminder of a row as fired. Marking an
// already fired or deleted row succeeds.
func (r *Repository) MarkReminderFired(ctx context.Context, kind string, id int64) error {
	table, err := reminderTable(kind)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE `+table+` SET reminder_fired = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark %s reminder %d fired: %w", kind, id, err)
	}
	return nil
}
