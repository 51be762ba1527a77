package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Todo statuses used by the board.
const (
	TodoStatusTodo       = "todo"
	TodoStatusInProgress = "in_progress"
	TodoStatusDone       = "done"
)

// Todo priorities.
const (
	TodoPriorityLow    = "low"
	TodoPriorityMedium = "medium"
	TodoPriorityHigh   = "high"
)

// Todo represents a row in the todos table
type Todo struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority"`
	DueDate       string    `json:"due_date,omitempty"`
	OwnerID       int64     `json:"owner_id"`
	AssigneeID    *int64    `json:"assignee_id,omitempty"`
	Department    string    `json:"department,omitempty"`
	Note          string    `json:"note,omitempty"`
	OrderIndex    int       `json:"order_index"`
	ReminderDate  string    `json:"reminder_date,omitempty"`
	ReminderTime  string    `json:"reminder_time"`
	ReminderFired bool      `json:"reminder_fired"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TodoFilter narrows ListTodos. Zero values match everything.
type TodoFilter struct {
	OwnerID    int64
	Department string
	Status     string
	DueDate    string
	DueMonth   string // YYYY-MM
}

// TodoUpdate carries the fields to change on a todo. Nil fields are left
// untouched. Setting ReminderDate or ReminderTime re-arms the reminder.
type TodoUpdate struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *string
	AssigneeID   *int64
	Note         *string
	ReminderDate *string
	ReminderTime *string
}

// TodoOrder assigns a board position to a todo.
type TodoOrder struct {
	ID         int64 `json:"id"`
	OrderIndex int   `json:"order_index"`
}

const todoColumns = `id, title, description, status, priority, due_date, owner_id, assignee_id, department, note, order_index, reminder_date, reminder_time, reminder_fired, created_at, updated_at`

// CreateTodo inserts a todo and returns its id.
func (r *Repository) CreateTodo(ctx context.Context, t *Todo) (int64, error) {
	if strings.TrimSpace(t.Title) == "" {
		return 0, fmt.Errorf("todo title is required")
	}
	if t.Status == "" {
		t.Status = TodoStatusTodo
	}
	if t.Priority == "" {
		t.Priority = TodoPriorityMedium
	}
	reminderTime := strings.TrimSpace(t.ReminderTime)
	if reminderTime == "" {
		reminderTime = DefaultReminderTime
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO todos (title, description, status, priority, due_date, owner_id, assignee_id, department, note, order_index, reminder_date, reminder_time, reminder_fired, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		t.Title, nullIfBlank(t.Description), t.Status, t.Priority, nullIfBlank(t.DueDate),
		t.OwnerID, t.AssigneeID, nullIfBlank(t.Department), nullIfBlank(t.Note), t.OrderIndex,
		nullIfBlank(t.ReminderDate), reminderTime, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get todo id: %w", err)
	}
	return id, nil
}

// GetTodo returns a todo by id, or ErrNotFound.
func (r *Repository) GetTodo(ctx context.Context, id int64) (*Todo, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = ?`, id)
	t, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return t, nil
}

// ListTodos returns todos matching the filter in board order.
func (r *Repository) ListTodos(ctx context.Context, f TodoFilter) ([]Todo, error) {
	var conds []string
	var args []interface{}

	if f.OwnerID != 0 {
		conds = append(conds, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Department != "" {
		conds = append(conds, "department = ?")
		args = append(args, f.Department)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.DueDate != "" {
		conds = append(conds, "due_date = ?")
		args = append(args, f.DueDate)
	}
	if f.DueMonth != "" {
		conds = append(conds, "strftime('%Y-%m', due_date) = ?")
		args = append(args, f.DueMonth)
	}

	query := `SELECT ` + todoColumns + ` FROM todos`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY order_index ASC, due_date ASC, created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	todos := []Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, *t)
	}
	return todos, rows.Err()
}

// UpdateTodo applies u to the todo.
func (r *Repository) UpdateTodo(ctx context.Context, id int64, u TodoUpdate) error {
	var sets []string
	var args []interface{}

	if u.Title != nil {
		if strings.TrimSpace(*u.Title) == "" {
			return fmt.Errorf("todo title is required")
		}
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullIfBlank(*u.Description))
	}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *u.Status)
	}
	if u.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *u.Priority)
	}
	if u.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, nullIfBlank(*u.DueDate))
	}
	if u.AssigneeID != nil {
		sets = append(sets, "assignee_id = ?")
		if *u.AssigneeID == 0 {
			args = append(args, nil)
		} else {
			args = append(args, *u.AssigneeID)
		}
	}
	if u.Note != nil {
		sets = append(sets, "note = ?")
		args = append(args, nullIfBlank(*u.Note))
	}
	sets, args = appendReminderSets(sets, args, u.ReminderDate, u.ReminderTime)
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := r.db.ExecContext(ctx, `UPDATE todos SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTodoStatus moves a todo to another board column.
func (r *Repository) UpdateTodoStatus(ctx context.Context, id int64, status string) error {
	return r.UpdateTodo(ctx, id, TodoUpdate{Status: &status})
}

// ReorderTodos writes all board positions in a single transaction.
func (r *Repository) ReorderTodos(ctx context.Context, items []TodoOrder) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE todos SET order_index = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare reorder: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, item.OrderIndex, item.ID); err != nil {
			return fmt.Errorf("failed to reorder todo %d: %w", item.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	return nil
}

// DeleteTodo removes a todo.
func (r *Repository) DeleteTodo(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTodo(row rowScanner) (*Todo, error) {
	var t Todo
	var description, status, priority, dueDate, department, note, reminderDate, reminderTime sql.NullString
	var assignee sql.NullInt64
	var orderIndex sql.NullInt64
	var fired sql.NullBool
	if err := row.Scan(&t.ID, &t.Title, &description, &status, &priority, &dueDate, &t.OwnerID,
		&assignee, &department, &note, &orderIndex, &reminderDate, &reminderTime, &fired,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Description = description.String
	t.Status = status.String
	t.Priority = priority.String
	t.DueDate = dueDate.String
	if assignee.Valid {
		id := assignee.Int64
		t.AssigneeID = &id
	}
	t.Department = department.String
	t.Note = note.String
	t.OrderIndex = int(orderIndex.Int64)
	t.ReminderDate = reminderDate.String
	t.ReminderTime = reminderTime.String
	if t.ReminderTime == "" {
		t.ReminderTime = DefaultReminderTime
	}
	t.ReminderFired = fired.Bool
	return &t, nil
}
