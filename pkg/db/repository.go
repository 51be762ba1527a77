package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a row looked up by id does not exist.
var ErrNotFound = errors.New("not found")

// DefaultReminderTime is used when a reminder date is set without a time.
const DefaultReminderTime = "08:00"

// Repository handles data access
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Note represents a row in the notes table
type Note struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Color         string    `json:"color"`
	IsPinned      bool      `json:"is_pinned"`
	IsLocked      bool      `json:"is_locked"`
	ReminderDate  string    `json:"reminder_date,omitempty"`
	ReminderTime  string    `json:"reminder_time"`
	ReminderFired bool      `json:"reminder_fired"`
	OwnerID       int64     `json:"owner_id"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NoteFilter narrows ListNotes. Zero values match everything.
type NoteFilter struct {
	OwnerID    int64
	Color      string
	PinnedOnly bool
	Query      string
	Tag        string
}

// NoteUpdate carries the fields to change on a note. Nil fields are left
// untouched. Setting ReminderDate or ReminderTime re-arms the reminder.
type NoteUpdate struct {
	Title        *string
	Content      *string
	Color        *string
	IsPinned     *bool
	IsLocked     *bool
	ReminderDate *string
	ReminderTime *string
	Tags         []string
	SetTags      bool
}

// TagCount is one entry of a tag cloud.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

const noteColumns = `id, title, content, color, is_pinned, is_locked, reminder_date, reminder_time, reminder_fired, owner_id, created_at, updated_at`

// CreateNote inserts a note with an unfired reminder and returns its id.
func (r *Repository) CreateNote(ctx context.Context, n *Note) (int64, error) {
	if n.Color == "" {
		n.Color = "default"
	}
	reminderTime := strings.TrimSpace(n.ReminderTime)
	if reminderTime == "" {
		reminderTime = DefaultReminderTime
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO notes (title, content, color, is_pinned, is_locked, reminder_date, reminder_time, reminder_fired, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		n.Title, n.Content, n.Color, n.IsPinned, n.IsLocked,
		nullIfBlank(n.ReminderDate), reminderTime, n.OwnerID, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get note id: %w", err)
	}
	if err := setNoteTags(ctx, tx, id, n.Tags); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit note: %w", err)
	}
	return id, nil
}

// GetNote returns a note with its tags, or ErrNotFound.
func (r *Repository) GetNote(ctx context.Context, id int64) (*Note, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	tags, err := r.tagsForNotes(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	n.Tags = tags[id]
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return n, nil
}

// ListNotes returns notes matching the filter, pinned first, then most
// recently updated.
func (r *Repository) ListNotes(ctx context.Context, f NoteFilter) ([]Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE 1=1`
	var args []interface{}

	if f.OwnerID != 0 {
		query += ` AND owner_id = ?`
		args = append(args, f.OwnerID)
	}
	if f.Color != "" && f.Color != "all" {
		query += ` AND color = ?`
		args = append(args, f.Color)
	}
	if f.PinnedOnly {
		query += ` AND is_pinned = 1`
	}
	if f.Query != "" {
		query += ` AND (title LIKE ? OR content LIKE ?)`
		like := "%" + f.Query + "%"
		args = append(args, like, like)
	}
	if f.Tag != "" {
		query += ` AND id IN (SELECT note_id FROM note_tags WHERE tag = ?)`
		args = append(args, normalizeTag(f.Tag))
	}
	query += ` ORDER BY is_pinned DESC, updated_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	var ids []int64
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, *n)
		ids = append(ids, n.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	tags, err := r.tagsForNotes(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		notes[i].Tags = tags[notes[i].ID]
		if notes[i].Tags == nil {
			notes[i].Tags = []string{}
		}
	}
	return notes, nil
}

// UpdateNote applies u to the note. Supplying a reminder date or time
// resets reminder_fired so the edited reminder fires again.
func (r *Repository) UpdateNote(ctx context.Context, id int64, u NoteUpdate) error {
	var sets []string
	var args []interface{}

	if u.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *u.Content)
	}
	if u.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *u.Color)
	}
	if u.IsPinned != nil {
		sets = append(sets, "is_pinned = ?")
		args = append(args, *u.IsPinned)
	}
	if u.IsLocked != nil {
		sets = append(sets, "is_locked = ?")
		args = append(args, *u.IsLocked)
	}
	sets, args = appendReminderSets(sets, args, u.ReminderDate, u.ReminderTime)
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE notes SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if u.SetTags {
		if err := setNoteTags(ctx, tx, id, u.Tags); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit note update: %w", err)
	}
	return nil
}

// DeleteNote removes a note and its tags.
func (r *Repository) DeleteNote(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTags returns the tag cloud for an owner's notes, most used first.
func (r *Repository) ListTags(ctx context.Context, ownerID int64) ([]TagCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT nt.tag, COUNT(*) AS count FROM note_tags nt
		INNER JOIN notes n ON n.id = nt.note_id
		WHERE n.owner_id = ?
		GROUP BY nt.tag ORDER BY count DESC, nt.tag ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := []TagCount{}
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tc)
	}
	return tags, rows.Err()
}

func (r *Repository) tagsForNotes(ctx context.Context, ids []int64) (map[int64][]string, error) {
	result := make(map[int64][]string)
	if len(ids) == 0 {
		return result, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `SELECT note_id, tag FROM note_tags WHERE note_id IN (`+placeholders+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var noteID int64
		var tag string
		if err := rows.Scan(&noteID, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		result[noteID] = append(result[noteID], tag)
	}
	return result, rows.Err()
}

func setNoteTags(ctx context.Context, tx *sql.Tx, noteID int64, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	seen := make(map[string]bool)
	for _, t := range tags {
		t = normalizeTag(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if _, err := tx.ExecContext(ctx, `INSERT INTO note_tags (note_id, tag) VALUES (?, ?)`, noteID, t); err != nil {
			return fmt.Errorf("failed to insert tag %q: %w", t, err)
		}
	}
	return nil
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row rowScanner) (*Note, error) {
	var n Note
	var content, color, reminderDate, reminderTime sql.NullString
	var pinned, locked, fired sql.NullBool
	if err := row.Scan(&n.ID, &n.Title, &content, &color, &pinned, &locked,
		&reminderDate, &reminderTime, &fired, &n.OwnerID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Content = content.String
	n.Color = color.String
	n.IsPinned = pinned.Bool
	n.IsLocked = locked.Bool
	n.ReminderDate = reminderDate.String
	n.ReminderTime = reminderTime.String
	if n.ReminderTime == "" {
		n.ReminderTime = DefaultReminderTime
	}
	n.ReminderFired = fired.Bool
	return &n, nil
}

// appendReminderSets adds the reminder columns to an UPDATE and re-arms
// the reminder whenever either of them is edited.
func appendReminderSets(sets []string, args []interface{}, date, clock *string) ([]string, []interface{}) {
	if date != nil {
		sets = append(sets, "reminder_date = ?")
		args = append(args, nullIfBlank(*date))
	}
	if clock != nil {
		t := strings.TrimSpace(*clock)
		if t == "" {
			t = DefaultReminderTime
		}
		sets = append(sets, "reminder_time = ?")
		args = append(args, t)
	}
	if date != nil || clock != nil {
		sets = append(sets, "reminder_fired = 0")
	}
	return sets, args
}

func nullIfBlank(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}
