package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sql.DB connection
type DB struct {
	*sql.DB
}

// NewDB creates a new SQLite database connection
func NewDB(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A second pooled connection to ":memory:" would see an empty database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.DB.Close()
}

// InitSchema creates the tables used by notes, todos and their reminders
// and brings older databases up to date.
func (d *DB) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL DEFAULT '',
		content TEXT DEFAULT '',
		color TEXT DEFAULT 'default',
		is_pinned INTEGER DEFAULT 0,
		is_locked INTEGER DEFAULT 0,
		reminder_date TEXT,
		reminder_time TEXT DEFAULT '08:00',
		reminder_fired INTEGER DEFAULT 0,
		owner_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS note_tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id INTEGER NOT NULL,
		tag TEXT NOT NULL,
		FOREIGN KEY(note_id) REFERENCES notes(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS todos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT,
		status TEXT DEFAULT 'todo',
		priority TEXT DEFAULT 'medium',
		due_date TEXT,
		owner_id INTEGER NOT NULL,
		assignee_id INTEGER,
		department TEXT,
		note TEXT,
		order_index INTEGER DEFAULT 0,
		reminder_date TEXT,
		reminder_time TEXT DEFAULT '08:00',
		reminder_fired INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := d.Exec(schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}

	// Databases created before reminders existed lack these columns.
	migrations := []struct {
		table, column, def string
	}{
		{"notes", "reminder_time", "TEXT DEFAULT '08:00'"},
		{"notes", "reminder_fired", "INTEGER DEFAULT 0"},
		{"todos", "order_index", "INTEGER DEFAULT 0"},
		{"todos", "reminder_date", "TEXT"},
		{"todos", "reminder_time", "TEXT DEFAULT '08:00'"},
		{"todos", "reminder_fired", "INTEGER DEFAULT 0"},
	}
	for _, m := range migrations {
		if err := d.addColumn(m.table, m.column, m.def); err != nil {
			return err
		}
	}

	return nil
}

func (d *DB) addColumn(table, column, def string) error {
	_, err := d.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, def))
	if err != nil && !strings.Contains(err.Error(), "duplicate column name") {
		return fmt.Errorf("failed to add %s.%s: %w", table, column, err)
	}
	return nil
}
