package reminder

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/skyadmin/pkg/db"
	"github.com/mklimuk/skyadmin/pkg/notify"
)

func setupTestDB(t *testing.T) *db.Repository {
	t.Helper()
	database, err := db.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.InitSchema())
	return db.NewRepository(database)
}

func strPtr(s string) *string { return &s }

func TestNewSource(t *testing.T) {
	repo := setupTestDB(t)

	for _, kind := range db.Kinds {
		src, err := NewSource(repo, kind)
		require.NoError(t, err)
		assert.Equal(t, kind, src.Kind())
	}

	_, err := NewSource(repo, "events")
	require.Error(t, err)
}

func TestDescribe(t *testing.T) {
	repo := setupTestDB(t)

	n := NewNoteSource(repo).Describe(Item{ID: 1, Title: "Call supplier", ReminderDate: "2024-06-01", ReminderTime: "09:15"})
	assert.Equal(t, "🔔 Reminder - Call supplier", n.Title)
	assert.Equal(t, "Reminder time reached: 09:15 on 2024-06-01", n.Body)

	n = NewTodoSource(repo).Describe(Item{ID: 2, Title: "  ", ReminderDate: "2024-06-01"})
	assert.Equal(t, "🔔 Task reminder - Task", n.Title)
	assert.True(t, strings.Contains(n.Body, "08:00"))
}

func TestStoreSourceExcludesBlankDates(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.CreateNote(ctx, &db.Note{Title: "no reminder"})
	require.NoError(t, err)
	_, err = repo.CreateNote(ctx, &db.Note{Title: "blank reminder", ReminderDate: "   "})
	require.NoError(t, err)
	id, err := repo.CreateNote(ctx, &db.Note{Title: "dated", ReminderDate: "2024-01-01"})
	require.NoError(t, err)

	items, err := NewNoteSource(repo).FetchUnfired(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, "08:00", items[0].ReminderTime)
}

func TestFireAndRearmNote(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	id, err := repo.CreateNote(ctx, &db.Note{Title: "Renew license", ReminderDate: "2024-01-01", ReminderTime: "08:00"})
	require.NoError(t, err)

	src := NewNoteSource(repo)
	n := &fakeNotifier{supported: true}
	p := NewPoller(src, n, Options{Logger: discardLogger(), Now: fixedNow("2024-01-02", "00:00")})

	report, err := p.CheckNow(ctx)
	require.NoError(t, err)
	require.Len(t, report.Fired, 1)
	assert.Equal(t, "🔔 Reminder - Renew license", n.shown[0].Title)

	items, err := src.FetchUnfired(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, repo.UpdateNote(ctx, id, db.NoteUpdate{ReminderDate: strPtr("2024-02-01")}))

	items, err = src.FetchUnfired(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2024-02-01", items[0].ReminderDate)

	note, err := repo.GetNote(ctx, id)
	require.NoError(t, err)
	assert.False(t, note.ReminderFired)
}

func TestFireTodoRegardlessOfStatus(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	id, err := repo.CreateTodo(ctx, &db.Todo{Title: "Ship order", Status: db.TodoStatusDone, ReminderDate: "2024-01-01", ReminderTime: "07:30"})
	require.NoError(t, err)

	n := &fakeNotifier{supported: true}
	p := NewPoller(NewTodoSource(repo), n, Options{Logger: discardLogger(), Now: fixedNow("2024-01-01", "07:30")})

	report, err := p.CheckNow(ctx)
	require.NoError(t, err)
	require.Len(t, report.Fired, 1)
	assert.Equal(t, id, report.Fired[0].ID)

	todo, err := repo.GetTodo(ctx, id)
	require.NoError(t, err)
	assert.True(t, todo.ReminderFired)

	// Marking again is a no-op.
	require.NoError(t, NewTodoSource(repo).MarkFired(ctx, id))
}

func TestTodoPrioritySetsUrgency(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for _, prio := range []string{db.TodoPriorityLow, db.TodoPriorityMedium, db.TodoPriorityHigh} {
		_, err := repo.CreateTodo(ctx, &db.Todo{Title: prio, Priority: prio, ReminderDate: "2024-01-01"})
		require.NoError(t, err)
	}
	_, err := repo.CreateNote(ctx, &db.Note{Title: "note", ReminderDate: "2024-01-01"})
	require.NoError(t, err)

	want := map[string]notify.Urgency{
		db.TodoPriorityLow:    notify.UrgencyLow,
		db.TodoPriorityMedium: notify.UrgencyNormal,
		db.TodoPriorityHigh:   notify.UrgencyCritical,
	}
	todos := NewTodoSource(repo)
	items, err := todos.FetchUnfired(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, it := range items {
		assert.Equal(t, it.Title, it.Priority)
		assert.Equal(t, want[it.Priority], todos.Describe(it).Urgency, it.Title)
	}

	notes := NewNoteSource(repo)
	items, err = notes.FetchUnfired(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Priority)
	assert.Equal(t, notify.UrgencyNormal, notes.Describe(items[0]).Urgency)
}
