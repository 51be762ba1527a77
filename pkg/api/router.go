package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mklimuk/skyadmin/pkg/db"
	"github.com/mklimuk/skyadmin/pkg/notify"
	"github.com/mklimuk/skyadmin/pkg/reminder"
)

// Poller is the reminder poller surface exposed over HTTP.
type Poller interface {
	Kind() string
	State() reminder.State
	Interval() time.Duration
	Pending(ctx context.Context) ([]reminder.Item, error)
	CheckNow(ctx context.Context) (*reminder.Report, error)
}

// NewRouter creates a new HTTP router. gatherer may be nil, in which case
// /metrics is not served.
func NewRouter(repo *db.Repository, pollers []Poller, notifier notify.Notifier, gatherer prometheus.Gatherer, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		Repo:     repo,
		Pollers:  make(map[string]Poller, len(pollers)),
		Notifier: notifier,
		Logger:   logger,
	}
	for _, p := range pollers {
		h.Pollers[p.Kind()] = p
	}

	mux.HandleFunc("GET /healthz", h.HandleHealth)

	mux.HandleFunc("GET /notes", h.HandleListNotes)
	mux.HandleFunc("POST /notes", h.HandleCreateNote)
	mux.HandleFunc("GET /notes/tags", h.HandleListTags)
	mux.HandleFunc("GET /notes/{id}", h.HandleGetNote)
	mux.HandleFunc("PATCH /notes/{id}", h.HandleUpdateNote)
	mux.HandleFunc("DELETE /notes/{id}", h.HandleDeleteNote)

	mux.HandleFunc("GET /todos", h.HandleListTodos)
	mux.HandleFunc("POST /todos", h.HandleCreateTodo)
	mux.HandleFunc("POST /todos/reorder", h.HandleReorderTodos)
	mux.HandleFunc("GET /todos/{id}", h.HandleGetTodo)
	mux.HandleFunc("PATCH /todos/{id}", h.HandleUpdateTodo)
	mux.HandleFunc("PUT /todos/{id}/status", h.HandleUpdateTodoStatus)
	mux.HandleFunc("DELETE /todos/{id}", h.HandleDeleteTodo)

	mux.HandleFunc("GET /reminders/status", h.HandleReminderStatus)
	mux.HandleFunc("POST /reminders/test-notification", h.HandleTestNotification)
	mux.HandleFunc("GET /reminders/{kind}/pending", h.HandleListPending)
	mux.HandleFunc("POST /reminders/{kind}/check", h.HandleCheckNow)
	mux.HandleFunc("POST /reminders/{kind}/{id}/fired", h.HandleMarkFired)

	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}
