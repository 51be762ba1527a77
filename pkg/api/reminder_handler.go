package api

import (
	"errors"
	"maps"
	"net/http"
	"slices"

	"github.com/mklimuk/skyadmin/pkg/db"
	"github.com/mklimuk/skyadmin/pkg/notify"
)

type pollerStatus struct {
	Kind     string `json:"kind"`
	State    string `json:"state"`
	Interval string `json:"interval"`
}

type reminderStatusResponse struct {
	Pollers   []pollerStatus `json:"pollers"`
	Notifier  string         `json:"notifier"`
	Supported bool           `json:"notifications_supported"`
}

type testNotificationResponse struct {
	Status       string              `json:"status"`
	Notification notify.Notification `json:"notification"`
	Error        string              `json:"error,omitempty"`
}

// HandleReminderStatus handles GET /reminders/status
func (h *Handler) HandleReminderStatus(w http.ResponseWriter, r *http.Request) {
	resp := reminderStatusResponse{Pollers: []pollerStatus{}}
	for _, kind := range slices.Sorted(maps.Keys(h.Pollers)) {
		p := h.Pollers[kind]
		resp.Pollers = append(resp.Pollers, pollerStatus{
			Kind:     kind,
			State:    p.State().String(),
			Interval: p.Interval().String(),
		})
	}
	if h.Notifier != nil {
		resp.Notifier = h.Notifier.Name()
		resp.Supported = h.Notifier.Supported()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleListPending handles GET /reminders/{kind}/pending
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pollerFor(w, r)
	if !ok {
		return
	}
	items, err := p.Pending(r.Context())
	if err != nil {
		h.internalError(w, "failed to list pending reminders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"kind": p.Kind(), "pending": items})
}

// HandleCheckNow handles POST /reminders/{kind}/check. It runs one check
// synchronously and returns the report.
func (h *Handler) HandleCheckNow(w http.ResponseWriter, r *http.Request) {
	p, ok := h.pollerFor(w, r)
	if !ok {
		return
	}
	report, err := p.CheckNow(r.Context())
	if err != nil {
		h.internalError(w, "reminder check failed", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleMarkFired handles POST /reminders/{kind}/{id}/fired
func (h *Handler) HandleMarkFired(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	id, ok := parseIDPath(w, r)
	if !ok {
		return
	}

	var err error
	switch kind {
	case db.KindNotes:
		_, err = h.Repo.GetNote(r.Context(), id)
	case db.KindTodos:
		_, err = h.Repo.GetTodo(r.Context(), id)
	default:
		writeError(w, http.StatusNotFound, "unknown reminder kind")
		return
	}
	if err != nil {
		h.repoError(w, kind, err)
		return
	}
	if err := h.Repo.MarkReminderFired(r.Context(), kind, id); err != nil {
		h.internalError(w, "failed to mark reminder fired", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"kind": kind, "id": id, "reminder_fired": true})
}

// HandleTestNotification handles POST /reminders/test-notification
func (h *Handler) HandleTestNotification(w http.ResponseWriter, r *http.Request) {
	n := notify.TestNotification()
	if h.Notifier == nil || !h.Notifier.Supported() {
		writeJSON(w, http.StatusServiceUnavailable, testNotificationResponse{
			Status:       "unsupported",
			Notification: n,
			Error:        notify.ErrUnsupported.Error(),
		})
		return
	}
	if err := h.Notifier.Show(r.Context(), n); err != nil {
		status := http.StatusBadGateway
		result := "failed"
		if errors.Is(err, notify.ErrUnsupported) {
			status = http.StatusServiceUnavailable
			result = "unsupported"
		}
		h.Logger.Warn("test notification failed", "error", err)
		writeJSON(w, status, testNotificationResponse{Status: result, Notification: n, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, testNotificationResponse{Status: "sent", Notification: n})
}

func (h *Handler) pollerFor(w http.ResponseWriter, r *http.Request) (Poller, bool) {
	kind := r.PathValue("kind")
	p, ok := h.Pollers[kind]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown or disabled reminder kind: "+kind)
		return nil, false
	}
	return p, true
}
