package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mklimuk/skyadmin/pkg/db"
	"github.com/mklimuk/skyadmin/pkg/notify"
	"github.com/mklimuk/skyadmin/pkg/reminder"
)

// Handler holds dependencies for API handlers
type Handler struct {
	Repo     *db.Repository
	Pollers  map[string]Poller
	Notifier notify.Notifier
	Logger   *slog.Logger
}

type createNoteRequest struct {
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Color        string   `json:"color"`
	IsPinned     bool     `json:"is_pinned"`
	IsLocked     bool     `json:"is_locked"`
	ReminderDate string   `json:"reminder_date"`
	ReminderTime string   `json:"reminder_time"`
	OwnerID      int64    `json:"owner_id"`
	Tags         []string `json:"tags"`
}

type updateNoteRequest struct {
	Title        *string   `json:"title"`
	Content      *string   `json:"content"`
	Color        *string   `json:"color"`
	IsPinned     *bool     `json:"is_pinned"`
	IsLocked     *bool     `json:"is_locked"`
	ReminderDate *string   `json:"reminder_date"`
	ReminderTime *string   `json:"reminder_time"`
	Tags         *[]string `json:"tags"`
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleListNotes handles GET /notes
func (h *Handler) HandleListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ownerID, ok := parseIDQuery(w, q.Get("owner_id"))
	if !ok {
		return
	}
	filter := db.NoteFilter{
		OwnerID:    ownerID,
		Color:      q.Get("color"),
		PinnedOnly: parseBool(q.Get("pinned")),
		Query:      strings.TrimSpace(q.Get("q")),
		Tag:        strings.TrimSpace(q.Get("tag")),
	}
	notes, err := h.Repo.ListNotes(r.Context(), filter)
	if err != nil {
		h.internalError(w, "failed to list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notes": notes})
}

// HandleListTags handles GET /notes/tags
func (h *Handler) HandleListTags(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := parseIDQuery(w, r.URL.Query().Get("owner_id"))
	if !ok {
		return
	}
	tags, err := h.Repo.ListTags(r.Context(), ownerID)
	if err != nil {
		h.internalError(w, "failed to list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}

// HandleGetNote handles GET /notes/{id}
func (h *Handler) HandleGetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDPath(w, r)
	if !ok {
		return
	}
	note, err := h.Repo.GetNote(r.Context(), id)
	if err != nil {
		h.repoError(w, "note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleCreateNote handles POST /notes
func (h *Handler) HandleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateReminder(&req.ReminderDate, &req.ReminderTime); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	note := &db.Note{
		Title:        strings.TrimSpace(req.Title),
		Content:      req.Content,
		Color:        req.Color,
		IsPinned:     req.IsPinned,
		IsLocked:     req.IsLocked,
		ReminderDate: req.ReminderDate,
		ReminderTime: req.ReminderTime,
		OwnerID:      req.OwnerID,
		Tags:         req.Tags,
	}
	id, err := h.Repo.CreateNote(r.Context(), note)
	if err != nil {
		h.internalError(w, "failed to create note", err)
		return
	}
	created, err := h.Repo.GetNote(r.Context(), id)
	if err != nil {
		h.internalError(w, "failed to fetch created note", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdateNote handles PATCH /notes/{id}. Sending reminder_date or
// reminder_time re-arms the reminder.
func (h *Handler) HandleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDPath(w, r)
	if !ok {
		return
	}
	var req updateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateReminder(req.ReminderDate, req.ReminderTime); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u := db.NoteUpdate{
		Title:        req.Title,
		Content:      req.Content,
		Color:        req.Color,
		IsPinned:     req.IsPinned,
		IsLocked:     req.IsLocked,
		ReminderDate: req.ReminderDate,
		ReminderTime: req.ReminderTime,
	}
	if req.Tags != nil {
		u.Tags = *req.Tags
		u.SetTags = true
	}
	if err := h.Repo.UpdateNote(r.Context(), id, u); err != nil {
		h.repoError(w, "note", err)
		return
	}
	updated, err := h.Repo.GetNote(r.Context(), id)
	if err != nil {
		h.repoError(w, "note", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleDeleteNote handles DELETE /notes/{id}
func (h *Handler) HandleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDPath(w, r)
	if !ok {
		return
	}
	if err := h.Repo.DeleteNote(r.Context(), id); err != nil {
		h.repoError(w, "note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validateReminder rejects reminder fields the poller could not parse.
// Supplied values are trimmed in place.
func validateReminder(date, clock *string) error {
	if date != nil {
		*date = strings.TrimSpace(*date)
		if *date != "" {
			if _, err := reminder.ParseDate(*date); err != nil {
				return err
			}
		}
	}
	if clock != nil {
		*clock = strings.TrimSpace(*clock)
		c, err := reminder.ParseClock(*clock)
		if err != nil {
			return err
		}
		*clock = c.String()
	}
	return nil
}

func (h *Handler) repoError(w http.ResponseWriter, entity string, err error) {
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, entity+" not found")
		return
	}
	h.internalError(w, "failed to access "+entity, err)
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error) {
	h.Logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg+": "+err.Error())
}

func parseIDPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := r.PathValue("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// parseIDQuery parses an optional positive id from a query value.
func parseIDQuery(w http.ResponseWriter, s string) (int64, bool) {
	if s == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid owner_id")
		return 0, false
	}
	return id, true
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
