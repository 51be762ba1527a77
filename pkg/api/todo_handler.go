package api

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/mklimuk/skyadmin/pkg/db"
	"github.com/mklimuk/skyadmin/pkg/reminder"
)

var dueMonthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

type createTodoRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	DueDate      string `json:"due_date"`
	OwnerID      int64  `json:"owner_id"`
	AssigneeID   *int64 `json:"assignee_id"`
	Department   string `json:"department"`
	Note         string `json:"note"`
	OrderIndex   int    `json:"order_index"`
	ReminderDate string `json:"reminder_date"`
	ReminderTime string `json:"reminder_time"`
}

type updateTodoRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Status       *string `json:"status"`
	Priority     *string `json:"priority"`
	DueDate      *string `json:"due_date"`
	AssigneeID   *int64  `json:"assignee_id"`
	Note         *string `json:"note"`
	ReminderDate *string `json:"reminder_date"`
	ReminderTime *string `json:"reminder_time"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func validStatus(s string) bool {
	switch s {
	case db.TodoStatusTodo, db.TodoStatusInProgress, db.TodoStatusDone:
		return true
	}
	return false
}

func validPriority(s string) bool {
	switch s {
	case db.TodoPriorityLow, db.TodoPriorityMedium, db.TodoPriorityHigh:
		return true
	}
	return false
}

// HandleListTodos handles GET /todos
func (h *Handler) HandleListTodos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ownerID, ok := parseIDQuery(w, q.Get("owner_id"))
	if !ok {
		return
	}
	filter := db.TodoFilter{
		OwnerID:    ownerID,
		Department: q.Get("department"),
		Status:     q.Get("status"),
		DueDate:    q.Get("due_date"),
		DueMonth:   q.Get("due_month"),
	}
	if filter.Status != "" && !validStatus(filter.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if filter.DueMonth != "" && !dueMonthPattern.MatchString(filter.DueMonth) {
		writeError(w, http.StatusBadRequest, "due_month must be YYYY-MM")
		return
	}
	todos, err := h.Repo.ListTodos(r.Context(), filter)
	if err != nil {
		h.internalError(w, "failed to list todos", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"todos": todos})
}

// HandleGetTodo handles GET /todos/{id}
func (h *Handler) HandleGetTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDPath(w, r)
	if !ok {
		return
	}
	todo, err := h.Repo.GetTodo(r.Context(), id)
	if err != nil {
		h.repoError(w, "todo", err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// HandleCreateTodo handles POST /todos
func (h *Handler) HandleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Status != "" && !validStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if req.Priority != "" && !validPriority(req.Priority) {
		writeError(w, http.StatusBadRequest, "invalid priority")
		return
	}
	if err := validateDueDate(req.DueDate); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateReminder(&req.ReminderDate, &req.ReminderTime); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	todo := &db.Todo{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		OwnerID:      req.OwnerID,
		AssigneeID:   req.AssigneeID,
		Department:   req.Department,
		Note:         req.Note,
		OrderIndex:   req.OrderIndex,
		ReminderDate: req.ReminderDate,
		ReminderTime: req.ReminderTime,
	}
	id, err := h.Repo.CreateTodo(r.Context(), todo)
	if err != nil {
		h.internalError(w, "failed to create todo", err)
		return
	}
	created, err := h.Repo.GetTodo(r.Context(), id)
	if err != nil {
		h.internalError(w, "failed to fetch created todo", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdateTodo handles PATCH /todos/{id}
func (h *Handler) HandleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDPath(w, r)
	if !ok {
		return
	}
	var req updateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Status != nil && !validStatus(*req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if req.Priority != nil && !validPriority(*req.Priority) {
		writeError(w, http.StatusBadRequest, "invalid priority")
		return
	}
	if req.DueDate != nil {
		if err := validateDueDate(*req.DueDate); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := validateReminder(req.ReminderDate, req.ReminderTime); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u := db.TodoUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		AssigneeID:   req.AssigneeID,
		Note:         req.Note,
		ReminderDate: req.ReminderDate,
		ReminderTime: req.ReminderTime,
	}
	if err := h.Repo.UpdateTodo(r.Context(), id, u); err != nil {
		h.repoError(w, "todo", err)
		return
	}
	updated, err := h.Repo.GetTodo(r.Context(), id)
	if err != nil {
		h.repoError(w, "todo", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleUpdateTodoStatus handles PUT /todos/{id}/status
func (h *Handler) HandleUpdateTodoStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDPath(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if err := h.Repo.UpdateTodoStatus(r.Context(), id, req.Status); err != nil {
		h.repoError(w, "todo", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// HandleReorderTodos handles POST /todos/reorder
func (h *Handler) HandleReorderTodos(w http.ResponseWriter, r *http.Request) {
	var items []db.TodoOrder
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Repo.ReorderTodos(r.Context(), items); err != nil {
		h.internalError(w, "failed to reorder todos", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteTodo handles DELETE /todos/{id}
func (h *Handler) HandleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDPath(w, r)
	if !ok {
		return
	}
	if err := h.Repo.DeleteTodo(r.Context(), id); err != nil {
		h.repoError(w, "todo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateDueDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := reminder.ParseDate(s)
	return err
}
