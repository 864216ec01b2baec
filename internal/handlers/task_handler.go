package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/pd-experiments/vendere/internal/interfaces"
)

// TaskHandler serves task record polling requests
type TaskHandler struct {
	store  interfaces.TaskStore
	logger arbor.ILogger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(store interfaces.TaskStore, logger arbor.ILogger) *TaskHandler {
	return &TaskHandler{
		store:  store,
		logger: logger,
	}
}

// GetTaskHandler returns a single task record by ID
// GET /api/tasks/{id}
//
// An evicted record answers exactly like one that never existed.
func (h *TaskHandler) GetTaskHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	ctx := r.Context()

	taskID := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	if taskID == "" || strings.Contains(taskID, "/") {
		WriteError(w, http.StatusBadRequest, "Task ID is required")
		return
	}

	record, err := h.store.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, interfaces.ErrTaskNotFound) {
			WriteError(w, http.StatusNotFound, "Task not found")
			return
		}
		h.logger.Error().Err(err).Str("task_id", taskID).Msg("Failed to load task record")
		WriteError(w, http.StatusInternalServerError, "Failed to load task")
		return
	}

	WriteJSON(w, http.StatusOK, record)
}
