package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/pd-experiments/vendere/internal/common"
	"github.com/pd-experiments/vendere/internal/interfaces"
)

// TaskCounter reports how many task records are currently live
type TaskCounter interface {
	Count() int
}

// APIHandler serves system endpoints
type APIHandler struct {
	storage   interfaces.StorageManager
	llm       interfaces.LLMService
	taskCount TaskCounter
	startTime time.Time
	logger    arbor.ILogger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(storage interfaces.StorageManager, llm interfaces.LLMService, taskCount TaskCounter, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		storage:   storage,
		llm:       llm,
		taskCount: taskCount,
		startTime: time.Now(),
		logger:    logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.Build,
		"git_commit": common.GitCommit,
	})
}

// HealthHandler returns health check status with per-service readiness
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	ctx := r.Context()

	status := "ok"
	services := map[string]string{}

	if h.storage != nil {
		if _, err := h.storage.KeywordStorage().CountKeywords(ctx); err != nil {
			services["storage"] = "down"
			status = "degraded"
		} else {
			services["storage"] = "up"
		}
	}
	if h.llm != nil {
		if err := h.llm.HealthCheck(ctx); err != nil {
			services["llm"] = "down"
			status = "degraded"
		} else {
			services["llm"] = "up"
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":   status,
		"services": services,
	})
}

// StatusHandler returns application counters
// GET /api/status
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	ctx := r.Context()

	keywordCount, err := h.storage.KeywordStorage().CountKeywords(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count keywords")
	}
	variantCount, err := h.storage.KeywordStorage().CountVariants(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count variants")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "running",
		"version":        common.GetVersion(),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"keywords":       keywordCount,
		"variants":       variantCount,
		"live_tasks":     h.taskCount.Count(),
		"goroutines":     common.GetGoroutineCount(),
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
