package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/pd-experiments/vendere/internal/interfaces"
	"github.com/pd-experiments/vendere/internal/models"
	"github.com/pd-experiments/vendere/internal/services/media"
	"github.com/pd-experiments/vendere/internal/tasks"
)

// MediaHandler serves media ingestion and retrieval requests
type MediaHandler struct {
	pipeline     *media.Pipeline
	storage      interfaces.MediaStorage
	orchestrator *tasks.Orchestrator
	validate     *validator.Validate
	logger       arbor.ILogger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(pipeline *media.Pipeline, storage interfaces.MediaStorage, orchestrator *tasks.Orchestrator, logger arbor.ILogger) *MediaHandler {
	return &MediaHandler{
		pipeline:     pipeline,
		storage:      storage,
		orchestrator: orchestrator,
		validate:     validator.New(),
		logger:       logger,
	}
}

// ingestMediaRequest is the request body for media ingestion
type ingestMediaRequest struct {
	Name      string `json:"name" validate:"required"`
	SourceURL string `json:"source_url" validate:"required"`
}

// IngestMediaHandler persists the parent asset and submits the ingestion batch
// POST /api/media/ingest
//
// The asset is durable before the task starts, so the media ID in the
// response is usable immediately even while analysis is still running.
func (h *MediaHandler) IngestMediaHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req ingestMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	owner := RequestOwner(r)
	asset, err := h.pipeline.CreateAsset(r.Context(), owner, req.Name, req.SourceURL)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create media asset")
		WriteError(w, http.StatusInternalServerError, "Failed to create media asset")
		return
	}

	taskID, err := h.orchestrator.Submit(r.Context(), owner, h.pipeline.NewBatch(asset))
	if err != nil {
		h.logger.Error().Err(err).Str("media_id", asset.ID).Msg("Failed to submit media ingestion batch")
		WriteError(w, http.StatusInternalServerError, "Failed to submit ingestion")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"task_id":  taskID,
		"media_id": asset.ID,
		"status":   models.TaskStatusPending,
	})
}

// ListMediaHandler returns media assets for the caller
// GET /api/media?limit=50&offset=0
func (h *MediaHandler) ListMediaHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	ctx := r.Context()

	limit, offset := GetListParams(r)
	assets, err := h.storage.ListAssets(ctx, &interfaces.ListOptions{
		Limit:  limit,
		Offset: offset,
		Owner:  RequestOwner(r),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list media assets")
		WriteError(w, http.StatusInternalServerError, "Failed to list media")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"media":  assets,
		"limit":  limit,
		"offset": offset,
	})
}

// GetMediaHandler returns one media asset with its frame analyses
// GET /api/media/{id}
func (h *MediaHandler) GetMediaHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	ctx := r.Context()

	mediaID := strings.TrimPrefix(r.URL.Path, "/api/media/")
	if mediaID == "" || strings.Contains(mediaID, "/") {
		WriteError(w, http.StatusBadRequest, "Media ID is required")
		return
	}

	asset, err := h.storage.GetAsset(ctx, mediaID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Media not found")
		return
	}

	frames, err := h.storage.GetFrameAnalyses(ctx, mediaID)
	if err != nil {
		h.logger.Warn().Err(err).Str("media_id", mediaID).Msg("Failed to load frame analyses")
		frames = nil
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"media":  asset,
		"frames": frames,
	})
}
