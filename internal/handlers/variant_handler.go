package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/pd-experiments/vendere/internal/models"
	"github.com/pd-experiments/vendere/internal/services/variants"
	"github.com/pd-experiments/vendere/internal/tasks"
)

// VariantHandler accepts variant-generation batch submissions
type VariantHandler struct {
	service      *variants.Service
	orchestrator *tasks.Orchestrator
	validate     *validator.Validate
	logger       arbor.ILogger
}

// NewVariantHandler creates a new variant handler
func NewVariantHandler(service *variants.Service, orchestrator *tasks.Orchestrator, logger arbor.ILogger) *VariantHandler {
	return &VariantHandler{
		service:      service,
		orchestrator: orchestrator,
		validate:     validator.New(),
		logger:       logger,
	}
}

// generateVariantsRequest is the request body for batch submission
type generateVariantsRequest struct {
	KeywordIDs    []string `json:"keyword_ids" validate:"required,min=1,dive,required"`
	TargetMarkets []string `json:"target_markets" validate:"required,min=1,dive,required"`
	ElementTypes  []string `json:"element_types"`
	MaxVariants   int      `json:"max_variants" validate:"omitempty,min=1,max=10"`
}

// GenerateVariantsHandler submits a variant-generation batch
// POST /api/variants/generate
//
// Shape validation happens here, before a task record exists. The caller
// gets a pending task ID back immediately and polls for the result.
func (h *VariantHandler) GenerateVariantsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req generateVariantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	owner := RequestOwner(r)
	params := models.GenerationParams{
		TargetMarkets: req.TargetMarkets,
		ElementTypes:  req.ElementTypes,
		MaxVariants:   req.MaxVariants,
	}

	batch := h.service.NewBatch(owner, req.KeywordIDs, params)
	taskID, err := h.orchestrator.Submit(r.Context(), owner, batch)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to submit variant generation batch")
		WriteError(w, http.StatusInternalServerError, "Failed to submit batch")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"task_id":  taskID,
		"status":   models.TaskStatusPending,
		"keywords": len(req.KeywordIDs),
	})
}
