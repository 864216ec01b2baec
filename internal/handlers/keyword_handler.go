package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/pd-experiments/vendere/internal/common"
	"github.com/pd-experiments/vendere/internal/interfaces"
	"github.com/pd-experiments/vendere/internal/models"
)

// KeywordHandler serves the research keyword library
type KeywordHandler struct {
	storage  interfaces.KeywordStorage
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewKeywordHandler creates a new keyword handler
func NewKeywordHandler(storage interfaces.KeywordStorage, logger arbor.ILogger) *KeywordHandler {
	return &KeywordHandler{
		storage:  storage,
		validate: validator.New(),
		logger:   logger,
	}
}

// createKeywordRequest is the request body for adding a keyword
type createKeywordRequest struct {
	Term       string  `json:"term" validate:"required"`
	Volume     int     `json:"volume" validate:"omitempty,min=0"`
	Intent     string  `json:"intent"`
	Difficulty float64 `json:"difficulty" validate:"omitempty,min=0,max=100"`
}

// ListKeywordsHandler returns keywords for the caller
// GET /api/keywords?limit=50&offset=0
func (h *KeywordHandler) ListKeywordsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, offset := GetListParams(r)
	keywords, err := h.storage.ListKeywords(ctx, &interfaces.ListOptions{
		Limit:  limit,
		Offset: offset,
		Owner:  RequestOwner(r),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list keywords")
		WriteError(w, http.StatusInternalServerError, "Failed to list keywords")
		return
	}

	totalCount, err := h.storage.CountKeywords(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count keywords")
		totalCount = len(keywords)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"keywords":    keywords,
		"total_count": totalCount,
		"limit":       limit,
		"offset":      offset,
	})
}

// CreateKeywordHandler adds a keyword to the library
// POST /api/keywords
func (h *KeywordHandler) CreateKeywordHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createKeywordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	keyword := &models.ResearchKeyword{
		ID:         common.NewKeywordID(),
		Owner:      RequestOwner(r),
		Term:       req.Term,
		Volume:     req.Volume,
		Intent:     req.Intent,
		Difficulty: req.Difficulty,
	}
	if err := h.storage.SaveKeyword(ctx, keyword); err != nil {
		h.logger.Error().Err(err).Str("term", req.Term).Msg("Failed to save keyword")
		WriteError(w, http.StatusInternalServerError, "Failed to save keyword")
		return
	}

	WriteJSON(w, http.StatusCreated, keyword)
}

// GetKeywordHandler returns one keyword by ID
// GET /api/keywords/{id}
func (h *KeywordHandler) GetKeywordHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	keywordID := keywordIDFromPath(r.URL.Path)
	if keywordID == "" {
		WriteError(w, http.StatusBadRequest, "Keyword ID is required")
		return
	}

	keyword, err := h.storage.GetKeyword(ctx, keywordID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Keyword not found")
		return
	}

	WriteJSON(w, http.StatusOK, keyword)
}

// DeleteKeywordHandler removes a keyword from the library
// DELETE /api/keywords/{id}
func (h *KeywordHandler) DeleteKeywordHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	keywordID := keywordIDFromPath(r.URL.Path)
	if keywordID == "" {
		WriteError(w, http.StatusBadRequest, "Keyword ID is required")
		return
	}

	if err := h.storage.DeleteKeyword(ctx, keywordID); err != nil {
		h.logger.Error().Err(err).Str("keyword_id", keywordID).Msg("Failed to delete keyword")
		WriteError(w, http.StatusInternalServerError, "Failed to delete keyword")
		return
	}

	WriteSuccess(w, "Keyword deleted")
}

// GetKeywordVariantsHandler returns the generated variants for a keyword
// GET /api/keywords/{id}/variants
func (h *KeywordHandler) GetKeywordVariantsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	ctx := r.Context()

	path := strings.TrimPrefix(r.URL.Path, "/api/keywords/")
	keywordID := strings.TrimSuffix(path, "/variants")
	if keywordID == "" || strings.Contains(keywordID, "/") {
		WriteError(w, http.StatusBadRequest, "Keyword ID is required")
		return
	}

	variants, err := h.storage.GetVariantsByKeyword(ctx, keywordID)
	if err != nil {
		h.logger.Error().Err(err).Str("keyword_id", keywordID).Msg("Failed to load variants")
		WriteError(w, http.StatusInternalServerError, "Failed to load variants")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"keyword_id": keywordID,
		"variants":   variants,
		"count":      len(variants),
	})
}

func keywordIDFromPath(path string) string {
	id := strings.TrimPrefix(path, "/api/keywords/")
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
