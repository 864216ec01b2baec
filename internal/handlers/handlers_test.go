package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pd-experiments/vendere/internal/common"
	"github.com/pd-experiments/vendere/internal/interfaces"
	"github.com/pd-experiments/vendere/internal/models"
	"github.com/pd-experiments/vendere/internal/services/media"
	"github.com/pd-experiments/vendere/internal/services/variants"
	"github.com/pd-experiments/vendere/internal/tasks"
)

// stubKeywordStore is an in-memory KeywordStorage for handler tests
type stubKeywordStore struct {
	mu       sync.Mutex
	keywords map[string]*models.ResearchKeyword
	variants map[string]*models.KeywordVariant
}

func newStubKeywordStore() *stubKeywordStore {
	return &stubKeywordStore{
		keywords: make(map[string]*models.ResearchKeyword),
		variants: make(map[string]*models.KeywordVariant),
	}
}

func (s *stubKeywordStore) SaveKeyword(ctx context.Context, keyword *models.ResearchKeyword) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keyword.CreatedAt.IsZero() {
		keyword.CreatedAt = time.Now()
	}
	keyword.UpdatedAt = time.Now()
	s.keywords[keyword.ID] = keyword
	return nil
}

func (s *stubKeywordStore) GetKeyword(ctx context.Context, id string) (*models.ResearchKeyword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keyword, ok := s.keywords[id]
	if !ok {
		return nil, fmt.Errorf("keyword not found: %s", id)
	}
	return keyword, nil
}

func (s *stubKeywordStore) GetKeywords(ctx context.Context, ids []string) ([]*models.ResearchKeyword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*models.ResearchKeyword, 0, len(ids))
	for _, id := range ids {
		if keyword, ok := s.keywords[id]; ok {
			result = append(result, keyword)
		}
	}
	return result, nil
}

func (s *stubKeywordStore) ListKeywords(ctx context.Context, opts *interfaces.ListOptions) ([]*models.ResearchKeyword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.ResearchKeyword
	for _, keyword := range s.keywords {
		if opts == nil || opts.Owner == "" || keyword.Owner == opts.Owner {
			result = append(result, keyword)
		}
	}
	return result, nil
}

func (s *stubKeywordStore) CountKeywords(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keywords), nil
}

func (s *stubKeywordStore) DeleteKeyword(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keywords, id)
	return nil
}

func (s *stubKeywordStore) SaveVariant(ctx context.Context, variant *models.KeywordVariant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants[variant.ID] = variant
	return nil
}

func (s *stubKeywordStore) GetVariantsByKeyword(ctx context.Context, keywordID string) ([]*models.KeywordVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.KeywordVariant
	for _, variant := range s.variants {
		if variant.KeywordID == keywordID {
			result = append(result, variant)
		}
	}
	return result, nil
}

func (s *stubKeywordStore) CountVariants(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.variants), nil
}

// stubLLM answers every chat with one well-formed variant
type stubLLM struct{}

func (s *stubLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return `[{"geo_target":"de-DE","element_updates":{"headline":"Jetzt entdecken"},"audience_segment":"urban commuters","predicted_performance":0.7,"rationale":"localized phrasing"}]`, nil
}

func (s *stubLLM) DescribeImage(ctx context.Context, mediaType string, data []byte, prompt string) (string, error) {
	return "a frame", nil
}

func (s *stubLLM) HealthCheck(ctx context.Context) error { return nil }

func (s *stubLLM) Close() error { return nil }

func newTestRegistry(t *testing.T) *tasks.Registry {
	t.Helper()
	registry := tasks.NewRegistry(common.GetLogger())
	t.Cleanup(registry.Close)
	return registry
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestGetTaskHandlerNotFound(t *testing.T) {
	registry := newTestRegistry(t)
	handler := NewTaskHandler(registry, common.GetLogger())

	req := httptest.NewRequest("GET", "/api/tasks/task_missing", nil)
	rec := httptest.NewRecorder()
	handler.GetTaskHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Task not found", body["error"])
}

func TestGetTaskHandlerReturnsRecord(t *testing.T) {
	registry := newTestRegistry(t)
	handler := NewTaskHandler(registry, common.GetLogger())

	record, err := registry.Create(context.Background(), "user-1")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/tasks/"+record.ID, nil)
	rec := httptest.NewRecorder()
	handler.GetTaskHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.TaskRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, models.TaskStatusPending, got.Status)
}

func TestGetTaskHandlerRejectsBadPath(t *testing.T) {
	registry := newTestRegistry(t)
	handler := NewTaskHandler(registry, common.GetLogger())

	for _, path := range []string{"/api/tasks/", "/api/tasks/task_1/extra"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		handler.GetTaskHandler(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "path %s", path)
	}
}

func TestGenerateVariantsValidation(t *testing.T) {
	registry := newTestRegistry(t)
	orchestrator := tasks.NewOrchestrator(registry, time.Hour, common.GetLogger())
	service := variants.NewService(newStubKeywordStore(), &stubLLM{}, 100, 3, common.GetLogger())
	handler := NewVariantHandler(service, orchestrator, common.GetLogger())

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"empty keyword ids", `{"keyword_ids":[],"target_markets":["de-DE"]}`},
		{"missing target markets", `{"keyword_ids":["kw_1"]}`},
		{"max variants too large", `{"keyword_ids":["kw_1"],"target_markets":["de-DE"],"max_variants":50}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/variants/generate", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.GenerateVariantsHandler(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGenerateVariantsSubmitsTask(t *testing.T) {
	registry := newTestRegistry(t)
	orchestrator := tasks.NewOrchestrator(registry, time.Hour, common.GetLogger())
	store := newStubKeywordStore()
	require.NoError(t, store.SaveKeyword(context.Background(), &models.ResearchKeyword{ID: "kw_1", Term: "running shoes"}))

	service := variants.NewService(store, &stubLLM{}, 100, 3, common.GetLogger())
	handler := NewVariantHandler(service, orchestrator, common.GetLogger())

	body := `{"keyword_ids":["kw_1"],"target_markets":["de-DE","fr-FR"]}`
	req := httptest.NewRequest("POST", "/api/variants/generate", strings.NewReader(body))
	req.Header.Set("X-Owner-Id", "user-1")
	rec := httptest.NewRecorder()
	handler.GenerateVariantsHandler(rec, req)

	// Submission answers 200 with a pending task ID; the work itself is
	// asynchronous.
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	taskID, _ := resp["task_id"].(string)
	require.NotEmpty(t, taskID)
	assert.Equal(t, string(models.TaskStatusPending), resp["status"])
	assert.Equal(t, float64(1), resp["keywords"])

	orchestrator.Wait()

	record, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, record.Status)
	require.NotNil(t, record.Result)
	assert.Equal(t, 1, record.Result.Succeeded)
}

// stubMediaStore is an in-memory MediaStorage for handler tests
type stubMediaStore struct {
	mu       sync.Mutex
	assets   map[string]*models.MediaAsset
	analyses map[string]*models.FrameAnalysis
	mappings map[string]*models.FrameMapping
}

func newStubMediaStore() *stubMediaStore {
	return &stubMediaStore{
		assets:   make(map[string]*models.MediaAsset),
		analyses: make(map[string]*models.FrameAnalysis),
		mappings: make(map[string]*models.FrameMapping),
	}
}

func (s *stubMediaStore) SaveAsset(ctx context.Context, asset *models.MediaAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[asset.ID] = asset
	return nil
}

func (s *stubMediaStore) GetAsset(ctx context.Context, id string) (*models.MediaAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.assets[id]
	if !ok {
		return nil, fmt.Errorf("media asset not found: %s", id)
	}
	return asset, nil
}

func (s *stubMediaStore) ListAssets(ctx context.Context, opts *interfaces.ListOptions) ([]*models.MediaAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.MediaAsset
	for _, asset := range s.assets {
		result = append(result, asset)
	}
	return result, nil
}

func (s *stubMediaStore) DeleteAsset(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assets, id)
	return nil
}

func (s *stubMediaStore) SaveFrameAnalysis(ctx context.Context, frame *models.FrameAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[frame.ID] = frame
	return nil
}

func (s *stubMediaStore) GetFrameAnalyses(ctx context.Context, mediaID string) ([]*models.FrameAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.FrameAnalysis
	for _, frame := range s.analyses {
		if frame.MediaID == mediaID {
			result = append(result, frame)
		}
	}
	return result, nil
}

func (s *stubMediaStore) DeleteFrameAnalyses(ctx context.Context, mediaID string) error { return nil }

func (s *stubMediaStore) ListOrphanFrameAnalyses(ctx context.Context) ([]*models.FrameAnalysis, error) {
	return nil, nil
}

func (s *stubMediaStore) DeleteFrameAnalysis(ctx context.Context, id string) error { return nil }

func (s *stubMediaStore) SaveFrameMapping(ctx context.Context, mapping *models.FrameMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[mapping.ID] = mapping
	return nil
}

func (s *stubMediaStore) GetFrameMappings(ctx context.Context, mediaID string) ([]*models.FrameMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.FrameMapping
	for _, mapping := range s.mappings {
		if mapping.MediaID == mediaID {
			result = append(result, mapping)
		}
	}
	return result, nil
}

// stubEmbedder returns a fixed vector for every text
type stubEmbedder struct{}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (s *stubEmbedder) Close() error { return nil }

// stubExtractor reports one JPEG frame
type stubExtractor struct{}

func (s *stubExtractor) Extract(ctx context.Context, locator string) (*models.ExtractionResult, error) {
	return &models.ExtractionResult{
		Frames: []models.ExtractedFrame{
			{Timestamp: 0, Data: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("frame"))},
		},
		TotalDuration: 10,
		FrameCount:    1,
	}, nil
}

func TestIngestMediaSubmitsTask(t *testing.T) {
	registry := newTestRegistry(t)
	orchestrator := tasks.NewOrchestrator(registry, time.Hour, common.GetLogger())
	store := newStubMediaStore()

	pipeline := media.NewPipeline(store, &stubLLM{}, &stubEmbedder{}, &stubExtractor{}, common.GetLogger())
	handler := NewMediaHandler(pipeline, store, orchestrator, common.GetLogger())

	body := `{"name":"launch spot","source_url":"https://cdn.example.com/spot.mp4"}`
	req := httptest.NewRequest("POST", "/api/media/ingest", strings.NewReader(body))
	req.Header.Set("X-Owner-Id", "user-1")
	rec := httptest.NewRecorder()
	handler.IngestMediaHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	taskID, _ := resp["task_id"].(string)
	mediaID, _ := resp["media_id"].(string)
	require.NotEmpty(t, taskID)
	require.NotEmpty(t, mediaID)
	assert.Equal(t, string(models.TaskStatusPending), resp["status"])

	// The asset is durable before the batch runs
	asset, err := store.GetAsset(context.Background(), mediaID)
	require.NoError(t, err)
	assert.Equal(t, "launch spot", asset.Name)

	orchestrator.Wait()

	record, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, record.Status)
}

func TestIngestMediaValidation(t *testing.T) {
	registry := newTestRegistry(t)
	orchestrator := tasks.NewOrchestrator(registry, time.Hour, common.GetLogger())
	store := newStubMediaStore()
	pipeline := media.NewPipeline(store, &stubLLM{}, &stubEmbedder{}, &stubExtractor{}, common.GetLogger())
	handler := NewMediaHandler(pipeline, store, orchestrator, common.GetLogger())

	for _, body := range []string{
		`{"name":"no url"}`,
		`{"source_url":"https://cdn.example.com/spot.mp4"}`,
		`{not json`,
	} {
		req := httptest.NewRequest("POST", "/api/media/ingest", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.IngestMediaHandler(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestCreateKeywordHandler(t *testing.T) {
	store := newStubKeywordStore()
	handler := NewKeywordHandler(store, common.GetLogger())

	body := `{"term":"trail running shoes","volume":4400,"intent":"commercial","difficulty":38}`
	req := httptest.NewRequest("POST", "/api/keywords", strings.NewReader(body))
	req.Header.Set("X-Owner-Id", "user-1")
	rec := httptest.NewRecorder()
	handler.CreateKeywordHandler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var keyword models.ResearchKeyword
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&keyword))
	assert.Contains(t, keyword.ID, "kw_")
	assert.Equal(t, "user-1", keyword.Owner)
	assert.Equal(t, "trail running shoes", keyword.Term)
}

func TestCreateKeywordValidation(t *testing.T) {
	handler := NewKeywordHandler(newStubKeywordStore(), common.GetLogger())

	for _, body := range []string{
		`{"volume":100}`,
		`{"term":"x","difficulty":150}`,
		`{not json`,
	} {
		req := httptest.NewRequest("POST", "/api/keywords", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.CreateKeywordHandler(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestListKeywordsHandler(t *testing.T) {
	store := newStubKeywordStore()
	ctx := context.Background()
	require.NoError(t, store.SaveKeyword(ctx, &models.ResearchKeyword{ID: "kw_1", Owner: "user-1", Term: "one"}))
	require.NoError(t, store.SaveKeyword(ctx, &models.ResearchKeyword{ID: "kw_2", Owner: "user-1", Term: "two"}))

	handler := NewKeywordHandler(store, common.GetLogger())
	req := httptest.NewRequest("GET", "/api/keywords?limit=10", nil)
	req.Header.Set("X-Owner-Id", "user-1")
	rec := httptest.NewRecorder()
	handler.ListKeywordsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["total_count"])
	assert.Equal(t, float64(10), body["limit"])
}

func TestGetKeywordHandlerNotFound(t *testing.T) {
	handler := NewKeywordHandler(newStubKeywordStore(), common.GetLogger())

	req := httptest.NewRequest("GET", "/api/keywords/kw_missing", nil)
	rec := httptest.NewRecorder()
	handler.GetKeywordHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteKeywordHandler(t *testing.T) {
	store := newStubKeywordStore()
	require.NoError(t, store.SaveKeyword(context.Background(), &models.ResearchKeyword{ID: "kw_1", Term: "gone"}))
	handler := NewKeywordHandler(store, common.GetLogger())

	req := httptest.NewRequest("DELETE", "/api/keywords/kw_1", nil)
	rec := httptest.NewRecorder()
	handler.DeleteKeywordHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, err := store.GetKeyword(context.Background(), "kw_1")
	require.Error(t, err)
}

func TestGetKeywordVariantsHandler(t *testing.T) {
	store := newStubKeywordStore()
	ctx := context.Background()
	require.NoError(t, store.SaveVariant(ctx, &models.KeywordVariant{ID: "var_1", KeywordID: "kw_1", GeoTarget: "de-DE"}))
	require.NoError(t, store.SaveVariant(ctx, &models.KeywordVariant{ID: "var_2", KeywordID: "kw_1", GeoTarget: "fr-FR"}))
	require.NoError(t, store.SaveVariant(ctx, &models.KeywordVariant{ID: "var_3", KeywordID: "kw_other"}))

	handler := NewKeywordHandler(store, common.GetLogger())
	req := httptest.NewRequest("GET", "/api/keywords/kw_1/variants", nil)
	rec := httptest.NewRecorder()
	handler.GetKeywordVariantsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "kw_1", body["keyword_id"])
	assert.Equal(t, float64(2), body["count"])
}

func TestHealthHandler(t *testing.T) {
	handler := NewAPIHandler(nil, &stubLLM{}, nil, common.GetLogger())

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	services, ok := body["services"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "up", services["llm"])

	post := httptest.NewRequest("POST", "/api/health", nil)
	rec = httptest.NewRecorder()
	handler.HealthHandler(rec, post)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestVersionHandler(t *testing.T) {
	handler := NewAPIHandler(nil, nil, nil, common.GetLogger())

	req := httptest.NewRequest("GET", "/api/version", nil)
	rec := httptest.NewRecorder()
	handler.VersionHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["version"])
}
