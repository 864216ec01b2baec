// -----------------------------------------------------------------------
// Media Pipeline - Video ingestion, frame analysis, and summarization
// -----------------------------------------------------------------------

package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/pd-experiments/vendere/internal/common"
	"github.com/pd-experiments/vendere/internal/interfaces"
	"github.com/pd-experiments/vendere/internal/models"
	"github.com/pd-experiments/vendere/internal/tasks"
)

const framePrompt = "Describe this advertising frame in two or three sentences, covering the subject, setting, text overlays, and tone."

// Pipeline ingests videos: it extracts frames through the out-of-process
// tool, analyzes each frame with vision and embedding calls, and writes
// the ordinal mapping list back to the parent asset.
type Pipeline struct {
	media     interfaces.MediaStorage
	llm       interfaces.LLMService
	embedder  interfaces.EmbeddingService
	extractor interfaces.FrameExtractor
	logger    arbor.ILogger
}

// NewPipeline creates a media ingestion pipeline
func NewPipeline(media interfaces.MediaStorage, llm interfaces.LLMService, embedder interfaces.EmbeddingService, extractor interfaces.FrameExtractor, logger arbor.ILogger) *Pipeline {
	return &Pipeline{
		media:     media,
		llm:       llm,
		embedder:  embedder,
		extractor: extractor,
		logger:    logger,
	}
}

// CreateAsset persists the parent record before the batch is submitted, so
// the caller gets a media ID immediately. The asset exists from this point
// on even if extraction later fails; it just carries no mappings then.
func (p *Pipeline) CreateAsset(ctx context.Context, owner, name, sourceURL string) (*models.MediaAsset, error) {
	asset := &models.MediaAsset{
		ID:              common.NewMediaID(),
		Owner:           owner,
		Name:            name,
		SourceURL:       sourceURL,
		FrameMappingIDs: []string{},
	}
	if err := p.media.SaveAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to persist media asset: %w", err)
	}
	return asset, nil
}

// NewBatch builds the ingestion batch for an already-persisted asset
func (p *Pipeline) NewBatch(asset *models.MediaAsset) *Batch {
	return &Batch{pipeline: p, asset: asset}
}

// Batch is one submitted ingestion run for one media asset
type Batch struct {
	pipeline *Pipeline
	asset    *models.MediaAsset
}

// Name identifies the batch type for logging
func (b *Batch) Name() string { return "media_ingestion" }

// Concurrency is 1: frames are described one at a time so a long video
// cannot monopolize the vision model.
func (b *Batch) Concurrency() int { return 1 }

// Resolve runs the extraction tool. Tool failure is the prerequisite
// failure of this batch; the parent asset survives it with an empty
// mapping list. Each extracted frame becomes one work item carrying its
// ordinal position in extraction order.
func (b *Batch) Resolve(ctx context.Context) ([]tasks.WorkItem, error) {
	result, err := b.pipeline.extractor.Extract(ctx, b.asset.SourceURL)
	if err != nil {
		return nil, err
	}

	b.asset.DurationSeconds = result.TotalDuration
	b.asset.FrameCount = result.FrameCount
	if err := b.pipeline.media.SaveAsset(ctx, b.asset); err != nil {
		b.pipeline.logger.Warn().
			Err(err).
			Str("media_id", b.asset.ID).
			Msg("Failed to persist extraction metadata on asset")
	}

	items := make([]tasks.WorkItem, 0, len(result.Frames))
	for ordinal, frame := range result.Frames {
		items = append(items, tasks.WorkItem{
			ID: common.NewFrameID(),
			Params: map[string]interface{}{
				"ordinal":   ordinal,
				"timestamp": frame.Timestamp,
				"data":      frame.Data,
			},
		})
	}
	return items, nil
}

// Processor returns the per-frame worker
func (b *Batch) Processor() tasks.Processor {
	return &frameProcessor{batch: b}
}

// Finalize writes the ordinal-ordered mapping list back to the parent and
// attempts an aggregate description. Summarization is best-effort: its
// failure is logged and the asset keeps an empty description.
func (b *Batch) Finalize(ctx context.Context, outcomes []models.ItemOutcome) interface{} {
	p := b.pipeline

	mappings, err := p.media.GetFrameMappings(ctx, b.asset.ID)
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("media_id", b.asset.ID).
			Msg("Failed to load frame mappings during finalization")
		mappings = nil
	}

	mappingIDs := make([]string, 0, len(mappings))
	for _, m := range mappings {
		mappingIDs = append(mappingIDs, m.ID)
	}
	b.asset.FrameMappingIDs = mappingIDs

	if description, err := b.summarize(ctx); err != nil {
		p.logger.Warn().
			Err(err).
			Str("media_id", b.asset.ID).
			Msg("Media summarization failed")
	} else {
		b.asset.Description = description
	}

	if err := p.media.SaveAsset(ctx, b.asset); err != nil {
		p.logger.Error().
			Err(err).
			Str("media_id", b.asset.ID).
			Msg("Failed to persist finalized media asset")
	}

	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.Status == models.OutcomeSuccess {
			succeeded++
		}
	}

	return &IngestSummary{
		MediaID:         b.asset.ID,
		FramesExtracted: len(outcomes),
		FramesAnalyzed:  succeeded,
		DurationSeconds: b.asset.DurationSeconds,
	}
}

// summarize builds one aggregate description from the successful frame
// descriptions, in ordinal order.
func (b *Batch) summarize(ctx context.Context) (string, error) {
	frames, err := b.pipeline.media.GetFrameAnalyses(ctx, b.asset.ID)
	if err != nil {
		return "", fmt.Errorf("failed to load frame analyses: %w", err)
	}
	if len(frames) == 0 {
		return "", fmt.Errorf("no frame analyses to summarize")
	}

	var sb strings.Builder
	sb.WriteString("These are frame-by-frame descriptions of a video advertisement, in order. Write a two or three sentence summary of the creative as a whole.\n\n")
	for _, frame := range frames {
		fmt.Fprintf(&sb, "Frame %d (%.1fs): %s\n", frame.Ordinal, frame.Timestamp, frame.Description)
	}

	return b.pipeline.llm.Chat(ctx, []interfaces.Message{
		{Role: "user", Content: sb.String()},
	})
}

// IngestSummary is the batch-level aggregate attached to the task result
type IngestSummary struct {
	MediaID         string  `json:"media_id"`
	FramesExtracted int     `json:"frames_extracted"`
	FramesAnalyzed  int     `json:"frames_analyzed"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// FrameResult is the per-frame payload on a successful outcome
type FrameResult struct {
	FrameID   string  `json:"frame_id"`
	MappingID string  `json:"mapping_id"`
	Ordinal   int     `json:"ordinal"`
	Timestamp float64 `json:"timestamp"`
}

// frameProcessor describes, embeds, and persists one frame
type frameProcessor struct {
	batch *Batch
}

// ProcessItem analyzes one extracted frame. The analysis and its mapping
// row are persisted per frame as it succeeds; a failed frame persists
// nothing and leaves an ordinal gap in the final mapping list.
func (fp *frameProcessor) ProcessItem(ctx context.Context, item tasks.WorkItem) models.ItemOutcome {
	p := fp.batch.pipeline
	asset := fp.batch.asset

	ordinal, _ := item.Params["ordinal"].(int)
	timestamp, _ := item.Params["timestamp"].(float64)
	data, _ := item.Params["data"].(string)

	mediaType, imageBytes, err := decodeFramePayload(data)
	if err != nil {
		return failedOutcome(item.ID, fmt.Sprintf("invalid frame payload: %v", err))
	}

	description, err := p.llm.DescribeImage(ctx, mediaType, imageBytes, framePrompt)
	if err != nil {
		return failedOutcome(item.ID, fmt.Sprintf("frame description failed: %v", err))
	}

	embedding, err := p.embedder.Embed(ctx, description)
	if err != nil {
		return failedOutcome(item.ID, fmt.Sprintf("frame embedding failed: %v", err))
	}

	analysis := &models.FrameAnalysis{
		ID:          item.ID,
		MediaID:     asset.ID,
		Ordinal:     ordinal,
		Timestamp:   timestamp,
		Description: description,
		Embedding:   embedding,
	}
	if err := p.media.SaveFrameAnalysis(ctx, analysis); err != nil {
		return failedOutcome(item.ID, fmt.Sprintf("failed to persist frame analysis: %v", err))
	}

	mapping := &models.FrameMapping{
		ID:        common.NewMappingID(),
		MediaID:   asset.ID,
		FrameID:   analysis.ID,
		Ordinal:   ordinal,
		Timestamp: timestamp,
	}
	if err := p.media.SaveFrameMapping(ctx, mapping); err != nil {
		return failedOutcome(item.ID, fmt.Sprintf("failed to persist frame mapping: %v", err))
	}

	return models.ItemOutcome{
		ItemID: item.ID,
		Status: models.OutcomeSuccess,
		Payload: &FrameResult{
			FrameID:   analysis.ID,
			MappingID: mapping.ID,
			Ordinal:   ordinal,
			Timestamp: timestamp,
		},
	}
}

func failedOutcome(itemID, msg string) models.ItemOutcome {
	return models.ItemOutcome{
		ItemID: itemID,
		Status: models.OutcomeFailed,
		Error:  msg,
	}
}

// decodeFramePayload decodes the tool's data URI payload. A bare base64
// string without the URI prefix is accepted and assumed to be JPEG.
func decodeFramePayload(data string) (string, []byte, error) {
	if data == "" {
		return "", nil, fmt.Errorf("empty frame data")
	}

	mediaType := "image/jpeg"
	encoded := data
	if strings.HasPrefix(data, "data:") {
		rest := strings.TrimPrefix(data, "data:")
		semi := strings.Index(rest, ";base64,")
		if semi < 0 {
			return "", nil, fmt.Errorf("unsupported data URI encoding")
		}
		if rest[:semi] != "" {
			mediaType = rest[:semi]
		}
		encoded = rest[semi+len(";base64,"):]
	}

	imageBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("base64 decode failed: %w", err)
	}
	return mediaType, imageBytes, nil
}
