// -----------------------------------------------------------------------
// Media models - Video assets, frame analyses, and ordinal mappings
// -----------------------------------------------------------------------

package models

import (
	"time"
)

// MediaAsset is the parent record for one ingested video. Its mapping
// list references frame analyses through FrameMapping rows in ordinal
// order; the list is written only after all per-frame analyses that
// succeeded have been persisted, and reflects only those successes.
type MediaAsset struct {
	ID              string    `json:"id" badgerhold:"key"`
	Owner           string    `json:"owner"`
	Name            string    `json:"name"`
	SourceURL       string    `json:"source_url"`
	FrameMappingIDs []string  `json:"frame_mapping_ids"` // ordinal order, gaps not renumbered
	Description     string    `json:"description"`       // aggregate of successful frame descriptions
	DurationSeconds float64   `json:"duration_seconds"`
	FrameCount      int       `json:"frame_count"` // frames reported by the extraction tool
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FrameAnalysis is the per-frame result of the analysis work item:
// an image description plus its embedding. Persisted only for frames
// whose analysis succeeded.
type FrameAnalysis struct {
	ID          string    `json:"id" badgerhold:"key"`
	MediaID     string    `json:"media_id" badgerhold:"index"`
	Ordinal     int       `json:"ordinal"`
	Timestamp   float64   `json:"timestamp"` // seconds into the source video
	Description string    `json:"description"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FrameMapping links a parent media asset to one successful frame
// analysis, carrying the frame's ordinal position and timestamp.
// Ordinals are unique per parent and keep their original numbering;
// skipped frames leave gaps.
type FrameMapping struct {
	ID        string    `json:"id" badgerhold:"key"`
	MediaID   string    `json:"media_id" badgerhold:"index"`
	FrameID   string    `json:"frame_id"`
	Ordinal   int       `json:"ordinal"`
	Timestamp float64   `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// ExtractedFrame is one analyzable unit produced by the extraction tool
type ExtractedFrame struct {
	Timestamp float64 `json:"timestamp"`
	Data      string  `json:"data"` // data:image/jpeg;base64,... payload
}

// ExtractionResult is the successful output of the extraction tool
// boundary. Tool-reported failure surfaces as an error, not a result.
type ExtractionResult struct {
	Frames        []ExtractedFrame `json:"frames"`
	TotalDuration float64          `json:"total_duration"`
	FrameCount    int              `json:"frame_count"`
}
