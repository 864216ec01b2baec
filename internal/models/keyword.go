// -----------------------------------------------------------------------
// Keyword models - Research keywords and generated ad variants
// -----------------------------------------------------------------------

package models

import (
	"time"
)

// ResearchKeyword is one market-research keyword in the library, carrying
// the denormalized metrics the generation service needs so it never has
// to re-resolve the keyword itself.
type ResearchKeyword struct {
	ID           string    `json:"id" badgerhold:"key"`
	Owner        string    `json:"owner" badgerhold:"index"`
	Term         string    `json:"term"`
	Volume       int       `json:"volume"`     // monthly search volume
	Intent       string    `json:"intent"`     // search intent classification
	Difficulty   float64   `json:"difficulty"` // keyword difficulty score
	VariantCount int       `json:"variant_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// KeywordVariant is one generated ad variant for a research keyword
type KeywordVariant struct {
	ID                   string            `json:"id" badgerhold:"key"`
	KeywordID            string            `json:"keyword_id" badgerhold:"index"`
	TaskID               string            `json:"task_id"` // batch that produced this variant
	Keyword              string            `json:"keyword"`
	GeoTarget            string            `json:"geo_target"`
	ElementUpdates       map[string]string `json:"element_updates"` // element type -> optimized text
	AudienceSegment      string            `json:"audience_segment"`
	PredictedPerformance float64           `json:"predicted_performance"` // [0.0, 1.0]
	Rationale            string            `json:"rationale"`
	CreatedAt            time.Time         `json:"created_at"`
}

// GenerationParams carries the batch-level parameters shared by every
// work item of a variant-generation batch.
type GenerationParams struct {
	TargetMarkets []string `json:"target_markets"`
	ElementTypes  []string `json:"element_types,omitempty"` // headline, body, cta
	MaxVariants   int      `json:"max_variants,omitempty"`  // per keyword, default 3
}
