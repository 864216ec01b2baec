package interfaces

import (
	"context"

	"github.com/pd-experiments/vendere/internal/models"
)

// FrameExtractor decomposes a media locator into an ordered sequence of
// analyzable frames with timestamps. Implementations wrap an
// out-of-process tool; any tool satisfying the JSON contract is
// substitutable. A tool-reported failure is returned as an error.
type FrameExtractor interface {
	Extract(ctx context.Context, locator string) (*models.ExtractionResult, error)
}
