package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/phuslu/log"

	"github.com/pd-experiments/vendere/internal/models"
)

// Client invokes an out-of-process frame extraction tool. The tool accepts
// a media locator argument and prints the extraction JSON contract on
// stdout. Any executable honoring that contract is substitutable.
type Client struct {
	toolPath string
	timeout  time.Duration
}

// toolResponse is the wire contract printed by the extraction tool.
type toolResponse struct {
	Success       bool                    `json:"success"`
	Frames        []models.ExtractedFrame `json:"frames"`
	TotalDuration float64                 `json:"total_duration"`
	FrameCount    int                     `json:"frame_count"`
	Error         string                  `json:"error,omitempty"`
}

// NewClient creates a frame extraction client for the given tool path
func NewClient(toolPath string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		toolPath: toolPath,
		timeout:  timeout,
	}
}

// Extract runs the extraction tool against the media locator and parses its
// output. A tool that exits cleanly but reports success=false still yields
// an error, carrying the tool's own message when one is present.
func (c *Client) Extract(ctx context.Context, locator string) (*models.ExtractionResult, error) {
	if locator == "" {
		return nil, fmt.Errorf("media locator cannot be empty")
	}
	if c.toolPath == "" {
		return nil, fmt.Errorf("extraction tool path is not configured")
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	log.Debug().
		Str("tool", c.toolPath).
		Str("locator", locator).
		Msg("Starting frame extraction")

	cmd := exec.CommandContext(runCtx, c.toolPath, locator)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("frame extraction timed out after %s", c.timeout)
		}
		log.Error().
			Err(err).
			Str("stderr", stderr.String()).
			Msg("Extraction tool failed")
		return nil, fmt.Errorf("extraction tool failed: %w", err)
	}

	var response toolResponse
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse extraction output: %w", err)
	}

	if !response.Success {
		if response.Error != "" {
			return nil, fmt.Errorf("frame extraction failed: %s", response.Error)
		}
		return nil, fmt.Errorf("frame extraction failed")
	}

	log.Info().
		Int("frame_count", response.FrameCount).
		Float64("total_duration", response.TotalDuration).
		Dur("duration", time.Since(startTime)).
		Msg("Frame extraction completed")

	return &models.ExtractionResult{
		Frames:        response.Frames,
		TotalDuration: response.TotalDuration,
		FrameCount:    response.FrameCount,
	}, nil
}
