package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/pd-experiments/vendere/internal/interfaces"
	"github.com/pd-experiments/vendere/internal/models"
)

// MediaStorage implements the MediaStorage interface for Badger
type MediaStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewMediaStorage creates a new MediaStorage instance
func NewMediaStorage(db *BadgerDB, logger arbor.ILogger) interfaces.MediaStorage {
	return &MediaStorage{
		db:     db,
		logger: logger,
	}
}

func (s *MediaStorage) SaveAsset(ctx context.Context, asset *models.MediaAsset) error {
	if asset.ID == "" {
		return fmt.Errorf("media asset ID is required")
	}

	now := time.Now()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = now

	if err := s.db.Store().Upsert(asset.ID, asset); err != nil {
		return fmt.Errorf("failed to save media asset: %w", err)
	}
	return nil
}

func (s *MediaStorage) GetAsset(ctx context.Context, id string) (*models.MediaAsset, error) {
	var asset models.MediaAsset
	err := s.db.runQuery(ctx, func() error {
		return s.db.Store().Get(id, &asset)
	})
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("media asset not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get media asset: %w", err)
	}
	return &asset, nil
}

func (s *MediaStorage) ListAssets(ctx context.Context, opts *interfaces.ListOptions) ([]*models.MediaAsset, error) {
	query := &badgerhold.Query{}
	if opts != nil && opts.Owner != "" {
		query = badgerhold.Where("Owner").Eq(opts.Owner)
	}
	if opts != nil {
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
	}

	var assets []models.MediaAsset
	err := s.db.runQuery(ctx, func() error {
		return s.db.Store().Find(&assets, query)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list media assets: %w", err)
	}

	result := make([]*models.MediaAsset, len(assets))
	for i := range assets {
		result[i] = &assets[i]
	}
	return result, nil
}

func (s *MediaStorage) DeleteAsset(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.MediaAsset{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete media asset: %w", err)
	}
	return nil
}

func (s *MediaStorage) SaveFrameAnalysis(ctx context.Context, frame *models.FrameAnalysis) error {
	if frame.ID == "" {
		return fmt.Errorf("frame analysis ID is required")
	}
	if frame.CreatedAt.IsZero() {
		frame.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(frame.ID, frame); err != nil {
		return fmt.Errorf("failed to save frame analysis: %w", err)
	}
	return nil
}

func (s *MediaStorage) GetFrameAnalyses(ctx context.Context, mediaID string) ([]*models.FrameAnalysis, error) {
	var frames []models.FrameAnalysis
	err := s.db.runQuery(ctx, func() error {
		return s.db.Store().Find(&frames, badgerhold.Where("MediaID").Eq(mediaID).Index("MediaID"))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find frame analyses: %w", err)
	}

	sort.Slice(frames, func(i, j int) bool { return frames[i].Ordinal < frames[j].Ordinal })

	result := make([]*models.FrameAnalysis, len(frames))
	for i := range frames {
		result[i] = &frames[i]
	}
	return result, nil
}

func (s *MediaStorage) DeleteFrameAnalyses(ctx context.Context, mediaID string) error {
	err := s.db.Store().DeleteMatching(&models.FrameAnalysis{}, badgerhold.Where("MediaID").Eq(mediaID))
	if err != nil {
		return fmt.Errorf("failed to delete frame analyses: %w", err)
	}
	return nil
}

func (s *MediaStorage) DeleteFrameAnalysis(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.FrameAnalysis{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete frame analysis: %w", err)
	}
	return nil
}

// ListOrphanFrameAnalyses returns frame analyses whose parent media asset
// no longer exists. Used by scheduled maintenance; compensating deletes of
// media assets can race the pipeline, so orphans are expected occasionally.
func (s *MediaStorage) ListOrphanFrameAnalyses(ctx context.Context) ([]*models.FrameAnalysis, error) {
	var frames []models.FrameAnalysis
	err := s.db.runQuery(ctx, func() error {
		return s.db.Store().Find(&frames, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list frame analyses: %w", err)
	}

	var orphans []*models.FrameAnalysis
	seen := make(map[string]bool)
	for i := range frames {
		mediaID := frames[i].MediaID
		if _, checked := seen[mediaID]; !checked {
			var asset models.MediaAsset
			err := s.db.Store().Get(mediaID, &asset)
			seen[mediaID] = err == nil
		}
		if !seen[mediaID] {
			orphans = append(orphans, &frames[i])
		}
	}
	return orphans, nil
}

func (s *MediaStorage) SaveFrameMapping(ctx context.Context, mapping *models.FrameMapping) error {
	if mapping.ID == "" {
		return fmt.Errorf("frame mapping ID is required")
	}
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(mapping.ID, mapping); err != nil {
		return fmt.Errorf("failed to save frame mapping: %w", err)
	}
	return nil
}

// GetFrameMappings returns a media asset's mappings in ordinal order
func (s *MediaStorage) GetFrameMappings(ctx context.Context, mediaID string) ([]*models.FrameMapping, error) {
	var mappings []models.FrameMapping
	err := s.db.runQuery(ctx, func() error {
		return s.db.Store().Find(&mappings, badgerhold.Where("MediaID").Eq(mediaID).Index("MediaID"))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find frame mappings: %w", err)
	}

	sort.Slice(mappings, func(i, j int) bool { return mappings[i].Ordinal < mappings[j].Ordinal })

	result := make([]*models.FrameMapping, len(mappings))
	for i := range mappings {
		result[i] = &mappings[i]
	}
	return result, nil
}
