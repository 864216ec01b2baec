package interfaces

import (
	"context"

	"github.com/pd-experiments/vendere/internal/models"
)

// ListOptions controls list queries
type ListOptions struct {
	Limit  int
	Offset int
	Owner  string
}

// KeywordStorage - interface for research keyword and variant persistence
type KeywordStorage interface {
	SaveKeyword(ctx context.Context, keyword *models.ResearchKeyword) error
	GetKeyword(ctx context.Context, id string) (*models.ResearchKeyword, error)
	GetKeywords(ctx context.Context, ids []string) ([]*models.ResearchKeyword, error)
	ListKeywords(ctx context.Context, opts *ListOptions) ([]*models.ResearchKeyword, error)
	CountKeywords(ctx context.Context) (int, error)
	DeleteKeyword(ctx context.Context, id string) error

	SaveVariant(ctx context.Context, variant *models.KeywordVariant) error
	GetVariantsByKeyword(ctx context.Context, keywordID string) ([]*models.KeywordVariant, error)
	CountVariants(ctx context.Context) (int, error)
}

// MediaStorage - interface for media asset, frame analysis, and mapping persistence
type MediaStorage interface {
	SaveAsset(ctx context.Context, asset *models.MediaAsset) error
	GetAsset(ctx context.Context, id string) (*models.MediaAsset, error)
	ListAssets(ctx context.Context, opts *ListOptions) ([]*models.MediaAsset, error)
	DeleteAsset(ctx context.Context, id string) error

	SaveFrameAnalysis(ctx context.Context, frame *models.FrameAnalysis) error
	GetFrameAnalyses(ctx context.Context, mediaID string) ([]*models.FrameAnalysis, error)
	DeleteFrameAnalyses(ctx context.Context, mediaID string) error
	ListOrphanFrameAnalyses(ctx context.Context) ([]*models.FrameAnalysis, error)
	DeleteFrameAnalysis(ctx context.Context, id string) error

	SaveFrameMapping(ctx context.Context, mapping *models.FrameMapping) error
	GetFrameMappings(ctx context.Context, mediaID string) ([]*models.FrameMapping, error)
}

// KeyValueStorage - interface for small configuration values (API keys)
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	KeywordStorage() KeywordStorage
	MediaStorage() MediaStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
