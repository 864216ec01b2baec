package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/pd-experiments/vendere/internal/interfaces"
	"github.com/pd-experiments/vendere/internal/models"
)

// KeywordStorage implements the KeywordStorage interface for Badger
type KeywordStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKeywordStorage creates a new KeywordStorage instance
func NewKeywordStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeywordStorage {
	return &KeywordStorage{
		db:     db,
		logger: logger,
	}
}

func (s *KeywordStorage) SaveKeyword(ctx context.Context, keyword *models.ResearchKeyword) error {
	if keyword.ID == "" {
		return fmt.Errorf("keyword ID is required")
	}

	now := time.Now()
	if keyword.CreatedAt.IsZero() {
		keyword.CreatedAt = now
	}
	keyword.UpdatedAt = now

	if err := s.db.Store().Upsert(keyword.ID, keyword); err != nil {
		return fmt.Errorf("failed to save keyword: %w", err)
	}
	return nil
}

func (s *KeywordStorage) GetKeyword(ctx context.Context, id string) (*models.ResearchKeyword, error) {
	var keyword models.ResearchKeyword
	err := s.db.runQuery(ctx, func() error {
		return s.db.Store().Get(id, &keyword)
	})
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("keyword not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get keyword: %w", err)
	}
	return &keyword, nil
}

// GetKeywords fetches the given IDs in one pass. Missing IDs are simply
// absent from the result; callers that care about per-ID presence compare
// against their input set.
func (s *KeywordStorage) GetKeywords(ctx context.Context, ids []string) ([]*models.ResearchKeyword, error) {
	result := make([]*models.ResearchKeyword, 0, len(ids))
	err := s.db.runQuery(ctx, func() error {
		for _, id := range ids {
			var keyword models.ResearchKeyword
			if err := s.db.Store().Get(id, &keyword); err != nil {
				if err == badgerhold.ErrNotFound {
					continue
				}
				return err
			}
			result = append(result, &keyword)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get keywords: %w", err)
	}
	return result, nil
}

func (s *KeywordStorage) ListKeywords(ctx context.Context, opts *interfaces.ListOptions) ([]*models.ResearchKeyword, error) {
	query := &badgerhold.Query{}
	if opts != nil && opts.Owner != "" {
		query = badgerhold.Where("Owner").Eq(opts.Owner).Index("Owner")
	}
	if opts != nil {
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
	}

	var keywords []models.ResearchKeyword
	err := s.db.runQuery(ctx, func() error {
		return s.db.Store().Find(&keywords, query)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}

	result := make([]*models.ResearchKeyword, len(keywords))
	for i := range keywords {
		result[i] = &keywords[i]
	}
	return result, nil
}

func (s *KeywordStorage) CountKeywords(ctx context.Context) (int, error) {
	var count uint64
	err := s.db.runQuery(ctx, func() error {
		var err error
		count, err = s.db.Store().Count(&models.ResearchKeyword{}, nil)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count keywords: %w", err)
	}
	return int(count), nil
}

func (s *KeywordStorage) DeleteKeyword(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.ResearchKeyword{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete keyword: %w", err)
	}
	return nil
}

func (s *KeywordStorage) SaveVariant(ctx context.Context, variant *models.KeywordVariant) error {
	if variant.ID == "" {
		return fmt.Errorf("variant ID is required")
	}
	if variant.CreatedAt.IsZero() {
		variant.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(variant.ID, variant); err != nil {
		return fmt.Errorf("failed to save variant: %w", err)
	}
	return nil
}

func (s *KeywordStorage) GetVariantsByKeyword(ctx context.Context, keywordID string) ([]*models.KeywordVariant, error) {
	var variants []models.KeywordVariant
	err := s.db.runQuery(ctx, func() error {
		return s.db.Store().Find(&variants, badgerhold.Where("KeywordID").Eq(keywordID).Index("KeywordID"))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find variants: %w", err)
	}

	result := make([]*models.KeywordVariant, len(variants))
	for i := range variants {
		result[i] = &variants[i]
	}
	return result, nil
}

func (s *KeywordStorage) CountVariants(ctx context.Context) (int, error) {
	var count uint64
	err := s.db.runQuery(ctx, func() error {
		var err error
		count, err = s.db.Store().Count(&models.KeywordVariant{}, nil)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count variants: %w", err)
	}
	return int(count), nil
}
