// Package db provides GORM-based database operations for vigil.
package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vigildev/vigil/pkg/models"
)

// BlockStore provides session-block operations.
type BlockStore struct {
	db *gorm.DB
}

// NewBlockStore creates a new block store.
func NewBlockStore(store *Store) *BlockStore {
	return &BlockStore{db: store.DB}
}

// Create persists a compressed session block.
func (s *BlockStore) Create(ctx context.Context, block *models.SessionBlock) error {
	if block.CreatedAtEpoch == 0 {
		block.CreatedAtEpoch = time.Now().UnixMilli()
	}
	return s.db.WithContext(ctx).Create(block).Error
}

// Recent returns the newest blocks, most recent first.
func (s *BlockStore) Recent(ctx context.Context, limit int) ([]*models.SessionBlock, error) {
	if limit <= 0 {
		limit = 10
	}
	var blocks []*models.SessionBlock
	err := s.db.WithContext(ctx).
		Order("created_at_epoch DESC").
		Limit(limit).
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// Since returns blocks created after the cutoff, oldest first.
func (s *BlockStore) Since(ctx context.Context, cutoff time.Time) ([]*models.SessionBlock, error) {
	var blocks []*models.SessionBlock
	err := s.db.WithContext(ctx).
		Where("created_at_epoch >= ?", cutoff.UnixMilli()).
		Order("created_at_epoch ASC").
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// All returns every block, oldest first. Used by the insight
// transformer which needs the full history.
func (s *BlockStore) All(ctx context.Context) ([]*models.SessionBlock, error) {
	var blocks []*models.SessionBlock
	err := s.db.WithContext(ctx).
		Order("created_at_epoch ASC").
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// Count returns the total number of blocks.
func (s *BlockStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SessionBlock{}).Count(&count).Error
	return count, err
}
