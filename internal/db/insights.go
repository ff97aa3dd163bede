// Package db provides GORM-based database operations for vigil.
package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vigildev/vigil/pkg/models"
)

// InsightStore provides insight operations.
type InsightStore struct {
	db *gorm.DB
}

// NewInsightStore creates a new insight store.
func NewInsightStore(store *Store) *InsightStore {
	return &InsightStore{db: store.DB}
}

// Create persists a derived insight. Insights are never updated in
// place; a newer record of the same type supersedes the old one.
func (s *InsightStore) Create(ctx context.Context, insight *models.Insight) error {
	return s.db.WithContext(ctx).Create(insight).Error
}

// Latest returns the newest insight of the given type, or nil when no
// insight of that type exists yet.
func (s *InsightStore) Latest(ctx context.Context, t models.InsightType) (*models.Insight, error) {
	var insight models.Insight
	err := s.db.WithContext(ctx).
		Where("type = ?", t).
		Order("created_at_epoch DESC").
		First(&insight).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &insight, nil
}

// LatestAll returns the newest insight per type, keyed by type. Types
// with no insight yet are absent from the map.
func (s *InsightStore) LatestAll(ctx context.Context) (map[models.InsightType]*models.Insight, error) {
	out := make(map[models.InsightType]*models.Insight)
	for _, t := range models.AllInsightTypes {
		insight, err := s.Latest(ctx, t)
		if err != nil {
			return nil, err
		}
		if insight != nil {
			out[t] = insight
		}
	}
	return out, nil
}
