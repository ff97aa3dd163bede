// Package db provides GORM-based database operations for vigil.
package db

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/vigildev/vigil/pkg/models"
)

// AuditStore provides audit-ledger operations.
type AuditStore struct {
	db    *gorm.DB
	rawDB *sql.DB
}

// NewAuditStore creates a new audit store.
func NewAuditStore(store *Store) *AuditStore {
	return &AuditStore{
		db:    store.DB,
		rawDB: store.GetRawDB(),
	}
}

// Record appends one audit entry.
func (s *AuditStore) Record(ctx context.Context, rec *models.AuditRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

// Recent returns the newest audit entries, most recent first.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]*models.AuditRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []*models.AuditRecord
	err := s.db.WithContext(ctx).
		Order("created_at_epoch DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// ApprovalRate returns the fraction of audits that passed outright,
// over the newest window entries. With no audits yet it returns 1.
func (s *AuditStore) ApprovalRate(ctx context.Context, window int) (float64, error) {
	if window <= 0 {
		window = 20
	}

	var total, approved int64
	err := s.rawDB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN result = ? THEN 1 ELSE 0 END), 0)
		FROM (
			SELECT result FROM audit_records
			ORDER BY created_at_epoch DESC
			LIMIT ?
		)`, string(models.AuditApproved), window).Scan(&total, &approved)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 1, nil
	}
	return float64(approved) / float64(total), nil
}
