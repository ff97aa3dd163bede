package models

import "time"

// AuditResult is the outcome of a consistency audit over a purchase.
type AuditResult string

// Audit outcomes. APPROVED passes the purchase at base price,
// PRICE_ADJUSTED applies a surcharge, REJECTED blocks the purchase.
const (
	AuditApproved      AuditResult = "APPROVED"
	AuditPriceAdjusted AuditResult = "PRICE_ADJUSTED"
	AuditRejected      AuditResult = "REJECTED"
)

// AuditRecord is one append-only audit ledger entry. A record is
// written for every audited purchase attempt, whatever the outcome.
type AuditRecord struct {
	ID               int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Action           ActionType  `gorm:"type:text;not null" json:"action"`
	Result           AuditResult `gorm:"type:text;check:result IN ('APPROVED', 'PRICE_ADJUSTED', 'REJECTED');not null" json:"result"`
	UserReason       string      `gorm:"type:text" json:"user_reason,omitempty"`
	App              string      `gorm:"type:text" json:"app,omitempty"`
	WindowTitle      string      `gorm:"type:text" json:"window_title,omitempty"`
	URL              string      `gorm:"type:text" json:"url,omitempty"`
	ConsistencyScore float64     `gorm:"type:real;not null" json:"consistency_score"`
	BasePrice        float64     `gorm:"type:real;not null" json:"base_price"`
	FinalPrice       float64     `gorm:"type:real;not null" json:"final_price"`
	Reasoning        string      `gorm:"type:text" json:"reasoning"`
	CreatedAt        string      `gorm:"not null" json:"created_at"`
	CreatedAtEpoch   int64       `gorm:"index:idx_audits_created,sort:desc;not null" json:"created_at_epoch"`
}

// TableName implements the GORM table-name convention.
func (AuditRecord) TableName() string { return "audit_records" }

// NewAuditRecord stamps an audit entry with the current time.
func NewAuditRecord(action ActionType, result AuditResult, score, basePrice, finalPrice float64, reasoning string) *AuditRecord {
	now := time.Now()
	return &AuditRecord{
		Action:           action,
		Result:           result,
		ConsistencyScore: score,
		BasePrice:        basePrice,
		FinalPrice:       finalPrice,
		Reasoning:        reasoning,
		CreatedAt:        now.Format(time.RFC3339),
		CreatedAtEpoch:   now.UnixMilli(),
	}
}
