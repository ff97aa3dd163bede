package models

import "time"

// TransactionType classifies a wallet ledger entry.
type TransactionType string

// Transaction types. EARN is focus mining, SPEND pays for an action,
// PENALTY applies a negative adjustment, BONUS is a grant (including
// the initial seed balance).
const (
	TxEarn    TransactionType = "EARN"
	TxSpend   TransactionType = "SPEND"
	TxPenalty TransactionType = "PENALTY"
	TxBonus   TransactionType = "BONUS"
)

// WalletState is the singleton balance row. The ledger of Transaction
// rows is the source of history; Balance is the running total.
type WalletState struct {
	ID             int64   `gorm:"primaryKey" json:"id"`
	Balance        float64 `gorm:"type:real;not null" json:"balance"`
	TotalEarned    float64 `gorm:"type:real;default:0" json:"total_earned"`
	TotalSpent     float64 `gorm:"type:real;default:0" json:"total_spent"`
	LastEarnedAt   string  `gorm:"type:text" json:"last_earned_at,omitempty"`
	LastSpentAt    string  `gorm:"type:text" json:"last_spent_at,omitempty"`
	UpdatedAt      string  `gorm:"not null" json:"updated_at"`
	UpdatedAtEpoch int64   `gorm:"not null" json:"updated_at_epoch"`
}

// TableName implements the GORM table-name convention.
func (WalletState) TableName() string { return "wallet_state" }

// Transaction is one append-only wallet ledger entry. Amount carries
// the signed delta actually applied to the balance.
type Transaction struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Type           TransactionType `gorm:"type:text;check:type IN ('EARN', 'SPEND', 'PENALTY', 'BONUS');not null" json:"type"`
	Amount         float64         `gorm:"type:real;not null" json:"amount"`
	BalanceAfter   float64         `gorm:"type:real;not null" json:"balance_after"`
	Reason         string          `gorm:"type:text;not null" json:"reason"`
	CreatedAt      string          `gorm:"not null" json:"created_at"`
	CreatedAtEpoch int64           `gorm:"index:idx_transactions_created,sort:desc;not null" json:"created_at_epoch"`
}

// TableName implements the GORM table-name convention.
func (Transaction) TableName() string { return "transactions" }

// NewTransaction stamps a ledger entry with the current time.
func NewTransaction(t TransactionType, amount, balanceAfter float64, reason string) *Transaction {
	now := time.Now()
	return &Transaction{
		Type:           t,
		Amount:         amount,
		BalanceAfter:   balanceAfter,
		Reason:         reason,
		CreatedAt:      now.Format(time.RFC3339),
		CreatedAtEpoch: now.UnixMilli(),
	}
}
