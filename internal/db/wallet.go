// Package db provides GORM-based database operations for vigil.
package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vigildev/vigil/pkg/models"
)

// ErrInsufficientFunds is returned by Spend when the balance cannot
// cover the price. The wallet is left unchanged.
var ErrInsufficientFunds = fmt.Errorf("insufficient funds")

// WalletStore provides wallet state and transaction-ledger operations.
// All balance mutations go through a single transaction so the state
// row and the ledger never diverge.
type WalletStore struct {
	db *gorm.DB
}

// NewWalletStore creates a new wallet store.
func NewWalletStore(store *Store) *WalletStore {
	return &WalletStore{db: store.DB}
}

// State returns the singleton wallet row.
func (s *WalletStore) State(ctx context.Context) (*models.WalletState, error) {
	var state models.WalletState
	err := s.db.WithContext(ctx).First(&state, 1).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Balance returns the current balance.
func (s *WalletStore) Balance(ctx context.Context) (float64, error) {
	state, err := s.State(ctx)
	if err != nil {
		return 0, err
	}
	return state.Balance, nil
}

// ApplyDelta atomically applies a signed delta to the balance and
// appends the matching ledger entry. EARN and BONUS deltas must be
// positive; SPEND and PENALTY amounts are recorded as the negative
// delta actually applied.
func (s *WalletStore) ApplyDelta(ctx context.Context, txType models.TransactionType, delta float64, reason string) (*models.WalletState, error) {
	var updated models.WalletState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state models.WalletState
		if err := tx.First(&state, 1).Error; err != nil {
			return err
		}

		now := time.Now()
		state.Balance += delta
		if delta > 0 {
			state.TotalEarned += delta
			state.LastEarnedAt = now.Format(time.RFC3339)
		} else {
			state.TotalSpent += -delta
			state.LastSpentAt = now.Format(time.RFC3339)
		}
		state.UpdatedAt = now.Format(time.RFC3339)
		state.UpdatedAtEpoch = now.UnixMilli()

		if err := tx.Save(&state).Error; err != nil {
			return err
		}

		entry := models.NewTransaction(txType, delta, state.Balance, reason)
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		updated = state
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Spend deducts price from the balance. The deduction is atomic: when
// the balance cannot cover the price, ErrInsufficientFunds is returned
// and neither the state nor the ledger changes. A zero price is a
// no-op that writes no ledger entry.
func (s *WalletStore) Spend(ctx context.Context, price float64, reason string) (*models.WalletState, error) {
	if price < 0 {
		return nil, fmt.Errorf("negative price: %f", price)
	}
	if price == 0 {
		return s.State(ctx)
	}

	var updated models.WalletState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state models.WalletState
		if err := tx.First(&state, 1).Error; err != nil {
			return err
		}
		if state.Balance < price {
			return ErrInsufficientFunds
		}

		now := time.Now()
		state.Balance -= price
		state.TotalSpent += price
		state.LastSpentAt = now.Format(time.RFC3339)
		state.UpdatedAt = now.Format(time.RFC3339)
		state.UpdatedAtEpoch = now.UnixMilli()

		if err := tx.Save(&state).Error; err != nil {
			return err
		}

		entry := models.NewTransaction(models.TxSpend, -price, state.Balance, reason)
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		updated = state
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// RecentTransactions returns the newest ledger entries, most recent first.
func (s *WalletStore) RecentTransactions(ctx context.Context, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	var txs []*models.Transaction
	err := s.db.WithContext(ctx).
		Order("created_at_epoch DESC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}
