// Package economy implements the virtual-currency layer: dynamic
// pricing, the wallet ledger, focus mining, and bankruptcy detection.
package economy

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/vigildev/vigil/internal/db"
	"github.com/vigildev/vigil/pkg/models"
)

// BasePrices are the per-action starting prices before any dynamic
// adjustment. A negative price is a reward paid out on execution; a
// zero price executes without touching the wallet.
var BasePrices = map[models.ActionType]float64{
	models.ActionSnooze:        5,
	models.ActionDismiss:       0,
	models.ActionWhitelistTemp: 20,
	models.ActionStrictMode:    -10,
}

// DefaultBankruptcyThreshold is the balance below which the wallet is
// considered bankrupt.
const DefaultBankruptcyThreshold = -50

// Streak captures the user's recent behavioral run, used to adjust
// prices up under repeated distraction and down under sustained focus.
type Streak struct {
	ConsecutiveDistractions int
	ConsecutiveFocus        int
}

// Engine provides pricing and wallet operations on top of the ledger.
type Engine struct {
	wallet              *db.WalletStore
	bankruptcyThreshold float64
	miningRate          float64 // coins per focused minute
}

// NewEngine creates an economy engine. A zero bankruptcyThreshold
// selects the default; miningRate <= 0 selects one coin per minute.
func NewEngine(wallet *db.WalletStore, bankruptcyThreshold, miningRate float64) *Engine {
	if bankruptcyThreshold == 0 {
		bankruptcyThreshold = DefaultBankruptcyThreshold
	}
	if miningRate <= 0 {
		miningRate = 1
	}
	return &Engine{
		wallet:              wallet,
		bankruptcyThreshold: bankruptcyThreshold,
		miningRate:          miningRate,
	}
}

// Balance returns the current wallet balance.
func (e *Engine) Balance(ctx context.Context) (float64, error) {
	return e.wallet.Balance(ctx)
}

// IsBankrupt reports whether the balance has fallen strictly below
// the bankruptcy threshold.
func (e *Engine) IsBankrupt(ctx context.Context) (bool, error) {
	balance, err := e.wallet.Balance(ctx)
	if err != nil {
		return false, err
	}
	return balance < e.bankruptcyThreshold, nil
}

// Price computes the dynamic price for an action.
//
// A negative base price is a reward and passes through untouched; a
// zero base price stays free. Otherwise the base price is scaled by
// severity, then compounded per streak step: +20% per consecutive
// distraction, -10% per consecutive focus run. When the balance
// cannot cover the result the price is clamped to max(1, balance) so
// a struggling user can always buy their way out, and the floor is
// one coin.
func (e *Engine) Price(ctx context.Context, action models.ActionType, severity float64, streak Streak) (float64, error) {
	base, ok := BasePrices[action]
	if !ok {
		return 0, fmt.Errorf("no price for action %s", action)
	}
	if base < 0 {
		return base, nil
	}
	if base == 0 {
		return 0, nil
	}

	if severity <= 0 {
		severity = 1
	}
	price := base * severity

	if streak.ConsecutiveDistractions > 0 {
		price *= math.Pow(1.2, float64(streak.ConsecutiveDistractions))
	}
	if streak.ConsecutiveFocus > 0 {
		price *= math.Pow(0.9, float64(streak.ConsecutiveFocus))
	}
	price = math.Round(price*100) / 100

	balance, err := e.wallet.Balance(ctx)
	if err != nil {
		return 0, err
	}
	if balance < price && price > 1 {
		adjusted := math.Max(1, balance)
		log.Info().
			Float64("price", price).
			Float64("adjusted", adjusted).
			Msg("price clamped to balance")
		price = adjusted
	}

	return math.Max(1, price), nil
}

// Spend charges the price for an action. A negative price is paid out
// as a reward instead; zero is a no-op. The deduction is atomic: on
// insufficient funds nothing changes and db.ErrInsufficientFunds is
// returned.
func (e *Engine) Spend(ctx context.Context, price float64, reason string) (float64, error) {
	if price < 0 {
		state, err := e.wallet.ApplyDelta(ctx, models.TxBonus, -price, reason)
		if err != nil {
			return 0, err
		}
		return state.Balance, nil
	}
	state, err := e.wallet.Spend(ctx, price, reason)
	if err != nil {
		return 0, err
	}
	return state.Balance, nil
}

// Earn mines coins for focused minutes at the configured rate.
func (e *Engine) Earn(ctx context.Context, focusedMinutes float64, reason string) (float64, error) {
	if focusedMinutes <= 0 {
		balance, err := e.wallet.Balance(ctx)
		return balance, err
	}
	amount := math.Round(focusedMinutes*e.miningRate*100) / 100
	state, err := e.wallet.ApplyDelta(ctx, models.TxEarn, amount, reason)
	if err != nil {
		return 0, err
	}
	return state.Balance, nil
}

// Penalty applies a negative adjustment (fraud detection, recovery tax).
func (e *Engine) Penalty(ctx context.Context, amount float64, reason string) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("penalty amount must be positive: %f", amount)
	}
	state, err := e.wallet.ApplyDelta(ctx, models.TxPenalty, -amount, reason)
	if err != nil {
		return 0, err
	}
	return state.Balance, nil
}

// Bonus grants coins outside the mining path.
func (e *Engine) Bonus(ctx context.Context, amount float64, reason string) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("bonus amount must be positive: %f", amount)
	}
	state, err := e.wallet.ApplyDelta(ctx, models.TxBonus, amount, reason)
	if err != nil {
		return 0, err
	}
	return state.Balance, nil
}
