// Package audit implements the consistency auditor: every purchasable
// action is checked against recent behavior before the wallet is
// charged, to keep stated reasons honest.
package audit

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vigildev/vigil/internal/db"
	"github.com/vigildev/vigil/pkg/models"
)

// Score bands. At or above ApproveThreshold the purchase passes at
// base price; between AdjustThreshold and ApproveThreshold the price
// is surcharged; below AdjustThreshold the purchase is rejected.
const (
	ApproveThreshold = 0.7
	AdjustThreshold  = 0.4
	AdjustFactor     = 1.5
)

// BlockContext is how many recent session blocks are handed to the
// scorer as behavioral evidence.
const BlockContext = 4

// ScoreRequest carries the claim under audit plus the behavioral
// evidence to judge it against.
type ScoreRequest struct {
	Action      models.ActionType
	Reason      string
	App         string
	WindowTitle string
	URL         string
	Blocks      []*models.SessionBlock
}

// ConsistencyScorer judges how consistent a claimed reason is with
// observed behavior, on a 0 to 1 scale, with a short justification.
type ConsistencyScorer interface {
	ScoreConsistency(ctx context.Context, req ScoreRequest) (float64, string, error)
}

// Outcome is the auditor's decision over one purchase attempt.
type Outcome struct {
	Result     models.AuditResult
	Score      float64
	BasePrice  float64
	FinalPrice float64
	Reasoning  string
}

// Allowed reports whether the purchase may proceed.
func (o Outcome) Allowed() bool {
	return o.Result != models.AuditRejected
}

// Auditor scores purchases and keeps the append-only audit ledger.
type Auditor struct {
	scorer ConsistencyScorer
	blocks *db.BlockStore
	audits *db.AuditStore
}

// NewAuditor creates an auditor.
func NewAuditor(scorer ConsistencyScorer, blocks *db.BlockStore, audits *db.AuditStore) *Auditor {
	return &Auditor{
		scorer: scorer,
		blocks: blocks,
		audits: audits,
	}
}

// Audit scores the purchase attempt and records the outcome. The
// audit fails open: when the scorer is unreachable the purchase is
// approved at base price rather than locking the user out. A ledger
// entry is written for every attempt, whatever the outcome.
func (a *Auditor) Audit(ctx context.Context, req ScoreRequest, basePrice float64) (Outcome, error) {
	if len(req.Blocks) == 0 {
		blocks, err := a.blocks.Recent(ctx, BlockContext)
		if err != nil {
			log.Warn().Err(err).Msg("load audit block context")
		} else {
			req.Blocks = blocks
		}
	}

	outcome := a.decide(ctx, req, basePrice)

	rec := models.NewAuditRecord(req.Action, outcome.Result, outcome.Score, basePrice, outcome.FinalPrice, outcome.Reasoning)
	rec.UserReason = req.Reason
	rec.App = req.App
	rec.WindowTitle = req.WindowTitle
	rec.URL = req.URL
	if err := a.audits.Record(ctx, rec); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (a *Auditor) decide(ctx context.Context, req ScoreRequest, basePrice float64) Outcome {
	score, reasoning, err := a.scorer.ScoreConsistency(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("action", string(req.Action)).Msg("consistency scorer unavailable, approving")
		return Outcome{
			Result:     models.AuditApproved,
			Score:      0,
			BasePrice:  basePrice,
			FinalPrice: basePrice,
			Reasoning:  "audit unavailable: " + err.Error(),
		}
	}

	score = math.Max(0, math.Min(1, score))
	outcome := Outcome{
		Score:     score,
		BasePrice: basePrice,
		Reasoning: reasoning,
	}

	switch {
	case score >= ApproveThreshold:
		outcome.Result = models.AuditApproved
		outcome.FinalPrice = basePrice
	case score >= AdjustThreshold:
		outcome.Result = models.AuditPriceAdjusted
		outcome.FinalPrice = math.Round(basePrice*AdjustFactor*100) / 100
	default:
		outcome.Result = models.AuditRejected
		outcome.FinalPrice = basePrice
	}

	log.Info().
		Str("action", string(req.Action)).
		Str("result", string(outcome.Result)).
		Float64("score", score).
		Float64("final_price", outcome.FinalPrice).
		Msg("audit complete")

	return outcome
}

// ApprovalRate returns the share of recent audits that passed
// outright. The orchestrator feeds this to the oracle context.
func (a *Auditor) ApprovalRate(ctx context.Context, window int) (float64, error) {
	return a.audits.ApprovalRate(ctx, window)
}

// RecentBlocks loads the auditor's behavioral evidence window.
func (a *Auditor) RecentBlocks(ctx context.Context) ([]*models.SessionBlock, error) {
	return a.blocks.Since(ctx, time.Now().Add(-2*time.Hour))
}
