// Package orchestrator is the action state machine: it prices,
// audits, and charges user purchases, executes enforcement actions
// through the actuator, and owns the suppression state (snooze,
// whitelist, strict mode, blocked apps, recently closed keywords)
// the supervision loop consults every tick.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vigildev/vigil/internal/actuator"
	"github.com/vigildev/vigil/internal/audit"
	"github.com/vigildev/vigil/internal/db"
	"github.com/vigildev/vigil/internal/economy"
	"github.com/vigildev/vigil/internal/oracle"
	"github.com/vigildev/vigil/pkg/models"
)

// ClosedKeywordCooldown is how long a closed tab keyword suppresses
// re-detection, and the lookback for purging its activity rows.
const ClosedKeywordCooldown = 5 * time.Minute

// ForcedVerdictHandler receives the synthetic verdict issued when a
// snooze expires. It bypasses the oracle entirely.
type ForcedVerdictHandler func(*oracle.Verdict)

// CeaseFireHandler is invoked when every open intervention must be
// withdrawn (recovery detected or FORCE_CEASE_FIRE).
type CeaseFireHandler func()

// Config carries the orchestrator's default durations.
type Config struct {
	SnoozeDuration    time.Duration
	WhitelistDuration time.Duration
	StrictDuration    time.Duration
	BlockDuration     time.Duration
}

func (c *Config) applyDefaults() {
	if c.SnoozeDuration <= 0 {
		c.SnoozeDuration = 10 * time.Minute
	}
	if c.WhitelistDuration <= 0 {
		c.WhitelistDuration = 30 * time.Minute
	}
	if c.StrictDuration <= 0 {
		c.StrictDuration = 60 * time.Minute
	}
	if c.BlockDuration <= 0 {
		c.BlockDuration = 60 * time.Minute
	}
}

// Orchestrator coordinates purchases and enforcement. Suppression
// state is in-memory and resets on restart; the ledgers are the
// durable record.
type Orchestrator struct {
	economy  *economy.Engine
	auditor  *audit.Auditor
	episodic *db.EpisodicStore
	activity *db.ActivityStore
	act      actuator.Actuator
	cfg      Config

	mu             sync.Mutex
	snoozeUntil    time.Time
	snoozeTimer    *time.Timer
	whitelist      map[string]time.Time
	strictUntil    time.Time
	blockedApps    map[string]time.Time
	recentlyClosed map[string]time.Time

	onForcedVerdict ForcedVerdictHandler
	onCeaseFire     CeaseFireHandler
}

// New creates an orchestrator.
func New(eco *economy.Engine, auditor *audit.Auditor, episodic *db.EpisodicStore, activity *db.ActivityStore, act actuator.Actuator, cfg Config) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		economy:        eco,
		auditor:        auditor,
		episodic:       episodic,
		activity:       activity,
		act:            act,
		cfg:            cfg,
		whitelist:      make(map[string]time.Time),
		blockedApps:    make(map[string]time.Time),
		recentlyClosed: make(map[string]time.Time),
	}
}

// SetForcedVerdictHandler registers the snooze-expiry callback.
func (o *Orchestrator) SetForcedVerdictHandler(fn ForcedVerdictHandler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onForcedVerdict = fn
}

// SetCeaseFireHandler registers the intervention-withdrawal callback.
func (o *Orchestrator) SetCeaseFireHandler(fn CeaseFireHandler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onCeaseFire = fn
}

// HandleRequest runs the full purchase-and-execute path for one user
// request. Purchasable actions are priced, audited, and charged; a
// rejected audit blocks execution with the wallet untouched.
// Enforcement actions skip the audit and charge the offered cost.
func (o *Orchestrator) HandleRequest(ctx context.Context, req models.ActionRequest, streak economy.Streak) (models.ActionOutcome, error) {
	if req.Action.IsPurchasable() {
		return o.handlePurchase(ctx, req, streak)
	}
	return o.handleEnforcement(ctx, req)
}

func (o *Orchestrator) handlePurchase(ctx context.Context, req models.ActionRequest, streak economy.Streak) (models.ActionOutcome, error) {
	price, err := o.economy.Price(ctx, req.Action, 1, streak)
	if err != nil {
		return models.ActionOutcome{Action: req.Action}, err
	}

	finalPrice := price
	var auditResult models.AuditResult

	// Free and reward actions are never worth gaming, so only paid
	// actions go through the consistency audit.
	if price > 0 {
		outcome, err := o.auditor.Audit(ctx, audit.ScoreRequest{
			Action:      req.Action,
			Reason:      req.Reason,
			App:         req.App,
			WindowTitle: req.WindowTitle,
			URL:         req.URL,
		}, price)
		if err != nil {
			return models.ActionOutcome{Action: req.Action}, err
		}
		auditResult = outcome.Result
		if !outcome.Allowed() {
			return models.ActionOutcome{
				Action:      req.Action,
				AuditResult: outcome.Result,
				Message:     "purchase rejected: " + outcome.Reasoning,
			}, nil
		}
		finalPrice = outcome.FinalPrice
	}

	// An empty wallet never traps the user with an intervention they
	// already answered: the action still runs, the payment just fails.
	paid := finalPrice
	message := "executed"
	if _, err := o.economy.Spend(ctx, finalPrice, string(req.Action)); err != nil {
		if !errors.Is(err, db.ErrInsufficientFunds) {
			return models.ActionOutcome{Action: req.Action}, err
		}
		log.Warn().Str("action", string(req.Action)).Float64("price", finalPrice).
			Msg("insufficient funds, executing unpaid")
		paid = 0
		message = "executed, payment failed: insufficient funds"
	}

	if err := o.execute(ctx, req); err != nil {
		return models.ActionOutcome{Action: req.Action, PricePaid: paid}, err
	}

	return models.ActionOutcome{
		Executed:    true,
		Action:      req.Action,
		PricePaid:   paid,
		AuditResult: auditResult,
		Message:     message,
	}, nil
}

func (o *Orchestrator) handleEnforcement(ctx context.Context, req models.ActionRequest) (models.ActionOutcome, error) {
	paid := req.Cost
	message := "executed"
	if req.Cost > 0 {
		if _, err := o.economy.Spend(ctx, req.Cost, string(req.Action)); err != nil {
			if !errors.Is(err, db.ErrInsufficientFunds) {
				return models.ActionOutcome{Action: req.Action}, err
			}
			log.Warn().Str("action", string(req.Action)).Float64("price", req.Cost).
				Msg("insufficient funds, executing unpaid")
			paid = 0
			message = "executed, payment failed: insufficient funds"
		}
	}

	if err := o.execute(ctx, req); err != nil {
		return models.ActionOutcome{Action: req.Action, PricePaid: paid}, err
	}

	return models.ActionOutcome{
		Executed:  true,
		Action:    req.Action,
		PricePaid: paid,
		Message:   message,
	}, nil
}

// execute applies the action's effect. The wallet has already been
// settled by the caller.
func (o *Orchestrator) execute(ctx context.Context, req models.ActionRequest) error {
	switch req.Action {
	case models.ActionSnooze:
		return o.executeSnooze(ctx, req)
	case models.ActionDismiss:
		return o.recordEvent(ctx, models.EventUserDismissed, req.App, req.WindowTitle)
	case models.ActionWhitelistTemp:
		return o.executeWhitelist(ctx, req)
	case models.ActionStrictMode:
		return o.executeStrictMode(req)
	case models.ActionCloseWindow:
		return o.executeCloseWindow(ctx, req)
	case models.ActionMinimizeWindow:
		return o.executeMinimize(ctx, req)
	case models.ActionBlockApp:
		return o.executeBlockApp(ctx, req)
	case models.ActionCloseTab:
		return o.executeCloseTab(ctx, req)
	case models.ActionForceCeaseFire:
		o.CeaseFire()
		return nil
	default:
		return fmt.Errorf("unknown action %s", req.Action)
	}
}

func (o *Orchestrator) executeSnooze(ctx context.Context, req models.ActionRequest) error {
	if err := o.recordEvent(ctx, models.EventUserSnoozed, req.App, req.WindowTitle); err != nil {
		return err
	}
	if req.App != "" {
		if err := o.act.MinimizeWindow(ctx, req.App, req.WindowTitle); err != nil {
			log.Warn().Err(err).Str("app", req.App).Msg("minimize during snooze failed")
		}
	}
	o.StartSnooze(o.duration(req.DurationMinutes, o.cfg.SnoozeDuration))
	return nil
}

func (o *Orchestrator) executeWhitelist(ctx context.Context, req models.ActionRequest) error {
	if req.App == "" {
		return fmt.Errorf("whitelist requires an app")
	}
	o.mu.Lock()
	o.whitelist[normalizeApp(req.App)] = time.Now().Add(o.duration(req.DurationMinutes, o.cfg.WhitelistDuration))
	o.mu.Unlock()
	log.Info().Str("app", req.App).Msg("app whitelisted")
	return nil
}

func (o *Orchestrator) executeStrictMode(req models.ActionRequest) error {
	o.mu.Lock()
	o.strictUntil = time.Now().Add(o.duration(req.DurationMinutes, o.cfg.StrictDuration))
	o.mu.Unlock()
	log.Info().Time("until", o.strictUntil).Msg("strict mode enabled")
	return nil
}

func (o *Orchestrator) executeCloseWindow(ctx context.Context, req models.ActionRequest) error {
	if err := o.recordEvent(ctx, models.EventUserClosedWindow, req.App, req.WindowTitle); err != nil {
		return err
	}
	return o.act.CloseWindow(ctx, req.App, req.WindowTitle)
}

func (o *Orchestrator) executeMinimize(ctx context.Context, req models.ActionRequest) error {
	if err := o.recordEvent(ctx, models.EventUserMinimized, req.App, req.WindowTitle); err != nil {
		return err
	}
	if req.App != "" {
		if err := o.act.MinimizeWindow(ctx, req.App, req.WindowTitle); err != nil {
			return err
		}
	}
	// Minimizing implies a monitoring pause, otherwise the next tick
	// re-flags the same window.
	o.StartSnooze(o.duration(req.DurationMinutes, o.cfg.SnoozeDuration))
	return nil
}

func (o *Orchestrator) executeBlockApp(ctx context.Context, req models.ActionRequest) error {
	if req.App == "" {
		return fmt.Errorf("block requires an app")
	}
	app := normalizeApp(req.App)
	if err := o.act.TerminateProcess(ctx, app); err != nil {
		return err
	}
	o.mu.Lock()
	o.blockedApps[app] = time.Now().Add(o.duration(req.DurationMinutes, o.cfg.BlockDuration))
	o.mu.Unlock()
	log.Info().Str("app", app).Msg("app blocked")
	return nil
}

func (o *Orchestrator) executeCloseTab(ctx context.Context, req models.ActionRequest) error {
	if req.Keyword == "" {
		return fmt.Errorf("close tab requires a keyword")
	}
	if err := o.act.CloseTab(ctx, req.Keyword, req.ReturnToApp); err != nil {
		return err
	}
	if err := o.recordEvent(ctx, models.EventUserClosedTab, req.App, req.Keyword); err != nil {
		return err
	}

	o.mu.Lock()
	o.recentlyClosed[strings.ToLower(req.Keyword)] = time.Now()
	o.mu.Unlock()

	// A dead tab must stop counting as activity, or the next oracle
	// call re-detects it from stale rows.
	if purged, err := o.activity.PurgeKeyword(ctx, req.Keyword, ClosedKeywordCooldown); err != nil {
		log.Warn().Err(err).Str("keyword", req.Keyword).Msg("purge closed keyword failed")
	} else if purged > 0 {
		log.Info().Int64("rows", purged).Str("keyword", req.Keyword).Msg("purged closed-tab activity")
	}
	return nil
}

func (o *Orchestrator) recordEvent(ctx context.Context, t models.EpisodicEventType, app, detail string) error {
	return o.episodic.Record(ctx, models.NewEpisodicEvent(t, app, detail))
}

func (o *Orchestrator) duration(minutes int, fallback time.Duration) time.Duration {
	if minutes > 0 {
		return time.Duration(minutes) * time.Minute
	}
	return fallback
}

func normalizeApp(app string) string {
	return strings.ToLower(strings.TrimSpace(app))
}
