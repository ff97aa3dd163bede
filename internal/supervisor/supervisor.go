// Package supervisor runs the periodic decision loop: it samples the
// tiered activity windows, consults the recovery detector and the
// oracle, mines coins on focused ticks, and publishes intervention
// verdicts.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vigildev/vigil/internal/audit"
	"github.com/vigildev/vigil/internal/config"
	"github.com/vigildev/vigil/internal/db"
	"github.com/vigildev/vigil/internal/economy"
	"github.com/vigildev/vigil/internal/oracle"
	"github.com/vigildev/vigil/internal/orchestrator"
	"github.com/vigildev/vigil/internal/recovery"
	"github.com/vigildev/vigil/pkg/models"
)

// Tiered window sizes fed to the oracle each tick.
const (
	InstantWindow = 30 * time.Second
	ShortWindow   = 5 * time.Minute
	ContextWindow = 20 * time.Minute
)

// approvalRateWindow is how many recent audit records feed the
// approval rate shown to the oracle.
const approvalRateWindow = 20

// blockContext is how many compressed blocks summarize recent history
// for the analysis prompt.
const blockContext = 10

// Analyzer produces a verdict for one supervision tick.
type Analyzer interface {
	Analyze(ctx context.Context, actx oracle.AnalysisContext) (*oracle.Verdict, error)
}

// VerdictHandler receives every intervention verdict, including forced
// ones from snooze expiry.
type VerdictHandler func(*oracle.Verdict)

// Supervisor owns the check loop and the focus/distraction streak.
type Supervisor struct {
	activity *db.ActivityStore
	blocks   *db.BlockStore
	insights *db.InsightStore
	episodic *db.EpisodicStore
	sessions *db.SessionStore
	economy  *economy.Engine
	auditor  *audit.Auditor
	detector *recovery.Detector
	orch     *orchestrator.Orchestrator
	analyzer Analyzer
	cfg      *config.Config

	mu      sync.Mutex
	streak  economy.Streak
	goal    string
	handler VerdictHandler
}

// New creates a supervisor. The verdict handler starts unset; verdicts
// are logged and dropped until one is registered.
func New(
	activity *db.ActivityStore,
	blocks *db.BlockStore,
	insights *db.InsightStore,
	episodic *db.EpisodicStore,
	sessions *db.SessionStore,
	eco *economy.Engine,
	auditor *audit.Auditor,
	detector *recovery.Detector,
	orch *orchestrator.Orchestrator,
	analyzer Analyzer,
	cfg *config.Config,
) *Supervisor {
	s := &Supervisor{
		activity: activity,
		blocks:   blocks,
		insights: insights,
		episodic: episodic,
		sessions: sessions,
		economy:  eco,
		auditor:  auditor,
		detector: detector,
		orch:     orch,
		analyzer: analyzer,
		cfg:      cfg,
	}
	orch.SetForcedVerdictHandler(s.publish)
	return s
}

// SetVerdictHandler registers the intervention sink.
func (s *Supervisor) SetVerdictHandler(fn VerdictHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = fn
}

// SetGoal opens a focus session with the stated goal. Any previous
// active session is abandoned.
func (s *Supervisor) SetGoal(ctx context.Context, goal string) error {
	if _, err := s.sessions.Start(ctx, goal); err != nil {
		return err
	}
	s.mu.Lock()
	s.goal = goal
	s.streak = economy.Streak{}
	s.mu.Unlock()
	log.Info().Str("goal", goal).Msg("focus session started")
	return nil
}

// RestoreGoal reloads the goal from the still-active focus session, so
// a daemon restart resumes the session the user had open.
func (s *Supervisor) RestoreGoal(ctx context.Context) error {
	session, err := s.sessions.Active(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	s.mu.Lock()
	s.goal = session.GoalText
	s.mu.Unlock()
	log.Info().Str("goal", session.GoalText).Msg("focus session resumed")
	return nil
}

// Streak returns the current focus/distraction streak for pricing.
func (s *Supervisor) Streak() economy.Streak {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streak
}

// Interval returns the current check interval, accelerated while
// strict mode is active.
func (s *Supervisor) Interval() time.Duration {
	if s.orch.InStrictMode() {
		return config.StrictCheckInterval
	}
	return s.cfg.CheckInterval()
}

// Run executes the supervision loop until the context is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	log.Info().Dur("interval", s.cfg.CheckInterval()).Msg("supervision loop started")
	if err := s.RestoreGoal(ctx); err != nil {
		log.Warn().Err(err).Msg("restore focus session failed")
	}
	for {
		if err := s.Tick(ctx); err != nil {
			log.Warn().Err(err).Msg("supervision tick failed")
		}
		if err := s.wait(ctx, s.Interval()); err != nil {
			return err
		}
	}
}

// wait sleeps for d in one-second slices so cancellation and strict
// mode changes take effect promptly.
func (s *Supervisor) wait(ctx context.Context, d time.Duration) error {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		slice := time.Second
		if remaining < slice {
			slice = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(slice):
		}
	}
}

// Tick runs one supervision pass.
func (s *Supervisor) Tick(ctx context.Context) error {
	if s.orch.IsSnoozed() {
		log.Debug().Msg("tick skipped: snoozed")
		return nil
	}

	app, title, url, ok, err := s.currentActivity(ctx)
	if err != nil {
		return err
	}
	if !ok {
		log.Debug().Msg("tick skipped: no recent activity")
		return nil
	}

	if s.orch.IsWhitelisted(app) {
		log.Debug().Str("app", app).Msg("tick skipped: whitelisted")
		return s.markFocused(ctx)
	}
	if s.orch.IsKeywordRecentlyClosed(title) || s.orch.IsKeywordRecentlyClosed(url) {
		log.Debug().Str("title", title).Msg("tick skipped: recently closed content")
		return s.markFocused(ctx)
	}

	// Cheap heuristic recovery check before any oracle call: a user
	// who just closed a distraction gets an immediate cease fire.
	signal, err := s.detector.Detect(ctx, app, title, url)
	if err != nil {
		log.Warn().Err(err).Msg("recovery detection failed")
	} else if signal.IsRecovery {
		s.orch.CeaseFire()
		return s.markFocused(ctx)
	}

	actx, err := s.buildContext(ctx)
	if err != nil {
		return err
	}

	verdict, err := s.analyzer.Analyze(ctx, actx)
	if err != nil {
		// The oracle being down must not punish the user.
		log.Warn().Err(err).Msg("oracle analysis failed")
		return nil
	}

	if verdict.ForceCeaseFire || verdict.Status == oracle.StatusRecovery {
		s.orch.CeaseFire()
		return s.markFocused(ctx)
	}

	if verdict.IsDistracted && verdict.Confidence >= s.cfg.ConfidenceThreshold {
		return s.intervene(ctx, verdict, app)
	}

	return s.markFocused(ctx)
}

// currentActivity returns the most recent activity sample, preferring
// the instant window and falling back to the short window. ok is false
// only when both windows are empty, which reads as an idle machine.
func (s *Supervisor) currentActivity(ctx context.Context) (app, title, url string, ok bool, err error) {
	events, err := s.activity.EventsSince(ctx, time.Now().Add(-InstantWindow))
	if err != nil {
		return "", "", "", false, err
	}
	if len(events) == 0 {
		events, err = s.activity.EventsSince(ctx, time.Now().Add(-ShortWindow))
		if err != nil {
			return "", "", "", false, err
		}
	}
	if len(events) == 0 {
		return "", "", "", false, nil
	}
	last := events[len(events)-1]
	return last.App, last.WindowTitle, last.URL.String, true, nil
}

// buildContext assembles everything the oracle sees for one tick.
func (s *Supervisor) buildContext(ctx context.Context) (oracle.AnalysisContext, error) {
	var actx oracle.AnalysisContext

	instant, err := s.activity.WindowedSummary(ctx, InstantWindow)
	if err != nil {
		return actx, err
	}
	short, err := s.activity.WindowedSummary(ctx, ShortWindow)
	if err != nil {
		return actx, err
	}
	long, err := s.activity.WindowedSummary(ctx, ContextWindow)
	if err != nil {
		return actx, err
	}

	balance, err := s.economy.Balance(ctx)
	if err != nil {
		return actx, err
	}
	bankrupt, err := s.economy.IsBankrupt(ctx)
	if err != nil {
		return actx, err
	}

	blocks, err := s.blocks.Recent(ctx, blockContext)
	if err != nil {
		return actx, err
	}
	rate, err := s.auditor.ApprovalRate(ctx, approvalRateWindow)
	if err != nil {
		return actx, err
	}

	latest, err := s.insights.LatestAll(ctx)
	if err != nil {
		return actx, err
	}

	s.mu.Lock()
	goal := s.goal
	streak := s.streak
	s.mu.Unlock()

	return oracle.AnalysisContext{
		Goal:                    goal,
		Balance:                 balance,
		Bankrupt:                bankrupt,
		ConsecutiveFocus:        streak.ConsecutiveFocus,
		ConsecutiveDistractions: streak.ConsecutiveDistractions,
		InstantWindow:           instant,
		ShortWindow:             short,
		ContextWindow:           long,
		Blocks:                  models.SummarizeBlocks(blocks),
		ApprovalRate:            rate,
		Insights:                oracle.InsightDescriptions(latest),
	}, nil
}

// markFocused credits mining for the elapsed interval and advances the
// focus streak.
func (s *Supervisor) markFocused(ctx context.Context) error {
	minutes := s.Interval().Minutes()
	if _, err := s.economy.Earn(ctx, minutes, "focus mining"); err != nil {
		return err
	}
	s.mu.Lock()
	s.streak.ConsecutiveFocus++
	s.streak.ConsecutiveDistractions = 0
	s.mu.Unlock()
	return nil
}

// intervene records the distraction, advances the distraction streak,
// and publishes the verdict.
func (s *Supervisor) intervene(ctx context.Context, verdict *oracle.Verdict, app string) error {
	if err := s.episodic.Record(ctx, models.NewEpisodicEvent(models.EventDistractionDetected, app, verdict.AnalysisSummary)); err != nil {
		return err
	}
	if err := s.episodic.Record(ctx, models.NewEpisodicEvent(models.EventInterventionShown, app, "")); err != nil {
		return err
	}

	s.mu.Lock()
	s.streak.ConsecutiveDistractions++
	s.streak.ConsecutiveFocus = 0
	s.mu.Unlock()

	log.Info().
		Str("app", app).
		Int("confidence", verdict.Confidence).
		Str("summary", verdict.AnalysisSummary).
		Msg("distraction detected")

	s.publish(verdict)
	return nil
}

// publish assigns an intervention ID and fans the verdict out to the
// registered handler.
func (s *Supervisor) publish(verdict *oracle.Verdict) {
	if verdict.InterventionID == "" {
		verdict.InterventionID = uuid.NewString()
	}
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()
	if handler == nil {
		log.Warn().Str("intervention_id", verdict.InterventionID).Msg("verdict dropped: no handler registered")
		return
	}
	handler(verdict)
}
