package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vigildev/vigil/internal/oracle"
	"github.com/vigildev/vigil/pkg/models"
)

// StartSnooze pauses supervision for d and schedules the expiry
// verdict. A new snooze replaces any pending one.
func (o *Orchestrator) StartSnooze(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.snoozeTimer != nil {
		o.snoozeTimer.Stop()
	}
	o.snoozeUntil = time.Now().Add(d)
	o.snoozeTimer = time.AfterFunc(d, o.snoozeExpired)
	log.Info().Dur("duration", d).Time("until", o.snoozeUntil).Msg("snooze started")
}

// CancelSnooze drops the pending snooze without firing the expiry
// verdict.
func (o *Orchestrator) CancelSnooze() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.snoozeTimer != nil {
		o.snoozeTimer.Stop()
		o.snoozeTimer = nil
	}
	o.snoozeUntil = time.Time{}
}

// snoozeExpired fires the forced verdict on the timer goroutine. It
// does not consult the oracle: the snooze was bought on a confirmed
// distraction, so expiry is a distraction by definition.
func (o *Orchestrator) snoozeExpired() {
	o.mu.Lock()
	o.snoozeTimer = nil
	o.snoozeUntil = time.Time{}
	handler := o.onForcedVerdict
	o.mu.Unlock()

	log.Info().Msg("snooze expired")
	if handler == nil {
		return
	}
	handler(expiredSnoozeVerdict())
}

func expiredSnoozeVerdict() *oracle.Verdict {
	return &oracle.Verdict{
		IsDistracted:    true,
		Confidence:      100,
		AnalysisSummary: "Snooze period is over. Time to get back to work.",
		Status:          oracle.StatusDistracted,
		Options: []oracle.Option{
			{
				Label:      "Back to work",
				ActionType: models.ActionDismiss,
				Style:      "primary",
			},
			{
				Label:      "Snooze 5 more minutes",
				ActionType: models.ActionSnooze,
				Payload:    models.JSONMap{"duration_minutes": 5},
				Style:      "warning",
			},
		},
	}
}

// CeaseFire withdraws every open intervention and cancels the pending
// snooze.
func (o *Orchestrator) CeaseFire() {
	o.CancelSnooze()
	o.mu.Lock()
	handler := o.onCeaseFire
	o.mu.Unlock()
	log.Info().Msg("cease fire")
	if handler != nil {
		handler()
	}
}

// IsSnoozed reports whether supervision is currently paused.
func (o *Orchestrator) IsSnoozed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return time.Now().Before(o.snoozeUntil)
}

// IsWhitelisted reports whether app has an unexpired whitelist grant.
// Expired grants are dropped on read.
func (o *Orchestrator) IsWhitelisted(app string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := normalizeApp(app)
	until, ok := o.whitelist[key]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(o.whitelist, key)
		return false
	}
	return true
}

// InStrictMode reports whether the accelerated check interval is in
// effect.
func (o *Orchestrator) InStrictMode() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return time.Now().Before(o.strictUntil)
}

// IsKeywordRecentlyClosed reports whether text overlaps a tab keyword
// closed within the cooldown. The match is a substring check in both
// directions, so "youtube" suppresses "youtube.com" and vice versa.
func (o *Orchestrator) IsKeywordRecentlyClosed(text string) bool {
	if text == "" {
		return false
	}
	needle := strings.ToLower(text)

	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for kw, closedAt := range o.recentlyClosed {
		if now.Sub(closedAt) > ClosedKeywordCooldown {
			delete(o.recentlyClosed, kw)
			continue
		}
		if strings.Contains(needle, kw) || strings.Contains(kw, needle) {
			return true
		}
	}
	return false
}

// WatchdogTick re-terminates blocked apps that have respawned and
// expires finished blocks. Called on a short interval by the
// scheduler.
func (o *Orchestrator) WatchdogTick(ctx context.Context) {
	o.mu.Lock()
	now := time.Now()
	apps := make([]string, 0, len(o.blockedApps))
	for app, until := range o.blockedApps {
		if now.After(until) {
			delete(o.blockedApps, app)
			log.Info().Str("app", app).Msg("app block expired")
			continue
		}
		apps = append(apps, app)
	}
	o.mu.Unlock()

	for _, app := range apps {
		running, err := o.act.IsRunning(ctx, app)
		if err != nil {
			log.Warn().Err(err).Str("app", app).Msg("watchdog check failed")
			continue
		}
		if !running {
			continue
		}
		log.Info().Str("app", app).Msg("blocked app respawned, terminating")
		if err := o.act.TerminateProcess(ctx, app); err != nil {
			log.Warn().Err(err).Str("app", app).Msg("watchdog terminate failed")
		}
	}
}
