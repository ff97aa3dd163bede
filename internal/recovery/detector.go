// Package recovery detects whether the user has returned to work
// after a distraction. The detector scores several weak signals and
// only reports recovery when their sum crosses a confidence bar, so a
// momentary app switch never reads as genuine recovery.
package recovery

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vigildev/vigil/internal/db"
	"github.com/vigildev/vigil/pkg/models"
)

// Detection parameters. A closure only counts while inside the
// detection window, and never during the grace period right after it.
const (
	DefaultGracePeriod     = 30 * time.Second
	DefaultDetectionWindow = 120 * time.Second
	DefaultThreshold       = 0.7
)

// Signal is the detector's judgement for one observation.
type Signal struct {
	IsRecovery bool
	Reason     string
	Confidence float64
}

// Detector scores recovery evidence against the episodic ledger.
type Detector struct {
	episodic *db.EpisodicStore

	gracePeriod     time.Duration
	detectionWindow time.Duration
	threshold       float64

	workKeywords        []string
	distractionKeywords []string
}

// NewDetector creates a detector; zero durations select the defaults.
func NewDetector(episodic *db.EpisodicStore, gracePeriod, detectionWindow time.Duration, threshold float64) *Detector {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	if detectionWindow <= 0 {
		detectionWindow = DefaultDetectionWindow
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{
		episodic:            episodic,
		gracePeriod:         gracePeriod,
		detectionWindow:     detectionWindow,
		threshold:           threshold,
		workKeywords:        defaultWorkKeywords,
		distractionKeywords: defaultDistractionKeywords,
	}
}

// SetKeywords replaces the built-in keyword lists with the user's
// configured ones. Empty slices keep the defaults.
func (d *Detector) SetKeywords(work, distraction []string) {
	if len(work) > 0 {
		d.workKeywords = lowered(work)
	}
	if len(distraction) > 0 {
		d.distractionKeywords = lowered(distraction)
	}
}

func lowered(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(strings.ToLower(kw)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// Detect judges whether the current foreground context shows the user
// back at work after a recent closure.
func (d *Detector) Detect(ctx context.Context, app, title, url string) (Signal, error) {
	lastClose, err := d.episodic.LastCloseEvent(ctx)
	if err != nil {
		return Signal{}, fmt.Errorf("load last close event: %w", err)
	}
	if lastClose == nil {
		return Signal{Reason: "no recent close events"}, nil
	}

	sinceClose := time.Since(time.UnixMilli(lastClose.CreatedAtEpoch))
	if sinceClose > d.detectionWindow {
		return Signal{Reason: "no recent close events"}, nil
	}
	if sinceClose < d.gracePeriod {
		return Signal{Reason: fmt.Sprintf("still in grace period (%.0fs)", sinceClose.Seconds())}, nil
	}

	// Still on the content that was supposedly closed.
	closedKeyword := strings.ToLower(lastClose.Detail)
	if closedKeyword != "" && strings.Contains(strings.ToLower(title), closedKeyword) {
		return Signal{Reason: "still on closed distraction: " + lastClose.Detail}, nil
	}
	if d.isDistractionURL(url) {
		return Signal{Reason: "still on distraction site"}, nil
	}
	if d.isDistractionTitle(title) {
		return Signal{Reason: "still on distraction content"}, nil
	}

	confidence := 0.0
	var reasons []string

	// Inside the detection window after the grace period.
	confidence += 0.3
	reasons = append(reasons, fmt.Sprintf("closed %.0fs ago", sinceClose.Seconds()))

	switch lastClose.Type {
	case models.EventUserClosedTab, models.EventUserClosedWindow:
		confidence += 0.3
		reasons = append(reasons, "user actively closed distraction")
	case models.EventUserMinimized:
		confidence += 0.15
		reasons = append(reasons, "user minimized distraction")
	case models.EventUserDismissed:
		confidence += 0.1
		reasons = append(reasons, "user dismissed intervention")
	}

	switch {
	case isWorkApp(app):
		confidence += 0.25
		reasons = append(reasons, "work app in foreground")
	case isBrowser(app) && url != "" && !d.isDistractionURL(url):
		confidence += 0.15
		reasons = append(reasons, "browser on non-distraction site")
	}

	if d.hasWorkContext(title) {
		confidence += 0.2
		reasons = append(reasons, "window title has work context")
	}

	// Repeated distractions inside the window undercut the evidence.
	distractions, err := d.recentDistractionCount(ctx)
	if err != nil {
		return Signal{}, err
	}
	if distractions >= 3 {
		confidence -= 0.2
		reasons = append(reasons, fmt.Sprintf("%d recent distractions", distractions))
	}

	confidence = math.Max(0, math.Min(1, confidence))
	signal := Signal{
		IsRecovery: confidence >= d.threshold,
		Reason:     strings.Join(reasons, ", "),
		Confidence: confidence,
	}

	if signal.IsRecovery {
		log.Info().Float64("confidence", confidence).Str("reason", signal.Reason).Msg("recovery detected")
	} else {
		log.Debug().Float64("confidence", confidence).Str("reason", signal.Reason).Msg("recovery not detected")
	}

	return signal, nil
}

func (d *Detector) recentDistractionCount(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-d.detectionWindow)
	detected, err := d.episodic.CountByTypeSince(ctx, models.EventDistractionDetected, cutoff)
	if err != nil {
		return 0, fmt.Errorf("count distraction events: %w", err)
	}
	shown, err := d.episodic.CountByTypeSince(ctx, models.EventInterventionShown, cutoff)
	if err != nil {
		return 0, fmt.Errorf("count intervention events: %w", err)
	}
	return int(detected + shown), nil
}
