// Package metabolism turns raw activity into compressed session
// blocks and long-horizon insights: the tier-1 to tier-2 to tier-3
// pipeline of the activity memory.
package metabolism

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vigildev/vigil/internal/db"
	"github.com/vigildev/vigil/pkg/models"
)

// Intervals for the two transformation stages.
const (
	DefaultCompressInterval  = 30 * time.Minute
	DefaultTransformInterval = 24 * time.Hour
)

// focusApps and distractionApps classify activity by substring match
// against the lowercased app name. Anything matching neither set is
// neutral and counts at half weight toward focus.
var focusApps = []string{
	"code", "python", "vscode", "intellij", "idea", "terminal",
	"word", "excel", "powerpoint", "notepad",
	"pdf", "latex", "markdown",
}

var distractionApps = []string{
	"bilibili", "youtube", "netflix", "tiktok",
	"game", "steam", "epic",
	"twitter", "facebook", "instagram",
	"reddit", "discord", "twitch",
}

// Transformer runs the compression and insight stages.
type Transformer struct {
	activity *db.ActivityStore
	blocks   *db.BlockStore
	insights *db.InsightStore

	compressInterval  time.Duration
	transformInterval time.Duration
}

// NewTransformer creates a transformer with default intervals when
// zero values are given.
func NewTransformer(activity *db.ActivityStore, blocks *db.BlockStore, insights *db.InsightStore, compressInterval, transformInterval time.Duration) *Transformer {
	if compressInterval <= 0 {
		compressInterval = DefaultCompressInterval
	}
	if transformInterval <= 0 {
		transformInterval = DefaultTransformInterval
	}
	return &Transformer{
		activity:          activity,
		blocks:            blocks,
		insights:          insights,
		compressInterval:  compressInterval,
		transformInterval: transformInterval,
	}
}

// CompressTick compresses the activity of the last interval into one
// session block. An empty window produces no block and no error.
func (t *Transformer) CompressTick(ctx context.Context) (*models.SessionBlock, error) {
	now := time.Now()
	events, err := t.activity.EventsSince(ctx, now.Add(-t.compressInterval))
	if err != nil {
		return nil, fmt.Errorf("load activity window: %w", err)
	}
	if len(events) == 0 {
		log.Debug().Msg("no activity to compress")
		return nil, nil
	}

	block := &models.SessionBlock{
		StartTime:        now.Add(-t.compressInterval).Format(time.RFC3339),
		EndTime:          now.Format(time.RFC3339),
		DurationMinutes:  int(t.compressInterval / time.Minute),
		FocusDensity:     focusDensity(events),
		DistractionCount: countDistractions(events),
		DominantApps:     dominantApps(events, 5),
		ActivitySwitches: countSwitches(events),
		CreatedAtEpoch:   now.UnixMilli(),
	}
	block.EnergyLevel = energyLevel(block.ActivitySwitches)

	if err := t.blocks.Create(ctx, block); err != nil {
		return nil, fmt.Errorf("create session block: %w", err)
	}

	log.Info().
		Float64("focus", block.FocusDensity).
		Int("distractions", block.DistractionCount).
		Float64("energy", block.EnergyLevel).
		Msg("created session block")

	return block, nil
}

// TransformTick derives the four insight types from recent blocks.
// With no blocks it is a no-op.
func (t *Transformer) TransformTick(ctx context.Context) error {
	blocks, err := t.blocks.Recent(ctx, 100)
	if err != nil {
		return fmt.Errorf("load blocks: %w", err)
	}
	if len(blocks) == 0 {
		log.Debug().Msg("no session blocks to analyze")
		return nil
	}

	now := time.Now()
	periodStart := now.Add(-t.transformInterval)
	created := 0

	if data := peakHoursInsight(blocks); data != nil {
		if err := t.storeInsight(ctx, models.InsightPeakHours, data, periodStart, now, len(blocks)); err != nil {
			return err
		}
		created++
	}
	if data := distractionInsight(blocks); data != nil {
		if err := t.storeInsight(ctx, models.InsightDistractionPatterns, data, periodStart, now, len(blocks)); err != nil {
			return err
		}
		created++
	}
	if data := appPreferencesInsight(blocks); data != nil {
		if err := t.storeInsight(ctx, models.InsightAppPreferences, data, periodStart, now, len(blocks)); err != nil {
			return err
		}
		created++
	}
	if data := fatigueInsight(blocks); data != nil {
		if err := t.storeInsight(ctx, models.InsightFatigueSignals, data, periodStart, now, len(blocks)); err != nil {
			return err
		}
		created++
	}

	log.Info().Int("insights", created).Int("blocks", len(blocks)).Msg("insight transform complete")
	return nil
}

func (t *Transformer) storeInsight(ctx context.Context, typ models.InsightType, payload any, start, end time.Time, samples int) error {
	insight, err := models.NewInsight(typ, payload, start, end, samples)
	if err != nil {
		return fmt.Errorf("marshal %s insight: %w", typ, err)
	}
	if err := t.insights.Create(ctx, insight); err != nil {
		return fmt.Errorf("store %s insight: %w", typ, err)
	}
	return nil
}

// isFocusApp reports whether the app name matches a focus keyword.
func isFocusApp(app string) bool {
	return matchesAny(app, focusApps)
}

// isDistractionApp reports whether the app name matches a distraction keyword.
func isDistractionApp(app string) bool {
	return matchesAny(app, distractionApps)
}

func matchesAny(app string, keywords []string) bool {
	app = strings.ToLower(app)
	for _, kw := range keywords {
		if strings.Contains(app, kw) {
			return true
		}
	}
	return false
}

// focusDensity is the duration-weighted share of focused time.
// Distraction apps contribute nothing, neutral apps count at half
// weight. All-zero durations yield zero density.
func focusDensity(events []*models.ActivityEvent) float64 {
	var focused, total float64
	for _, ev := range events {
		d := float64(ev.DurationSeconds)
		total += d
		switch {
		case isFocusApp(ev.App):
			focused += d
		case isDistractionApp(ev.App):
			// no credit
		default:
			focused += d * 0.5
		}
	}
	if total == 0 {
		return 0
	}
	return math.Min(1, focused/total)
}

// countDistractions counts events attributed to distraction apps.
func countDistractions(events []*models.ActivityEvent) int {
	count := 0
	for _, ev := range events {
		if isDistractionApp(ev.App) {
			count++
		}
	}
	return count
}

// countSwitches counts app transitions across consecutive events.
func countSwitches(events []*models.ActivityEvent) int {
	switches := 0
	for i := 1; i < len(events); i++ {
		if events[i].App != events[i-1].App {
			switches++
		}
	}
	return switches
}

// energyLevel normalizes switch count against a 10-switch baseline.
func energyLevel(switches int) float64 {
	return math.Min(1, float64(switches)/10)
}

// dominantApps ranks apps by total duration, ties broken by name.
func dominantApps(events []*models.ActivityEvent, n int) models.JSONStringArray {
	durations := make(map[string]int)
	for _, ev := range events {
		durations[ev.App] += ev.DurationSeconds
	}
	apps := make([]string, 0, len(durations))
	for app := range durations {
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool {
		if durations[apps[i]] != durations[apps[j]] {
			return durations[apps[i]] > durations[apps[j]]
		}
		return apps[i] < apps[j]
	})
	if len(apps) > n {
		apps = apps[:n]
	}
	return models.JSONStringArray(apps)
}
