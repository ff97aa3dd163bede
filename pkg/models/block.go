package models

import "database/sql"

// SessionBlock is a fixed-window compressed behavioral summary (tier 2).
// Blocks are immutable after creation and retained for hours.
type SessionBlock struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID        sql.NullInt64   `gorm:"index" json:"session_id,omitempty"`
	StartTime        string          `gorm:"index;not null" json:"start_time"`
	EndTime          string          `gorm:"not null" json:"end_time"`
	DurationMinutes  int             `gorm:"not null" json:"duration_minutes"`
	FocusDensity     float64         `gorm:"type:real;default:0" json:"focus_density"`
	DistractionCount int             `gorm:"default:0" json:"distraction_count"`
	DominantApps     JSONStringArray `gorm:"type:text" json:"dominant_apps"`
	EnergyLevel      float64         `gorm:"type:real;default:0" json:"energy_level"`
	ActivitySwitches int             `gorm:"default:0" json:"activity_switches"`
	CreatedAtEpoch   int64           `gorm:"index:idx_blocks_created,sort:desc;not null" json:"created_at_epoch"`
}

// TableName implements the GORM table-name convention.
func (SessionBlock) TableName() string { return "session_blocks" }

// BlockSummary aggregates a set of session blocks into the short
// statistical form consumed by the auditor and the oracle context.
type BlockSummary struct {
	BlockCount        int      `json:"block_count"`
	MeanFocusDensity  float64  `json:"mean_focus_density"`
	MeanEnergyLevel   float64  `json:"mean_energy_level"`
	TotalDistractions int      `json:"total_distractions"`
	TopApps           []string `json:"top_apps"`
}

// SummarizeBlocks computes the aggregate view of the supplied blocks.
// An empty input yields a zero-valued summary.
func SummarizeBlocks(blocks []*SessionBlock) BlockSummary {
	s := BlockSummary{BlockCount: len(blocks)}
	if len(blocks) == 0 {
		return s
	}

	appCounts := make(map[string]int)
	for _, b := range blocks {
		s.MeanFocusDensity += b.FocusDensity
		s.MeanEnergyLevel += b.EnergyLevel
		s.TotalDistractions += b.DistractionCount
		for _, app := range b.DominantApps {
			appCounts[app]++
		}
	}
	n := float64(len(blocks))
	s.MeanFocusDensity /= n
	s.MeanEnergyLevel /= n
	s.TopApps = topNByCount(appCounts, 5)
	return s
}

// topNByCount returns the n highest-count keys, ties broken by name for
// deterministic output.
func topNByCount(counts map[string]int, n int) []string {
	type kv struct {
		key   string
		count int
	}
	pairs := make([]kv, 0, len(counts))
	for k, c := range counts {
		pairs = append(pairs, kv{k, c})
	}
	for i := 0; i < len(pairs); i++ {
		for j := i + 1; j < len(pairs); j++ {
			if pairs[j].count > pairs[i].count ||
				(pairs[j].count == pairs[i].count && pairs[j].key < pairs[i].key) {
				pairs[i], pairs[j] = pairs[j], pairs[i]
			}
		}
	}
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.key
	}
	return out
}
