package models

import (
	"time"

	"github.com/goccy/go-json"
)

// InsightType identifies the long-horizon pattern a tier-3 insight covers.
type InsightType string

// Insight types. One logical "latest" record exists per type; newer
// insights supersede older ones rather than mutating them.
const (
	InsightPeakHours           InsightType = "PEAK_HOURS"
	InsightDistractionPatterns InsightType = "DISTRACTION_PATTERNS"
	InsightAppPreferences      InsightType = "APP_PREFERENCES"
	InsightFatigueSignals      InsightType = "FATIGUE_SIGNALS"
)

// AllInsightTypes lists every insight type in a stable order.
var AllInsightTypes = []InsightType{
	InsightPeakHours,
	InsightDistractionPatterns,
	InsightAppPreferences,
	InsightFatigueSignals,
}

// Insight is a derived long-horizon pattern (tier 3).
type Insight struct {
	ID             int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Type           InsightType `gorm:"type:text;check:type IN ('PEAK_HOURS', 'DISTRACTION_PATTERNS', 'APP_PREFERENCES', 'FATIGUE_SIGNALS');index;not null" json:"type"`
	Data           string      `gorm:"type:text;not null" json:"data"`
	PeriodStart    string      `gorm:"not null" json:"period_start"`
	PeriodEnd      string      `gorm:"not null" json:"period_end"`
	SampleSize     int         `gorm:"default:0" json:"sample_size"`
	Confidence     float64     `gorm:"type:real;default:1.0" json:"confidence"`
	CreatedAt      string      `gorm:"not null" json:"created_at"`
	CreatedAtEpoch int64       `gorm:"index:idx_insights_created,sort:desc;not null" json:"created_at_epoch"`
}

// TableName implements the GORM table-name convention.
func (Insight) TableName() string { return "insights" }

// NewInsight marshals payload into a timestamped insight record.
func NewInsight(t InsightType, payload any, periodStart, periodEnd time.Time, sampleSize int) (*Insight, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Insight{
		Type:           t,
		Data:           string(data),
		PeriodStart:    periodStart.Format(time.RFC3339),
		PeriodEnd:      periodEnd.Format(time.RFC3339),
		SampleSize:     sampleSize,
		Confidence:     1.0,
		CreatedAt:      now.Format(time.RFC3339),
		CreatedAtEpoch: now.UnixMilli(),
	}, nil
}

// PeakHoursData is the payload for InsightPeakHours.
type PeakHoursData struct {
	PeakHour              int             `json:"peak_hour"`
	PeakDensity           float64         `json:"peak_density"`
	HighProductivityHours []int           `json:"high_productivity_hours"`
	HourlyAverage         map[int]float64 `json:"hourly_average"`
	Description           string          `json:"description"`
}

// DistractionTrend classifies the recent-vs-overall distraction ratio.
type DistractionTrend string

// Trend classifications with a ±20% stability band.
const (
	TrendIncreasing DistractionTrend = "increasing"
	TrendDecreasing DistractionTrend = "decreasing"
	TrendStable     DistractionTrend = "stable"
)

// DistractionPatternsData is the payload for InsightDistractionPatterns.
type DistractionPatternsData struct {
	AveragePerBlock float64          `json:"average_per_block"`
	RecentAverage   float64          `json:"recent_average"`
	Trend           DistractionTrend `json:"trend"`
	BlocksAnalyzed  int              `json:"blocks_analyzed"`
	Description     string           `json:"description"`
}

// AppMention is one entry of an app-preference ranking.
type AppMention struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AppPreferencesData is the payload for InsightAppPreferences.
type AppPreferencesData struct {
	TopApps        []AppMention `json:"top_apps"`
	TotalMentions  int          `json:"total_mentions"`
	DiversityScore float64      `json:"diversity_score"`
	Description    string       `json:"description"`
}

// FatigueLevel classifies recent energy against the overall mean.
type FatigueLevel string

// Fatigue classifications: high below 60% of the overall mean energy,
// moderate below 80%, normal otherwise.
const (
	FatigueNormal   FatigueLevel = "normal"
	FatigueModerate FatigueLevel = "moderate"
	FatigueHigh     FatigueLevel = "high"
)

// FatigueSignalsData is the payload for InsightFatigueSignals.
type FatigueSignalsData struct {
	AverageEnergy float64      `json:"average_energy"`
	RecentEnergy  float64      `json:"recent_energy"`
	Level         FatigueLevel `json:"fatigue_level"`
	EnergyDecline float64      `json:"energy_decline"`
	Description   string       `json:"description"`
}
