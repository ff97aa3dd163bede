package metabolism

import (
	"fmt"
	"sort"
	"time"

	"github.com/vigildev/vigil/pkg/models"
)

// Blocks arrive ordered most recent first; the "recent" slices below
// rely on that ordering.

// peakHoursInsight groups blocks by start hour and finds the hour
// with the highest mean focus density. Hours above 0.7 mean density
// form the high-productivity set.
func peakHoursInsight(blocks []*models.SessionBlock) *models.PeakHoursData {
	hourDensities := make(map[int][]float64)
	for _, b := range blocks {
		start, err := time.Parse(time.RFC3339, b.StartTime)
		if err != nil {
			continue
		}
		h := start.Hour()
		hourDensities[h] = append(hourDensities[h], b.FocusDensity)
	}
	if len(hourDensities) == 0 {
		return nil
	}

	hourlyAvg := make(map[int]float64, len(hourDensities))
	for h, ds := range hourDensities {
		var sum float64
		for _, d := range ds {
			sum += d
		}
		hourlyAvg[h] = sum / float64(len(ds))
	}

	peakHour := -1
	peakDensity := -1.0
	var highHours []int
	for h, avg := range hourlyAvg {
		if avg > peakDensity || (avg == peakDensity && h < peakHour) {
			peakHour, peakDensity = h, avg
		}
		if avg > 0.7 {
			highHours = append(highHours, h)
		}
	}
	sort.Ints(highHours)
	if highHours == nil {
		highHours = []int{}
	}

	return &models.PeakHoursData{
		PeakHour:              peakHour,
		PeakDensity:           peakDensity,
		HighProductivityHours: highHours,
		HourlyAverage:         hourlyAvg,
		Description:           fmt.Sprintf("best hour: %02d:00-%02d:00 (focus %.0f%%)", peakHour, peakHour+1, peakDensity*100),
	}
}

// distractionInsight compares the newest ten blocks against the full
// history; a recent average more than 20 percent off the overall
// average flips the trend.
func distractionInsight(blocks []*models.SessionBlock) *models.DistractionPatternsData {
	if len(blocks) == 0 {
		return nil
	}

	total := 0
	for _, b := range blocks {
		total += b.DistractionCount
	}
	avg := float64(total) / float64(len(blocks))

	recent := blocks
	if len(recent) > 10 {
		recent = recent[:10]
	}
	recentTotal := 0
	for _, b := range recent {
		recentTotal += b.DistractionCount
	}
	recentAvg := float64(recentTotal) / float64(len(recent))

	trend := models.TrendStable
	switch {
	case recentAvg > avg*1.2:
		trend = models.TrendIncreasing
	case recentAvg < avg*0.8:
		trend = models.TrendDecreasing
	}

	return &models.DistractionPatternsData{
		AveragePerBlock: avg,
		RecentAverage:   recentAvg,
		Trend:           trend,
		BlocksAnalyzed:  len(blocks),
		Description:     fmt.Sprintf("avg %.1f distractions per block (trend: %s)", avg, trend),
	}
}

// appPreferencesInsight counts dominant-app mentions across blocks.
// Diversity is distinct apps over total mentions.
func appPreferencesInsight(blocks []*models.SessionBlock) *models.AppPreferencesData {
	counts := make(map[string]int)
	totalMentions := 0
	for _, b := range blocks {
		for _, app := range b.DominantApps {
			counts[app]++
			totalMentions++
		}
	}
	if totalMentions == 0 {
		return nil
	}

	apps := make([]string, 0, len(counts))
	for app := range counts {
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool {
		if counts[apps[i]] != counts[apps[j]] {
			return counts[apps[i]] > counts[apps[j]]
		}
		return apps[i] < apps[j]
	})
	if len(apps) > 10 {
		apps = apps[:10]
	}

	top := make([]models.AppMention, len(apps))
	for i, app := range apps {
		top[i] = models.AppMention{Name: app, Count: counts[app]}
	}

	return &models.AppPreferencesData{
		TopApps:        top,
		TotalMentions:  totalMentions,
		DiversityScore: float64(len(counts)) / float64(totalMentions),
		Description:    fmt.Sprintf("most used: %s (%d mentions)", top[0].Name, top[0].Count),
	}
}

// fatigueInsight compares the newest five blocks' mean energy against
// the overall mean. Below 60 percent of the mean is high fatigue,
// below 80 percent is moderate.
func fatigueInsight(blocks []*models.SessionBlock) *models.FatigueSignalsData {
	if len(blocks) == 0 {
		return nil
	}

	var sum float64
	for _, b := range blocks {
		sum += b.EnergyLevel
	}
	avg := sum / float64(len(blocks))

	recent := blocks
	if len(recent) > 5 {
		recent = recent[:5]
	}
	var recentSum float64
	for _, b := range recent {
		recentSum += b.EnergyLevel
	}
	recentAvg := recentSum / float64(len(recent))

	level := models.FatigueNormal
	switch {
	case recentAvg < avg*0.6:
		level = models.FatigueHigh
	case recentAvg < avg*0.8:
		level = models.FatigueModerate
	}

	return &models.FatigueSignalsData{
		AverageEnergy: avg,
		RecentEnergy:  recentAvg,
		Level:         level,
		EnergyDecline: avg - recentAvg,
		Description:   fmt.Sprintf("fatigue: %s (energy drop %.0f%%)", level, (avg-recentAvg)*100),
	}
}
