// Package db provides GORM-based database operations for vigil.
package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigildev/vigil/pkg/models"
)

func TestAuditStore_RecordAndApprovalRate(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	ctx := context.Background()
	audits := NewAuditStore(store)

	// No audits yet: perfect rate
	rate, err := audits.ApprovalRate(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)

	require.NoError(t, audits.Record(ctx, models.NewAuditRecord(models.ActionSnooze, models.AuditApproved, 0.9, 5, 5, "reason matches recent behavior")))
	require.NoError(t, audits.Record(ctx, models.NewAuditRecord(models.ActionSnooze, models.AuditPriceAdjusted, 0.5, 5, 7.5, "weak justification")))
	require.NoError(t, audits.Record(ctx, models.NewAuditRecord(models.ActionWhitelistTemp, models.AuditRejected, 0.2, 20, 20, "contradicts stated goal")))
	require.NoError(t, audits.Record(ctx, models.NewAuditRecord(models.ActionDismiss, models.AuditApproved, 0.8, 0, 0, "")))

	rate, err = audits.ApprovalRate(ctx, 20)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, rate, 1e-9)

	recent, err := audits.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, models.ActionDismiss, recent[0].Action)
}

func TestEpisodicStore_LastCloseEvent(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	ctx := context.Background()
	episodic := NewEpisodicStore(store)

	// No events yet
	event, err := episodic.LastCloseEvent(ctx)
	require.NoError(t, err)
	assert.Nil(t, event)

	require.NoError(t, episodic.Record(ctx, models.NewEpisodicEvent(models.EventDistractionDetected, "chrome", "youtube")))
	require.NoError(t, episodic.Record(ctx, models.NewEpisodicEvent(models.EventUserClosedTab, "chrome", "youtube")))
	require.NoError(t, episodic.Record(ctx, models.NewEpisodicEvent(models.EventInterventionShown, "chrome", "")))

	event, err = episodic.LastCloseEvent(ctx)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.EventUserClosedTab, event.Type)
	assert.True(t, event.Type.IsCloseKind())
}

func TestEpisodicStore_CountByTypeSince(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	ctx := context.Background()
	episodic := NewEpisodicStore(store)

	for i := 0; i < 3; i++ {
		require.NoError(t, episodic.Record(ctx, models.NewEpisodicEvent(models.EventDistractionDetected, "chrome", "reddit")))
	}

	count, err := episodic.CountByTypeSince(ctx, models.EventDistractionDetected, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = episodic.CountByTypeSince(ctx, models.EventUserSnoozed, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestBlockStore_CreateAndQuery(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	ctx := context.Background()
	blocks := NewBlockStore(store)

	now := time.Now()
	for i := 0; i < 3; i++ {
		block := &models.SessionBlock{
			StartTime:        now.Add(-time.Duration(3-i) * 30 * time.Minute).Format(time.RFC3339),
			EndTime:          now.Add(-time.Duration(2-i) * 30 * time.Minute).Format(time.RFC3339),
			DurationMinutes:  30,
			FocusDensity:     0.5 + float64(i)*0.1,
			DistractionCount: i,
			DominantApps:     models.JSONStringArray{"code", "chrome"},
			EnergyLevel:      0.4,
			ActivitySwitches: 4,
			CreatedAtEpoch:   now.Add(time.Duration(i) * time.Millisecond).UnixMilli(),
		}
		require.NoError(t, blocks.Create(ctx, block))
	}

	recent, err := blocks.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.InDelta(t, 0.7, recent[0].FocusDensity, 1e-9)
	assert.Equal(t, []string{"code", "chrome"}, []string(recent[0].DominantApps))

	all, err := blocks.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	count, err := blocks.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestInsightStore_Latest(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	ctx := context.Background()
	insights := NewInsightStore(store)

	// Missing type returns nil without error
	latest, err := insights.Latest(ctx, models.InsightPeakHours)
	require.NoError(t, err)
	assert.Nil(t, latest)

	now := time.Now()
	first, err := models.NewInsight(models.InsightPeakHours,
		models.PeakHoursData{PeakHour: 9, PeakDensity: 0.8}, now.Add(-time.Hour), now, 10)
	require.NoError(t, err)
	first.CreatedAtEpoch = now.Add(-time.Minute).UnixMilli()
	require.NoError(t, insights.Create(ctx, first))

	second, err := models.NewInsight(models.InsightPeakHours,
		models.PeakHoursData{PeakHour: 14, PeakDensity: 0.9}, now.Add(-time.Hour), now, 12)
	require.NoError(t, err)
	require.NoError(t, insights.Create(ctx, second))

	latest, err = insights.Latest(ctx, models.InsightPeakHours)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Contains(t, latest.Data, `"peak_hour":14`)

	all, err := insights.LatestAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSessionStore_Lifecycle(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	ctx := context.Background()
	sessions := NewSessionStore(store)

	active, err := sessions.Active(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	first, err := sessions.Start(ctx, "finish quarterly report")
	require.NoError(t, err)

	// Starting a second session abandons the first
	second, err := sessions.Start(ctx, "review pull requests")
	require.NoError(t, err)

	active, err = sessions.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, "review pull requests", active.GoalText)

	var abandoned models.FocusSession
	require.NoError(t, store.DB.First(&abandoned, first.ID).Error)
	assert.Equal(t, "abandoned", abandoned.Status)
	assert.True(t, abandoned.EndTime.Valid)

	require.NoError(t, sessions.End(ctx, second.ID, "completed"))
	active, err = sessions.Active(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	var completed models.FocusSession
	require.NoError(t, store.DB.First(&completed, second.ID).Error)
	assert.Equal(t, "completed", completed.Status)
	assert.True(t, completed.EndTime.Valid)
}
