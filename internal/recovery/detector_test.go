package recovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/vigildev/vigil/internal/db"
	"github.com/vigildev/vigil/pkg/models"
)

func testDetector(t *testing.T) (*Detector, *db.EpisodicStore, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "recovery_test_*")
	require.NoError(t, err)

	store, err := db.NewStore(db.Config{
		Path:     filepath.Join(tmpDir, "test.db"),
		MaxConns: 4,
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)

	episodic := db.NewEpisodicStore(store)
	detector := NewDetector(episodic, 0, 0, 0)

	return detector, episodic, func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}
}

// recordCloseAt backdates a closure event so the detector sees it at a
// chosen age.
func recordCloseAt(t *testing.T, episodic *db.EpisodicStore, typ models.EpisodicEventType, keyword string, age time.Duration) {
	t.Helper()
	ev := models.NewEpisodicEvent(typ, "chrome", keyword)
	ev.CreatedAtEpoch = time.Now().Add(-age).UnixMilli()
	require.NoError(t, episodic.Record(context.Background(), ev))
}

func TestDetect_NoCloseEvents(t *testing.T) {
	detector, _, cleanup := testDetector(t)
	defer cleanup()

	signal, err := detector.Detect(context.Background(), "vscode", "main.go - vscode", "")
	require.NoError(t, err)
	assert.False(t, signal.IsRecovery)
	assert.Equal(t, "no recent close events", signal.Reason)
	assert.Zero(t, signal.Confidence)
}

func TestDetect_GracePeriodNeverSignals(t *testing.T) {
	detector, episodic, cleanup := testDetector(t)
	defer cleanup()

	// Closure 10s ago: even a perfect work context must wait out the grace period
	recordCloseAt(t, episodic, models.EventUserClosedTab, "youtube", 10*time.Second)

	signal, err := detector.Detect(context.Background(), "vscode", "main.go - github - vscode", "")
	require.NoError(t, err)
	assert.False(t, signal.IsRecovery)
	assert.Contains(t, signal.Reason, "grace period")
	assert.Zero(t, signal.Confidence)
}

func TestDetect_CloseOutsideWindowIgnored(t *testing.T) {
	detector, episodic, cleanup := testDetector(t)
	defer cleanup()

	recordCloseAt(t, episodic, models.EventUserClosedTab, "youtube", 5*time.Minute)

	signal, err := detector.Detect(context.Background(), "vscode", "main.go - vscode", "")
	require.NoError(t, err)
	assert.False(t, signal.IsRecovery)
	assert.Equal(t, "no recent close events", signal.Reason)
}

func TestDetect_FullRecovery(t *testing.T) {
	detector, episodic, cleanup := testDetector(t)
	defer cleanup()

	recordCloseAt(t, episodic, models.EventUserClosedTab, "youtube", 60*time.Second)

	// time 0.3 + active close 0.3 + work app 0.25 + work title 0.2 = 1.05 -> 1.0
	signal, err := detector.Detect(context.Background(), "vscode", "main.go - github", "")
	require.NoError(t, err)
	assert.True(t, signal.IsRecovery)
	assert.Equal(t, 1.0, signal.Confidence)
}

func TestDetect_MinimizeScoresLower(t *testing.T) {
	detector, episodic, cleanup := testDetector(t)
	defer cleanup()

	recordCloseAt(t, episodic, models.EventUserMinimized, "youtube", 60*time.Second)

	// time 0.3 + minimize 0.15 + work app 0.25 = 0.7 exactly without a work title
	signal, err := detector.Detect(context.Background(), "vscode", "untitled window", "")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, signal.Confidence, 1e-9)
	assert.True(t, signal.IsRecovery)

	// Dismissal alone falls short: 0.3 + 0.1 + 0.25 = 0.65
	recordCloseAt(t, episodic, models.EventUserDismissed, "youtube", 60*time.Second)
	signal, err = detector.Detect(context.Background(), "vscode", "untitled window", "")
	require.NoError(t, err)
	assert.InDelta(t, 0.65, signal.Confidence, 1e-9)
	assert.False(t, signal.IsRecovery)
}

func TestDetect_StillOnClosedContent(t *testing.T) {
	detector, episodic, cleanup := testDetector(t)
	defer cleanup()

	recordCloseAt(t, episodic, models.EventUserClosedTab, "youtube", 60*time.Second)

	signal, err := detector.Detect(context.Background(), "chrome", "back on YouTube again", "")
	require.NoError(t, err)
	assert.False(t, signal.IsRecovery)
	assert.Contains(t, signal.Reason, "still on closed distraction")
}

func TestDetect_DistractionURLOrTitleBlocks(t *testing.T) {
	detector, episodic, cleanup := testDetector(t)
	defer cleanup()

	recordCloseAt(t, episodic, models.EventUserClosedTab, "youtube", 60*time.Second)

	signal, err := detector.Detect(context.Background(), "chrome", "watch this", "https://netflix.com/browse")
	require.NoError(t, err)
	assert.False(t, signal.IsRecovery)
	assert.Contains(t, signal.Reason, "distraction site")

	signal, err = detector.Detect(context.Background(), "chrome", "best of reddit", "")
	require.NoError(t, err)
	assert.False(t, signal.IsRecovery)
	assert.Contains(t, signal.Reason, "distraction content")
}

func TestDetect_BrowserOnNeutralSite(t *testing.T) {
	detector, episodic, cleanup := testDetector(t)
	defer cleanup()

	recordCloseAt(t, episodic, models.EventUserClosedTab, "youtube", 60*time.Second)

	// time 0.3 + active close 0.3 + browser non-distraction 0.15 = 0.75
	signal, err := detector.Detect(context.Background(), "chrome", "search results", "https://search.example.com")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, signal.Confidence, 1e-9)
	assert.True(t, signal.IsRecovery)
}

func TestDetect_RepeatedDistractionsLowerConfidence(t *testing.T) {
	detector, episodic, cleanup := testDetector(t)
	defer cleanup()

	ctx := context.Background()
	recordCloseAt(t, episodic, models.EventUserClosedTab, "youtube", 60*time.Second)
	for i := 0; i < 3; i++ {
		require.NoError(t, episodic.Record(ctx, models.NewEpisodicEvent(models.EventDistractionDetected, "chrome", "reddit")))
	}

	// 0.3 + 0.3 + 0.25 - 0.2 = 0.65, below the bar despite the work app
	signal, err := detector.Detect(ctx, "vscode", "untitled window", "")
	require.NoError(t, err)
	assert.InDelta(t, 0.65, signal.Confidence, 1e-9)
	assert.False(t, signal.IsRecovery)
}

func TestKeywordHelpers(t *testing.T) {
	d := NewDetector(nil, 0, 0, 0)

	assert.True(t, isWorkApp("Visual Studio Code"))
	assert.False(t, isWorkApp("spotify"))
	assert.True(t, isBrowser("Google Chrome"))
	assert.True(t, d.isDistractionURL("https://www.youtube.com/watch?v=x"))
	assert.False(t, d.isDistractionURL(""))
	assert.True(t, d.hasWorkContext("PR review - GitHub"))
	assert.True(t, d.isDistractionTitle("trending on Twitch"))
}

func TestSetKeywords_OverridesDefaults(t *testing.T) {
	d := NewDetector(nil, 0, 0, 0)
	d.SetKeywords([]string{" Blender ", "Houdini"}, []string{"HackerNews"})

	assert.True(t, d.hasWorkContext("donut tutorial - Blender"))
	assert.False(t, d.hasWorkContext("PR review - GitHub"))
	assert.True(t, d.isDistractionTitle("hackernews | new"))
	assert.False(t, d.isDistractionTitle("trending on Twitch"))
}

func TestSetKeywords_EmptyKeepsDefaults(t *testing.T) {
	d := NewDetector(nil, 0, 0, 0)
	d.SetKeywords(nil, nil)

	assert.True(t, d.hasWorkContext("PR review - GitHub"))
	assert.True(t, d.isDistractionURL("https://www.youtube.com/watch?v=x"))
}

func TestDetect_ConfiguredDistractionKeywordBlocksRecovery(t *testing.T) {
	detector, episodic, cleanup := testDetector(t)
	defer cleanup()

	detector.SetKeywords(nil, []string{"hackernews"})
	recordCloseAt(t, episodic, models.EventUserClosedTab, "reddit", 60*time.Second)

	signal, err := detector.Detect(context.Background(), "chrome", "HackerNews | new", "")
	require.NoError(t, err)
	assert.False(t, signal.IsRecovery)
	assert.Equal(t, "still on distraction content", signal.Reason)
}
