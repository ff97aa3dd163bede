package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigildev/vigil/internal/audit"
	"github.com/vigildev/vigil/pkg/models"
)

// chatServer fakes an OpenAI-compatible endpoint returning canned
// content per call.
func chatServer(t *testing.T, replies ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(replies) {
			n = len(replies) - 1
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": replies[n]}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

const goodVerdict = `{
	"is_distracted": true,
	"confidence": 85,
	"analysis_summary": "YouTube entertainment in foreground",
	"status": "DISTRACTED",
	"force_cease_fire": false,
	"thought_trace": ["step"],
	"options": [
		{"label": "Close tab", "action_type": "CLOSE_TAB", "payload": {"keyword": "YouTube"}, "cost": 5, "affordable": true},
		{"label": "Dismiss", "action_type": "DISMISS", "cost": 0, "affordable": true}
	]
}`

func TestAnalyze(t *testing.T) {
	srv, calls := chatServer(t, goodVerdict)
	client := NewClient(srv.URL, "test-model", "", srv.Client())

	verdict, err := client.Analyze(context.Background(), AnalysisContext{
		Goal:    "write the report",
		Balance: 80,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, verdict.IsDistracted)
	assert.Equal(t, 85, verdict.Confidence)
	assert.Equal(t, StatusDistracted, verdict.Status)
	require.Len(t, verdict.Options, 2)
	assert.Equal(t, models.ActionCloseTab, verdict.Options[0].ActionType)
	assert.Equal(t, "YouTube", verdict.Options[0].Keyword())
}

func TestAnalyze_RetriesOnMalformedResponse(t *testing.T) {
	srv, calls := chatServer(t, "not json at all", goodVerdict)
	client := NewClient(srv.URL, "test-model", "", srv.Client())

	verdict, err := client.Analyze(context.Background(), AnalysisContext{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, StatusDistracted, verdict.Status)
}

func TestAnalyze_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model", "", srv.Client())
	_, err := client.Analyze(context.Background(), AnalysisContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempts failed")
}

func TestAnalyze_ContextCancelStopsRetry(t *testing.T) {
	srv, _ := chatServer(t, "garbage")
	client := NewClient(srv.URL, "test-model", "", srv.Client())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Analyze(ctx, AnalysisContext{})
	require.Error(t, err)
}

func TestScoreConsistency(t *testing.T) {
	srv, _ := chatServer(t, "```json\n{\"consistency_score\": 0.55, \"audit_reason\": \"vague claim\"}\n```")
	client := NewClient(srv.URL, "test-model", "", srv.Client())

	score, reason, err := client.ScoreConsistency(context.Background(), audit.ScoreRequest{
		Action: models.ActionWhitelistTemp,
		Reason: "need the site for research",
		App:    "chrome",
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.55, score, 1e-9)
	assert.Equal(t, "vague claim", reason)
}

func TestParseVerdict_TableDriven(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:  "plain JSON",
			input: goodVerdict,
		},
		{
			name:  "fenced JSON",
			input: "```json\n" + goodVerdict + "\n```",
		},
		{
			name:    "missing required field",
			input:   `{"is_distracted": true, "confidence": 50, "options": []}`,
			wantErr: "missing required field",
		},
		{
			name:    "confidence out of range",
			input:   `{"is_distracted": true, "confidence": 150, "analysis_summary": "x", "options": []}`,
			wantErr: "out of range",
		},
		{
			name:    "unknown status",
			input:   `{"is_distracted": false, "confidence": 10, "analysis_summary": "x", "status": "NAPPING", "options": []}`,
			wantErr: "unknown status",
		},
		{
			name:    "not json",
			input:   "sorry, I cannot help",
			wantErr: "decode verdict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVerdict(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, v)
		})
	}
}

func TestParseVerdict_DefaultsStatusToFocused(t *testing.T) {
	v, err := ParseVerdict(`{"is_distracted": false, "confidence": 10, "analysis_summary": "working", "options": []}`)
	require.NoError(t, err)
	assert.Equal(t, StatusFocused, v.Status)
}

func TestBuildPrompt_IncludesContext(t *testing.T) {
	prompt := BuildPrompt(AnalysisContext{
		Goal:                    "ship the release",
		Balance:                 42,
		ConsecutiveDistractions: 3,
		InstantWindow: []models.ActivitySummary{
			{App: "chrome", WindowCount: 2, Titles: "YouTube | Docs", URL: "https://youtube.com"},
		},
		Blocks: models.BlockSummary{
			BlockCount: 4, MeanFocusDensity: 0.6, MeanEnergyLevel: 0.5,
			TotalDistractions: 3, TopApps: []string{"chrome", "vscode"},
		},
		ApprovalRate: 0.75,
		Insights: map[models.InsightType]string{
			models.InsightPeakHours: "best hour: 09:00-10:00 (focus 80%)",
		},
	})

	assert.Contains(t, prompt, "ship the release")
	assert.Contains(t, prompt, "42 coins")
	assert.Contains(t, prompt, "Distraction streak: 3")
	assert.Contains(t, prompt, "chrome (2 windows)")
	assert.Contains(t, prompt, "approval rate: 75%")
	assert.Contains(t, prompt, "best hour: 09:00-10:00")
}

func TestBuildPrompt_EmptyWindows(t *testing.T) {
	prompt := BuildPrompt(AnalysisContext{Bankrupt: true, Balance: -60})
	assert.Contains(t, prompt, "(no activity)")
	assert.Contains(t, prompt, "(no goal set)")
	assert.Contains(t, prompt, "BANKRUPT")
	assert.Contains(t, prompt, "(no compressed history yet)")
}

func TestInsightDescriptions(t *testing.T) {
	insights := map[models.InsightType]*models.Insight{
		models.InsightPeakHours:      {Data: `{"description": "best hour: 09:00"}`},
		models.InsightFatigueSignals: {Data: `not json`},
	}
	out := InsightDescriptions(insights)
	assert.Equal(t, map[models.InsightType]string{
		models.InsightPeakHours: "best hour: 09:00",
	}, out)
}
