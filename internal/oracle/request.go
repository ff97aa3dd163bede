package oracle

import (
	"fmt"
	"strings"
	"time"

	"github.com/vigildev/vigil/pkg/models"
)

// AnalysisContext is everything the oracle sees for one supervision
// tick: the three activity windows, the economy state, the behavioral
// history, and the user's stated goal.
type AnalysisContext struct {
	Goal    string
	Balance float64

	Bankrupt bool

	ConsecutiveFocus        int
	ConsecutiveDistractions int

	InstantWindow []models.ActivitySummary // last 30 seconds
	ShortWindow   []models.ActivitySummary // last 5 minutes
	ContextWindow []models.ActivitySummary // last 20 minutes

	Blocks       models.BlockSummary
	ApprovalRate float64
	Insights     map[models.InsightType]string // description per insight type
}

const systemPrompt = `You are the decision core of an attention supervisor. Judge from the
activity windows below whether the user is focused on their stated
goal, distracted, or already recovering back to work.

## Goal
%s

## Economy
- Balance: %.0f coins
- Bankruptcy status: %s
- Focus mining earns 1 coin per focused minute; break options cost
  coins; strict mode is rewarded.
%s
## Current time
%s

## Activity (last 30 seconds)
%s

## Activity (last 5 minutes)
%s

## Activity (last 20 minutes)
%s

## Behavioral history
%s
%s
## Output
Respond with exactly one JSON object, no other text:
{
  "is_distracted": boolean,
  "confidence": number (0-100),
  "analysis_summary": "one sentence naming the concrete site or app",
  "status": "FOCUSED" | "DISTRACTED" | "RECOVERY",
  "force_cease_fire": boolean,
  "thought_trace": ["step 1", "step 2", "step 3"],
  "options": [
    {
      "label": "button text",
      "action_type": "SNOOZE" | "DISMISS" | "WHITELIST_TEMP" | "STRICT_MODE" | "CLOSE_WINDOW" | "MINIMIZE_WINDOW" | "BLOCK_APP" | "CLOSE_TAB",
      "payload": {},
      "style": "normal" | "warning" | "primary",
      "disabled": boolean,
      "disabled_reason": null,
      "cost": number,
      "affordable": boolean
    }
  ]
}

Rules:
- status RECOVERY (with force_cease_fire=true) when the user has
  visibly returned to work; interventions stop immediately.
- For browser distractions prefer CLOSE_TAB over CLOSE_WINDOW and put
  a unique "keyword" in the payload identifying the tab.
- Offer 3 to 5 options. Under bankruptcy keep options cheap or free.
- For mixed study contexts (editor plus browser) prefer DISMISS and
  lower confidence.`

// BuildPrompt renders the analysis context into the model prompt.
func BuildPrompt(actx AnalysisContext) string {
	streakInfo := ""
	switch {
	case actx.ConsecutiveFocus > 0:
		streakInfo = fmt.Sprintf("- Focus streak: %d checks (prices discounted)\n", actx.ConsecutiveFocus)
	case actx.ConsecutiveDistractions > 0:
		streakInfo = fmt.Sprintf("- Distraction streak: %d checks (prices raised)\n", actx.ConsecutiveDistractions)
	}

	insightInfo := ""
	if len(actx.Insights) > 0 {
		var lines []string
		for _, t := range models.AllInsightTypes {
			if desc, ok := actx.Insights[t]; ok && desc != "" {
				lines = append(lines, "- "+desc)
			}
		}
		if len(lines) > 0 {
			insightInfo = "\n## Known patterns\n" + strings.Join(lines, "\n") + "\n"
		}
	}

	return fmt.Sprintf(systemPrompt,
		orDefault(actx.Goal, "(no goal set)"),
		actx.Balance,
		bankruptcyStatus(actx),
		streakInfo,
		time.Now().Format("2006-01-02 15:04:05"),
		formatWindow(actx.InstantWindow),
		formatWindow(actx.ShortWindow),
		formatWindow(actx.ContextWindow),
		formatBlocks(actx.Blocks, actx.ApprovalRate),
		insightInfo,
	)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func bankruptcyStatus(actx AnalysisContext) string {
	if actx.Bankrupt {
		return "BANKRUPT (keep options cheap or free)"
	}
	if actx.Balance < 0 {
		return "in debt"
	}
	return "solvent"
}

// formatWindow renders an activity window as app-level lines.
func formatWindow(rows []models.ActivitySummary) string {
	if len(rows) == 0 {
		return "(no activity)"
	}
	lines := make([]string, 0, len(rows)+1)
	for _, row := range rows {
		line := fmt.Sprintf("- %s (%d windows): %s", row.App, row.WindowCount, row.Titles)
		if row.URL != "" {
			line += " [" + row.URL + "]"
		}
		lines = append(lines, line)
	}
	lines = append(lines, fmt.Sprintf("\nActive apps: %d", len(rows)))
	return strings.Join(lines, "\n")
}

// formatBlocks renders the compressed block summary.
func formatBlocks(s models.BlockSummary, approvalRate float64) string {
	if s.BlockCount == 0 {
		return "(no compressed history yet)"
	}
	return fmt.Sprintf(
		"- %d blocks, mean focus %.2f, mean energy %.2f, %d distractions\n- dominant apps: %s\n- recent audit approval rate: %.0f%%",
		s.BlockCount, s.MeanFocusDensity, s.MeanEnergyLevel, s.TotalDistractions,
		strings.Join(s.TopApps, ", "), approvalRate*100,
	)
}

const auditPromptTemplate = `You audit purchase requests inside an attention supervisor. The user
claims a reason for an action; judge how consistent the claim is with
their observed behavior. Look for abuse of the whitelist mechanism.

## Claim
- Action: %s
- Reason: %s
- Current app: %s
- Window title: %s
- URL: %s

## Recent behavior (compressed blocks, newest first)
%s

## Output
Respond with exactly one JSON object, no other text:
{
  "consistency_score": number (0.0-1.0),
  "audit_reason": "one sentence"
}

Scoring guide:
- 0.9-1.0: claim clearly matches behavior (high focus, work content)
- 0.7-0.9: plausible (moderate focus, study-related content)
- 0.4-0.7: strained (low focus or vague content)
- 0.0-0.4: contradicts behavior (low focus density, heavy app
  switching, distraction content)`

// buildAuditPrompt renders a consistency-scoring request.
func buildAuditPrompt(action models.ActionType, reason, app, title, url string, blocks []*models.SessionBlock) string {
	blockLines := "(none)"
	if len(blocks) > 0 {
		lines := make([]string, len(blocks))
		for i, b := range blocks {
			lines[i] = fmt.Sprintf("- focus %.2f, energy %.2f, %d distractions, %d switches, apps: %s",
				b.FocusDensity, b.EnergyLevel, b.DistractionCount, b.ActivitySwitches,
				strings.Join(b.DominantApps, ", "))
		}
		blockLines = strings.Join(lines, "\n")
	}
	return fmt.Sprintf(auditPromptTemplate,
		action, orDefault(reason, "(none)"), orDefault(app, "unknown"),
		title, orDefault(url, "(none)"), blockLines)
}
