package oracle

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vigildev/vigil/pkg/models"
)

// Status is the oracle's classification of the current activity.
type Status string

// Verdict statuses. RECOVERY means the user has already returned to
// work and every open intervention should be withdrawn.
const (
	StatusFocused    Status = "FOCUSED"
	StatusDistracted Status = "DISTRACTED"
	StatusRecovery   Status = "RECOVERY"
)

// Option is one intervention choice offered to the user.
type Option struct {
	Label          string            `json:"label"`
	ActionType     models.ActionType `json:"action_type"`
	Payload        models.JSONMap    `json:"payload"`
	Style          string            `json:"style"`
	Disabled       bool              `json:"disabled"`
	DisabledReason string            `json:"disabled_reason,omitempty"`
	TrustImpact    float64           `json:"trust_impact"`
	Cost           float64           `json:"cost"`
	Affordable     bool              `json:"affordable"`
}

// Keyword returns the payload keyword for tab-targeted actions.
func (o Option) Keyword() string {
	if o.Payload == nil {
		return ""
	}
	if kw, ok := o.Payload["keyword"].(string); ok {
		return kw
	}
	return ""
}

// Verdict is the oracle's full judgement for one supervision tick.
// InterventionID is assigned locally when the verdict is published so
// a sink can acknowledge a specific intervention; the model never
// sets it.
type Verdict struct {
	InterventionID  string   `json:"intervention_id,omitempty"`
	IsDistracted    bool     `json:"is_distracted"`
	Confidence      int      `json:"confidence"`
	AnalysisSummary string   `json:"analysis_summary"`
	Status          Status   `json:"status"`
	ForceCeaseFire  bool     `json:"force_cease_fire"`
	ThoughtTrace    []string `json:"thought_trace"`
	Options         []Option `json:"options"`
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ParseVerdict decodes and validates a raw model response. The parse
// is strict about required fields so a malformed response triggers a
// retry instead of a half-empty verdict.
func ParseVerdict(text string) (*Verdict, error) {
	raw := stripFences(text)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	for _, field := range []string{"is_distracted", "confidence", "analysis_summary", "options"} {
		if _, ok := fields[field]; !ok {
			return nil, fmt.Errorf("verdict missing required field %q", field)
		}
	}

	var v Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}

	if v.Confidence < 0 || v.Confidence > 100 {
		return nil, fmt.Errorf("confidence out of range: %d", v.Confidence)
	}
	if v.Status == "" {
		v.Status = StatusFocused
	}
	switch v.Status {
	case StatusFocused, StatusDistracted, StatusRecovery:
	default:
		return nil, fmt.Errorf("unknown status %q", v.Status)
	}

	return &v, nil
}

// consistencyReply is the smaller response shape of an audit scoring call.
type consistencyReply struct {
	ConsistencyScore *float64 `json:"consistency_score"`
	AuditReason      string   `json:"audit_reason"`
}

// parseConsistency decodes an audit scoring response.
func parseConsistency(text string) (float64, string, error) {
	raw := stripFences(text)
	var reply consistencyReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return 0, "", fmt.Errorf("decode consistency reply: %w", err)
	}
	if reply.ConsistencyScore == nil {
		return 0, "", fmt.Errorf("consistency reply missing score")
	}
	return *reply.ConsistencyScore, reply.AuditReason, nil
}
