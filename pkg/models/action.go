package models

// ActionType identifies an orchestrated response to a distraction.
type ActionType string

// User-purchasable and system-issued actions. The first four have
// wallet prices; the rest are enforcement actions the orchestrator
// issues on a verdict.
const (
	ActionSnooze         ActionType = "SNOOZE"
	ActionDismiss        ActionType = "DISMISS"
	ActionWhitelistTemp  ActionType = "WHITELIST_TEMP"
	ActionStrictMode     ActionType = "STRICT_MODE"
	ActionCloseWindow    ActionType = "CLOSE_WINDOW"
	ActionMinimizeWindow ActionType = "MINIMIZE_WINDOW"
	ActionBlockApp       ActionType = "BLOCK_APP"
	ActionCloseTab       ActionType = "CLOSE_TAB"
	ActionForceCeaseFire ActionType = "FORCE_CEASE_FIRE"
)

// IsPurchasable reports whether the action goes through the wallet
// and the consistency audit before execution.
func (t ActionType) IsPurchasable() bool {
	switch t {
	case ActionSnooze, ActionDismiss, ActionWhitelistTemp, ActionStrictMode:
		return true
	}
	return false
}

// ActionRequest is a user request to purchase and execute an action.
// Keyword targets a browser tab for CLOSE_TAB; ReturnToApp names the
// window to refocus afterwards. Cost carries the offered price for
// enforcement actions, which skip the audit.
type ActionRequest struct {
	Action          ActionType `json:"action"`
	App             string     `json:"app"`
	WindowTitle     string     `json:"window_title"`
	URL             string     `json:"url,omitempty"`
	Keyword         string     `json:"keyword,omitempty"`
	ReturnToApp     string     `json:"return_to_app,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	Reason          string     `json:"reason"`
	Cost            float64    `json:"cost,omitempty"`
}

// ActionOutcome reports what the orchestrator did with a request.
type ActionOutcome struct {
	Executed    bool        `json:"executed"`
	Action      ActionType  `json:"action"`
	PricePaid   float64     `json:"price_paid"`
	AuditResult AuditResult `json:"audit_result,omitempty"`
	Message     string      `json:"message"`
}
