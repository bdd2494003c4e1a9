package domain

import "time"

// JudgmentAction enumerates the result interactions recorded as relevance
// feedback.
const (
	ActionClick     = "click"
	ActionShortlist = "shortlist"
	ActionDismiss   = "dismiss"
)

// Judgment is one relevance judgment from a result interaction. It is
// written once and read by an external ranking-improvement process.
type Judgment struct {
	EventID     string    `json:"eventId"`
	TenantID    string    `json:"tenantId"`
	Query       string    `json:"query"`
	CandidateID string    `json:"candidateId"`
	Action      string    `json:"action"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
}
