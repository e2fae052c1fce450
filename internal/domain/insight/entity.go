package insight

import "time"

// InsightID identifier type
type InsightID string

// Insight represents an AI executive summary stored for auditing and retrieval
type Insight struct {
	ID        InsightID `json:"id"`
	Slug      string    `json:"slug"`
	AuditID   string    `json:"audit_id,omitempty"`
	Summary   string    `json:"summary"` // JSON string from AI
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
