package auditerrors

import "time"

// AuditError represents a persisted stage failure entry
type AuditError struct {
	ID          int64     `json:"id"`
	AuditID     string    `json:"audit_id"`
	URL         string    `json:"url,omitempty"`
	PageType    string    `json:"page_type,omitempty"`
	Stage       string    `json:"stage,omitempty"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
