package domain

import "time"

// Event is a membership workflow event exported as a telemetry record.
type Event struct {
	Type           string
	RequestID      string
	UserID         string // empty for system or anonymous actions
	ApprovalSystem string
	FromStatus     string
	ToStatus       string
	Metadata       []byte // JSON
	CreatedAt      time.Time
}
