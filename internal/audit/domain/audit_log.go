package domain

import "time"

// AuditLog represents an audit event. UserID is empty for anonymous actions such as public submissions.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Filter narrows a List query. Empty fields match everything.
type Filter struct {
	UserID   string
	Action   string
	Resource string
}
