// Package notification hands membership events to the mail pipeline. Delivery is owned by a
// separate consumer; this package only enqueues "send template X with data Y".
package notification

import "context"

// Template keys understood by the mail consumer.
const (
	TemplateRequestReceived = "membership_request_received"
	TemplateRequestAlert    = "membership_request_alert"
	TemplateApproved        = "membership_approved"
	TemplateRejected        = "membership_rejected"
)

// Dispatcher sends one notification. Callers treat errors as degraded outcomes, never as
// a reason to undo committed work.
type Dispatcher interface {
	Send(ctx context.Context, templateKey string, data map[string]string) error
}

// Noop drops every notification.
type Noop struct{}

func (Noop) Send(context.Context, string, map[string]string) error { return nil }
