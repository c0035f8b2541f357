package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "community-cms/membership"

// WorkflowMetrics counts membership request transitions and board votes.
type WorkflowMetrics struct {
	transitions metric.Int64Counter
	votes       metric.Int64Counter
}

// NewWorkflowMetrics registers the workflow counters on provider.
func NewWorkflowMetrics(provider metric.MeterProvider) (*WorkflowMetrics, error) {
	meter := provider.Meter(meterName)
	transitions, err := meter.Int64Counter("membership_request.transitions",
		metric.WithDescription("Membership request status transitions"),
		metric.WithUnit("{transition}"))
	if err != nil {
		return nil, err
	}
	votes, err := meter.Int64Counter("membership_request.votes",
		metric.WithDescription("Board votes cast or changed on membership requests"),
		metric.WithUnit("{vote}"))
	if err != nil {
		return nil, err
	}
	return &WorkflowMetrics{transitions: transitions, votes: votes}, nil
}

func (m *WorkflowMetrics) RecordTransition(ctx context.Context, approvalSystem, from, to string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("approval_system", approvalSystem),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *WorkflowMetrics) RecordVote(ctx context.Context, decision string, changed bool) {
	if m == nil {
		return
	}
	m.votes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("decision", decision),
		attribute.Bool("changed", changed),
	))
}
