package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func TestCheck(t *testing.T) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	serving := healthgrpc.HealthCheckResponse_SERVING
	notServing := healthgrpc.HealthCheckResponse_NOT_SERVING
	testCases := []struct {
		name   string
		pinger Pinger
		policy PolicyChecker
		want   healthgrpc.HealthCheckResponse_ServingStatus
	}{
		{"no checks", nil, nil, serving},
		{"ping ok", &mockPinger{}, nil, serving},
		{"ping fails", &mockPinger{pingErr: errors.New("connection refused")}, nil, notServing},
		{"policy ok", nil, &mockPolicyChecker{}, serving},
		{"policy fails", nil, &mockPolicyChecker{healthErr: errors.New("rego compile failed")}, notServing},
		{"ping ok policy fails", &mockPinger{}, &mockPolicyChecker{healthErr: errors.New("policy error")}, notServing},
		{"both ok", &mockPinger{}, &mockPolicyChecker{}, serving},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := NewServer(tc.pinger, tc.policy, discard)
			resp, err := srv.Check(context.Background(), &healthgrpc.HealthCheckRequest{})
			if err != nil {
				t.Fatalf("Check must not return an RPC error: %v", err)
			}
			if resp.GetStatus() != tc.want {
				t.Errorf("status = %v, want %v", resp.GetStatus(), tc.want)
			}
		})
	}
}
