package interceptors

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type auditEvent struct {
	userID, action, resource, metadata string
}

type recordingAuditLogger struct {
	events []auditEvent
}

func (r *recordingAuditLogger) LogEvent(_ context.Context, userID, action, resource, metadata string) {
	r.events = append(r.events, auditEvent{userID, action, resource, metadata})
}

func okHandler(context.Context, interface{}) (interface{}, error) {
	return "ok", nil
}

func TestAuditUnary(t *testing.T) {
	const health = "/grpc.health.v1.Health/Check"
	denied := func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.PermissionDenied, "board only")
	}
	board := WithIdentity(context.Background(), "board-1")

	cases := []struct {
		name       string
		ctx        context.Context
		method     string
		handler    grpc.UnaryHandler
		wantEvents int
		wantStatus string
	}{
		{"authenticated call", board, protectedMethod, okHandler, 1, codes.OK.String()},
		{"failed call still recorded", board, protectedMethod, denied, 1, codes.PermissionDenied.String()},
		{"anonymous call", context.Background(), publicMethod, okHandler, 0, ""},
		{"skipped method", board, health, okHandler, 0, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recordingAuditLogger{}
			interceptor := AuditUnary(rec, map[string]bool{health: true})
			_, err := interceptor(tc.ctx, "req", &grpc.UnaryServerInfo{FullMethod: tc.method}, tc.handler)
			if tc.wantEvents > 0 && status.Code(err).String() != tc.wantStatus {
				t.Errorf("handler error not passed through: %v", err)
			}
			if len(rec.events) != tc.wantEvents {
				t.Fatalf("events = %d, want %d", len(rec.events), tc.wantEvents)
			}
			if tc.wantEvents == 0 {
				return
			}
			ev := rec.events[0]
			if ev.userID != "board-1" {
				t.Errorf("userID = %q, want board-1", ev.userID)
			}
			var meta map[string]string
			if err := json.Unmarshal([]byte(ev.metadata), &meta); err != nil {
				t.Fatalf("metadata %q: %v", ev.metadata, err)
			}
			if meta["full_method"] != tc.method || meta["status_code"] != tc.wantStatus {
				t.Errorf("metadata = %v", meta)
			}
		})
	}
}

func TestAuditUnary_NilLogger(t *testing.T) {
	interceptor := AuditUnary(nil, nil)
	ctx := WithIdentity(context.Background(), "user-1")
	if _, err := interceptor(ctx, "req", &grpc.UnaryServerInfo{FullMethod: protectedMethod}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name  string
		pairs []string
		want  string
	}{
		{"forwarded", []string{"x-forwarded-for", "203.0.113.7"}, "203.0.113.7"},
		{"forwarded chain", []string{"x-forwarded-for", "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"real ip", []string{"x-real-ip", "198.51.100.2"}, "198.51.100.2"},
		{"forwarded beats real ip", []string{"x-forwarded-for", "203.0.113.7", "x-real-ip", "198.51.100.2"}, "203.0.113.7"},
		{"garbage forwarded falls through", []string{"x-forwarded-for", "not-an-ip", "x-real-ip", "198.51.100.2"}, "198.51.100.2"},
		{"ipv6", []string{"x-real-ip", "2001:db8::1"}, "2001:db8::1"},
		{"mapped ipv4", []string{"x-real-ip", "::ffff:192.0.2.1"}, "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClientIP(incoming(tc.pairs...)); got != tc.want {
				t.Errorf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClientIP_Peer(t *testing.T) {
	ctx := peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP("192.0.2.44"), Port: 50051},
	})
	if got := ClientIP(ctx); got != "192.0.2.44" {
		t.Errorf("ClientIP = %q, want 192.0.2.44", got)
	}
	bufconn := peer.NewContext(context.Background(), &peer.Peer{Addr: fakeAddr("bufconn")})
	if got := ClientIP(bufconn); got != "bufconn" {
		t.Errorf("ClientIP(non-IP peer) = %q, want bufconn", got)
	}
	if got := ClientIP(context.Background()); got != unknownIP {
		t.Errorf("ClientIP(empty) = %q, want %q", got, unknownIP)
	}
}

type fakeAddr string

func (a fakeAddr) Network() string { return string(a) }
func (a fakeAddr) String() string  { return string(a) }
