package rpc

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func startServer(t *testing.T, svc *Service, opts ...grpc.ServerOption) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	svc.Register(s)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestService_RoundTripWithInterceptor(t *testing.T) {
	svc := NewService("test.v1.EchoService").
		Handle("Echo", func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
			name, err := Required(req, "name")
			if err != nil {
				return nil, err
			}
			return Response(map[string]any{"greeting": "hello " + name, "limit": float64(Int(req, "limit", 20))})
		})

	var seen string
	conn := startServer(t, svc, grpc.UnaryInterceptor(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = info.FullMethod
		return handler(ctx, req)
	}))

	req, _ := structpb.NewStruct(map[string]any{"name": "ada"})
	out, err := Invoke(context.Background(), conn, svc.FullMethod("Echo"), req)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := String(out, "greeting"); got != "hello ada" {
		t.Errorf("greeting = %q, want %q", got, "hello ada")
	}
	if got := Int(out, "limit", 0); got != 20 {
		t.Errorf("limit = %d, want 20", got)
	}
	if seen != "/test.v1.EchoService/Echo" {
		t.Errorf("interceptor saw %q", seen)
	}

	_, err = Invoke(context.Background(), conn, svc.FullMethod("Echo"), &structpb.Struct{})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("missing name: code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestInt_NonNumeric(t *testing.T) {
	req, _ := structpb.NewStruct(map[string]any{"limit": "ten"})
	if got := Int(req, "limit", 5); got != 5 {
		t.Errorf("Int = %d, want default 5", got)
	}
	if got := Int(nil, "limit", 7); got != 7 {
		t.Errorf("Int(nil) = %d, want 7", got)
	}
}
