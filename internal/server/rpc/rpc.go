// Package rpc builds gRPC service descriptors whose messages are google.protobuf.Struct.
// Services register plain Go functions instead of generated stubs.
package rpc

import (
	"context"
	"fmt"
	"sort"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// UnaryFunc handles one unary RPC.
type UnaryFunc func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// Service collects the methods of one gRPC service.
type Service struct {
	name    string
	methods map[string]UnaryFunc
}

// NewService returns an empty service with the fully-qualified name, e.g. cms.membership.v1.MembershipRequestService.
func NewService(name string) *Service {
	return &Service{name: name, methods: make(map[string]UnaryFunc)}
}

// Name returns the fully-qualified service name.
func (s *Service) Name() string { return s.name }

// Handle registers fn under method.
func (s *Service) Handle(method string, fn UnaryFunc) *Service {
	s.methods[method] = fn
	return s
}

// FullMethod returns "/<service>/<method>".
func (s *Service) FullMethod(method string) string {
	return "/" + s.name + "/" + method
}

// Desc returns the grpc.ServiceDesc for the registered methods.
func (s *Service) Desc() *grpc.ServiceDesc {
	names := make([]string, 0, len(s.methods))
	for n := range s.methods {
		names = append(names, n)
	}
	sort.Strings(names)
	desc := &grpc.ServiceDesc{
		ServiceName: s.name,
		HandlerType: (*any)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    s.name,
	}
	for _, n := range names {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: n,
			Handler:    s.handler(n, s.methods[n]),
		})
	}
	return desc
}

// Register registers the service with r.
func (s *Service) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(s.Desc(), s)
}

func (s *Service) handler(method string, fn UnaryFunc) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := s.FullMethod(method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return fn(ctx, req.(*structpb.Struct))
		})
	}
}

// Invoke calls a Struct-typed unary method on conn.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, fullMethod string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, fullMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// String returns the string field key of req, or "".
func String(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[key].GetStringValue()
}

// Int returns the numeric field key of req as an int32, or def when absent.
func Int(req *structpb.Struct, key string, def int32) int32 {
	if req == nil {
		return def
	}
	v, ok := req.GetFields()[key]
	if !ok {
		return def
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return def
	}
	return int32(v.GetNumberValue())
}

// Required returns the string field key of req, or an InvalidArgument error when it is empty.
func Required(req *structpb.Struct, key string) (string, error) {
	v := String(req, key)
	if v == "" {
		return "", status.Error(codes.InvalidArgument, fmt.Sprintf("%s is required", key))
	}
	return v, nil
}

// Response builds a Struct response from fields. Values must be supported by structpb.NewValue.
func Response(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return s, nil
}
