package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AccessValidator validates an access token and returns its user ID.
type AccessValidator interface {
	ValidateAccess(token string) (userID string, err error)
}

var errUnauthenticated = status.Error(codes.Unauthenticated, "missing or invalid authorization")

// AuthUnary resolves the caller from the Bearer token in the "authorization" metadata.
// Methods in publicMethods run with or without a valid token; an anonymous caller simply
// has no identity in context. Every other method fails with Unauthenticated.
func AuthUnary(tokens AccessValidator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		userID, ok := authenticate(ctx, tokens)
		if ok {
			return handler(WithIdentity(ctx, userID), req)
		}
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		return nil, errUnauthenticated
	}
}

func authenticate(ctx context.Context, tokens AccessValidator) (string, bool) {
	token := bearerToken(firstMetadata(ctx, "authorization"))
	if token == "" || tokens == nil {
		return "", false
	}
	userID, err := tokens.ValidateAccess(token)
	if err != nil || userID == "" {
		return "", false
	}
	return userID, true
}

// bearerToken extracts the credential from an "Authorization: Bearer <token>" value.
// The scheme is matched case-insensitively.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// firstMetadata returns the first non-blank value of key in the incoming metadata.
func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get(key) {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
