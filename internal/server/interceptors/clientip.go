package interceptors

import (
	"context"
	"net/netip"
	"strings"

	"google.golang.org/grpc/peer"
)

const unknownIP = "unknown"

// ClientIP returns the caller's address for audit and request logs. The first parseable hop
// of x-forwarded-for wins, then x-real-ip, then the transport peer.
func ClientIP(ctx context.Context) string {
	if fwd := firstMetadata(ctx, "x-forwarded-for"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip, ok := parseIP(first); ok {
			return ip
		}
	}
	if ip, ok := parseIP(firstMetadata(ctx, "x-real-ip")); ok {
		return ip
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if ap, err := netip.ParseAddrPort(p.Addr.String()); err == nil {
			return ap.Addr().Unmap().String()
		}
		return p.Addr.String()
	}
	return unknownIP
}

func parseIP(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
