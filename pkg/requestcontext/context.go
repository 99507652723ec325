// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// The transport middleware records where a request came from; the GraphQL
// resolvers read those values as defaults when the client does not supply
// registration metadata explicitly. Keeping this package free of net/http
// lets the service and resolver layers import only what they need.
package requestcontext

import "context"

type (
	clientIPKey  struct{}
	userAgentKey struct{}
	referrerKey  struct{}
)

// ClientIP retrieves the caller's IP address, or "" if not set.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects the caller's IP address into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// UserAgent retrieves the raw User-Agent header, or "" if not set.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithUserAgent injects the raw User-Agent header into the context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey{}, ua)
}

// Referrer retrieves the Referer header, or "" if not set.
func Referrer(ctx context.Context) string {
	if ref, ok := ctx.Value(referrerKey{}).(string); ok {
		return ref
	}
	return ""
}

// WithReferrer injects the Referer header into the context.
func WithReferrer(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, referrerKey{}, ref)
}
