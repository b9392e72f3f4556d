package logging

import "context"

type contextKey struct{}

var requestIDKey contextKey

// WithRequestID returns a context carrying the request correlation ID. The
// HTTP middleware sets it once per request so later log lines can reference
// it without re-reading headers.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the correlation ID carried by the context, or "" when
// the context never passed through the middleware.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
