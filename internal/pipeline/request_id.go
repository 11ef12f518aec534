package pipeline

import "context"

type requestIDKey struct{}

// WithRequestID attaches a request ID to the context so run logs can be
// correlated with the HTTP request that started them.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// detach keeps the request id and other values of ctx but drops its
// cancellation, so an accepted run always reaches a terminal stage.
func detach(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
