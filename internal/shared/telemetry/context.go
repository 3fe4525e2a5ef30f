package telemetry

import "context"

type requestIDKey struct{}

// WithRequestID tags ctx with the id that correlates log lines for one request or job.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the id set by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Detach returns a context free of ctx's deadline and cancellation that keeps its request id.
// Used for work that outlives the HTTP request which started it.
func Detach(ctx context.Context) context.Context {
	return WithRequestID(context.Background(), RequestID(ctx))
}
