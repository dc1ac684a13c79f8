package framework

import "context"

type requestContextKey struct{}

// RequestContext carries request metadata through contexts so telemetry
// from the engine and tools can be correlated to one agent call.
type RequestContext struct {
	ID       string
	Action   Action
	Language Language
}

// WithRequestContext attaches request metadata to the context.
func WithRequestContext(ctx context.Context, req RequestContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestContextKey{}, req)
}

// RequestContextFrom extracts request metadata, if present.
func RequestContextFrom(ctx context.Context) (RequestContext, bool) {
	if ctx == nil {
		return RequestContext{}, false
	}
	req, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return req, ok
}
