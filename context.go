package goSession

import (
	"context"

	"github.com/rs/zerolog"
)

type requestIDContextKey struct{}

// WithRequestID attaches a request identifier to ctx. Engine log lines for
// operations run with ctx carry it as request_id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the identifier set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

func (e *Engine) logger(ctx context.Context) *zerolog.Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		l := e.log.With().Str("request_id", id).Logger()
		return &l
	}
	return &e.log
}
