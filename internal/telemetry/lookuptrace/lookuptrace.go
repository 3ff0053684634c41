// Package lookuptrace spans only the find_successor path, leaving the
// maintenance loops untraced. There is no wire-level propagation here: the
// text protocol has no metadata channel, so a span covers one hop's local
// work, not the full forwarding chain across nodes.
package lookuptrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "chorddht/lookuptrace"

var tracer = otel.Tracer(tracerName)

type lookupKey struct{}

// WithLookup marks ctx as belonging to a traced lookup.
func WithLookup(ctx context.Context) context.Context {
	return context.WithValue(ctx, lookupKey{}, true)
}

// IsLookup reports whether ctx was marked by WithLookup.
func IsLookup(ctx context.Context) bool {
	v, _ := ctx.Value(lookupKey{}).(bool)
	return v
}

// StartSpan opens a span named name if ctx is marked as a lookup; otherwise
// it returns ctx unchanged and a no-op span. Callers defer span.End()
// unconditionally.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !IsLookup(ctx) {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
}
