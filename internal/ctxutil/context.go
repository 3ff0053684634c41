// Package ctxutil builds the per-lookup context: an optional trace ID and
// an optional hop counter, layered onto a timeout. The transport is plain
// TCP with no metadata channel, so these values only travel as far as a
// single process — they are not propagated across the wire, only used
// locally to log P5 (routing hop count).
package ctxutil

import (
	"context"
	"time"

	"ChordDHT/internal/ring"
	"ChordDHT/internal/trace"
)

type hopsKey struct{}

// ContextOption configures the behavior of NewContext. Multiple options can
// be combined.
type ContextOption func(*ctxConfig)

type ctxConfig struct {
	withTrace bool
	withHops  bool
	nodeID    ring.ID
	timeout   time.Duration
}

// WithTrace attaches a fresh trace ID derived from nodeID to the created
// context.
func WithTrace(nodeID ring.ID) ContextOption {
	return func(cfg *ctxConfig) {
		cfg.withTrace = true
		cfg.nodeID = nodeID
	}
}

// WithTimeout bounds the created context. The caller must defer the
// returned cancel function.
func WithTimeout(d time.Duration) ContextOption {
	return func(cfg *ctxConfig) {
		cfg.timeout = d
	}
}

// WithHops initializes the hop counter at 0, for P5 instrumentation of a
// find_successor chain originating here.
func WithHops() ContextOption {
	return func(cfg *ctxConfig) {
		cfg.withHops = true
	}
}

// NewContext builds a context.Background() descendant configured per opts.
func NewContext(opts ...ContextOption) (context.Context, context.CancelFunc) {
	cfg := &ctxConfig{}
	for _, o := range opts {
		o(cfg)
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if cfg.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), cfg.timeout)
	} else {
		ctx = context.Background()
	}
	if cfg.withTrace {
		ctx, _ = trace.AttachTraceID(ctx, cfg.nodeID)
	}
	if cfg.withHops {
		ctx = context.WithValue(ctx, hopsKey{}, 0)
	}
	return ctx, cancel
}

// TraceIDFromContext returns the trace ID attached to ctx, or "" if none.
func TraceIDFromContext(ctx context.Context) string {
	return trace.GetTraceID(ctx)
}

// EnsureTraceID attaches a trace ID derived from nodeID if ctx doesn't
// already carry one.
func EnsureTraceID(ctx context.Context, nodeID ring.ID) context.Context {
	if id := trace.GetTraceID(ctx); id == "" {
		ctx, _ = trace.AttachTraceID(ctx, nodeID)
	}
	return ctx
}

// HopsFromContext returns the current hop count, or -1 if the context
// isn't counting hops.
func HopsFromContext(ctx context.Context) int {
	if hops, ok := ctx.Value(hopsKey{}).(int); ok {
		return hops
	}
	return -1
}

// IncHops increments the hop counter if present; a context not counting
// hops is returned unchanged.
func IncHops(ctx context.Context) context.Context {
	if hops, ok := ctx.Value(hopsKey{}).(int); ok {
		return context.WithValue(ctx, hopsKey{}, hops+1)
	}
	return ctx
}

// CheckContext reports ctx.Err() directly: context.Canceled or
// context.DeadlineExceeded, or nil if ctx is still live. Callers that need
// to stop early at the top of an RPC handler check this before doing work.
func CheckContext(ctx context.Context) error {
	return ctx.Err()
}
