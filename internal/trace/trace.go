package trace

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"ChordDHT/internal/ring"
)

type traceKey struct{}

// GenerateTraceID creates a globally unique trace ID in the form
// <nodeID>-<ULID>.
func GenerateTraceID(nodeID string) string {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(t), entropy)
	return fmt.Sprintf("%s-%s", nodeID, id.String())
}

// AttachTraceID generates a trace ID rooted at nodeID and attaches it to
// ctx, returning both.
func AttachTraceID(ctx context.Context, nodeID ring.ID) (context.Context, string) {
	traceID := GenerateTraceID(nodeID.ToHexString())
	return context.WithValue(ctx, traceKey{}, traceID), traceID
}

// GetTraceID retrieves the trace ID from ctx, or "" if none is attached.
func GetTraceID(ctx context.Context) string {
	if v := ctx.Value(traceKey{}); v != nil {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return ""
}
