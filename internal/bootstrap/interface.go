// Package bootstrap resolves the initial set of peer addresses a fresh
// node uses to join an existing ring, and optionally publishes this
// node's own address for others to discover.
package bootstrap

import (
	"context"

	"ChordDHT/internal/peer"
)

// Bootstrap discovers candidate ring members and, where the mechanism
// supports it, publishes this node's own presence.
type Bootstrap interface {
	// Discover returns known peer addresses to attempt joining through.
	Discover(ctx context.Context) ([]peer.Address, error)
	// Register advertises self so other nodes can discover it. A no-op
	// for mechanisms with no registry to publish to (e.g. a static list).
	Register(ctx context.Context, self peer.Address) error
	// Deregister withdraws a previous Register call.
	Deregister(ctx context.Context, self peer.Address) error
}
