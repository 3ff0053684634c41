package bootstrap

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"ChordDHT/internal/peer"
)

// Static implements Bootstrap over a fixed, operator-supplied list of
// "host:port" peers, typically from config.BootstrapConfig.Peers.
type Static struct {
	peers []peer.Address
}

// NewStatic parses a list of "host:port" strings into a static bootstrap
// source.
func NewStatic(peers []string) (*Static, error) {
	addrs := make([]peer.Address, 0, len(peers))
	for _, p := range peers {
		host, portStr, err := net.SplitHostPort(p)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: invalid static peer %q: %w", p, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: invalid static peer port %q: %w", p, err)
		}
		addrs = append(addrs, peer.Address{Host: host, Port: port})
	}
	return &Static{peers: addrs}, nil
}

// Discover returns the static list of peers.
func (s *Static) Discover(ctx context.Context) ([]peer.Address, error) {
	return s.peers, nil
}

// Register is a no-op: a static list has nowhere to publish to.
func (s *Static) Register(ctx context.Context, self peer.Address) error { return nil }

// Deregister is a no-op for the same reason.
func (s *Static) Deregister(ctx context.Context, self peer.Address) error { return nil }
