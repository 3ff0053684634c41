package peer

import (
	"sync"
	"time"

	"ChordDHT/internal/logger"
)

// Pool caches Peer handles by address so repeated calls to the same remote
// reuse the same per-handle mutex and logger, instead of allocating a new
// handle on every call. It does not pool TCP connections themselves — each
// RPC still opens, uses, and closes its own connection (spec.md §4.2) — it
// only avoids re-allocating the handle wrapper.
type Pool struct {
	lgr     logger.Logger
	timeout time.Duration

	mu    sync.RWMutex
	peers map[string]*Peer
}

// New creates a pool whose handles use the given per-call timeout.
func New(timeout time.Duration, opts ...PoolOption) *Pool {
	p := &Pool{
		lgr:     &logger.NopLogger{},
		timeout: timeout,
		peers:   make(map[string]*Peer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PoolOption configures a Pool at construction time.
type PoolOption func(*Pool)

// WithPoolLogger sets the logger handed to every Peer the pool creates.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.lgr = l
		}
	}
}

// Get returns the cached handle for addr, creating one if necessary.
func (p *Pool) Get(addr Address) *Peer {
	key := addr.String()

	p.mu.RLock()
	peer, ok := p.peers[key]
	p.mu.RUnlock()
	if ok {
		return peer
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if peer, ok = p.peers[key]; ok {
		return peer
	}
	peer = New(addr, p.timeout, WithLogger(p.lgr))
	p.peers[key] = peer
	return peer
}

// Evict drops the cached handle for addr, if any. Call this after an RPC
// reports ErrUnreachable so the next attempt doesn't reuse stale state.
func (p *Pool) Evict(addr Address) {
	p.mu.Lock()
	delete(p.peers, addr.String())
	p.mu.Unlock()
}
