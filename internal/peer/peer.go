// Package peer implements the Chord wire protocol: a peer handle opens a
// fresh TCP connection per call, exchanges one line-delimited request and
// one line-delimited reply, and closes — per spec.md §4.2 and §6.
package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"ChordDHT/internal/logger"
	"ChordDHT/internal/ring"
)

// Peer is a handle to a single remote node, addressed by its network
// location. All calls are serialized by mu so concurrent callers never
// interleave on the wire — spec.md §4.2's "serialized per-peer-handle"
// requirement.
type Peer struct {
	addr    Address
	timeout time.Duration
	lgr     logger.Logger

	mu sync.Mutex
}

// New creates a handle to the remote node at addr. timeout bounds every
// individual RPC (dial + write + read), per spec.md §5's "bounded timeout
// (default 5s)".
func New(addr Address, timeout time.Duration, opts ...Option) *Peer {
	p := &Peer{
		addr:    addr,
		timeout: timeout,
		lgr:     &logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Addr returns the address this handle represents.
func (p *Peer) Addr() Address { return p.addr }

// dial opens a fresh connection bounded by p.timeout and ctx's deadline,
// whichever is sooner.
func (p *Peer) dial(ctx context.Context) (net.Conn, error) {
	deadline := time.Now().Add(p.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	dialer := net.Dialer{Timeout: time.Until(deadline)}
	conn, err := dialer.DialContext(ctx, "tcp", p.addr.String())
	if err != nil {
		p.lgr.Debug("dial failed", logger.F("addr", p.addr.String()), logger.F("err", err))
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnreachable, p.addr, err)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return conn, nil
}

// call opens a connection, writes one request line, reads one reply line,
// and closes — the "decorator-style" scoped acquisition spec.md §9
// describes, collapsed into a single helper since Go has no method
// decorators: every exported RPC method below is a thin wrapper around it.
func (p *Peer) call(ctx context.Context, line string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := p.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := writeLine(conn, line); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", ErrUnreachable, p.addr, err)
	}
	reply, err := readLine(conn)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrUnreachable, p.addr, err)
	}
	return reply, nil
}

// Ping probes liveness: an empty request line, answered by the connection
// being accepted and the write succeeding — per spec.md §4.2, the server
// closes without a reply line, so Ping does not wait to read one.
func (p *Peer) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := p.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := writeLine(conn, ""); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrUnreachable, p.addr, err)
	}
	return nil
}

// GetSuccessor asks the remote for its immediate successor.
func (p *Peer) GetSuccessor(ctx context.Context) (Address, error) {
	reply, err := p.call(ctx, "get_successor")
	if err != nil {
		return Address{}, err
	}
	return decodeAddress(reply)
}

// GetPredecessor asks the remote for its predecessor. Returns
// ErrNoPredecessor if the remote reports it has none (an empty reply line).
func (p *Peer) GetPredecessor(ctx context.Context) (Address, error) {
	reply, err := p.call(ctx, "get_predecessor")
	if err != nil {
		return Address{}, err
	}
	if reply == "" {
		return Address{}, ErrNoPredecessor
	}
	return decodeAddress(reply)
}

// GetSuccessors asks the remote for its full successor list. May return an
// empty list if the remote has just joined (spec.md §9 open question).
func (p *Peer) GetSuccessors(ctx context.Context) ([]Address, error) {
	reply, err := p.call(ctx, "get_successors")
	if err != nil {
		return nil, err
	}
	return decodeAddressList(reply)
}

// FindSuccessor asks the remote to resolve id via its own routing state.
func (p *Peer) FindSuccessor(ctx context.Context, sp ring.Space, id ring.ID) (Address, error) {
	reply, err := p.call(ctx, fmt.Sprintf("find_successor %s", id.ToBigInt().String()))
	if err != nil {
		return Address{}, err
	}
	return decodeAddress(reply)
}

// ClosestPrecedingFinger asks the remote for the highest finger it knows
// that precedes id.
func (p *Peer) ClosestPrecedingFinger(ctx context.Context, id ring.ID) (Address, error) {
	reply, err := p.call(ctx, fmt.Sprintf("closest_preceding_finger %s", id.ToBigInt().String()))
	if err != nil {
		return Address{}, err
	}
	return decodeAddress(reply)
}

// Notify informs the remote that self believes it might be its
// predecessor. Advisory and idempotent: safe to retry under timeout.
func (p *Peer) Notify(ctx context.Context, self Address) error {
	_, err := p.call(ctx, fmt.Sprintf("notify %s %d", self.Host, self.Port))
	return err
}

// IsUnreachable reports whether err denotes a transport failure (including
// a malformed reply, which spec.md §7 treats identically).
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrMalformedReply)
}
