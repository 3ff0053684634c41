package node

import (
	"context"
	"errors"
	"fmt"

	"ChordDHT/internal/ctxutil"
	"ChordDHT/internal/logger"
	"ChordDHT/internal/peer"
	"ChordDHT/internal/ring"
	"ChordDHT/internal/telemetry/lookuptrace"
)

// ErrRingEmpty is raised when an operation requires a successor but none is
// reachable — expected only during shutdown or catastrophic failure.
var ErrRingEmpty = errors.New("node: ring empty, no reachable successor")

// FindSuccessor resolves the node responsible for id by walking the ring:
// if id falls in (self, successor], return the successor directly;
// otherwise ask the closest preceding finger to continue the search, and
// forward the query to it. A failure along the forwarding hop evicts the
// offending finger and retries from the current node's own state.
func (n *Node) FindSuccessor(ctx context.Context, id ring.ID) (peer.Address, error) {
	ctx, span := lookuptrace.StartSpan(ctx, "find_successor")
	defer span.End()

	for {
		succ := n.successor()
		if ring.InRange(id, n.id, succ.ID(n.space)) {
			if hops := ctxutil.HopsFromContext(ctx); hops >= 0 {
				n.lgr.Debug("find_successor: resolved", logger.F("hops", hops))
			}
			return succ, nil
		}

		next := n.closestPrecedingFinger(ctx, id)
		if next.Equal(n.self) {
			// Fallback: no finger strictly precedes id, so our own
			// successor is the best we can offer even though id isn't
			// in range — the successor list may simply be stale.
			return succ, nil
		}

		ctx = ctxutil.IncHops(ctx)
		p := n.pool.Get(next)
		result, err := p.FindSuccessor(ctx, n.space, id)
		if err == nil {
			return result, nil
		}
		if !peer.IsUnreachable(err) {
			return peer.Address{}, err
		}

		n.lgr.Debug("find_successor: forwarding hop failed, evicting finger",
			logger.F("hop", next.String()), logger.F("err", err))
		n.clearFingersPointingTo(next)
		n.pool.Evict(next)
	}
}

// clearFingersPointingTo resets every finger entry referencing addr back to
// unset (which resolves to self), per §4.4's "remove n' from the finger
// table (set that entry to self)".
func (n *Node) clearFingersPointingTo(addr peer.Address) {
	n.mu.Lock()
	for i, f := range n.fingers {
		if f.Equal(addr) {
			n.fingers[i] = peer.Address{}
		}
	}
	n.mu.Unlock()
}

// closestPrecedingFinger scans the finger table from the highest index
// down, returning the first entry whose id lies in the open arc
// (self, id) and which answers ping. Dead fingers found along the way are
// cleared in place. If none qualifies, self is returned.
func (n *Node) closestPrecedingFinger(ctx context.Context, id ring.ID) peer.Address {
	fingers := n.fingerSnapshot()
	for i := len(fingers) - 1; i >= 0; i-- {
		f := fingers[i]
		if f.Equal(n.self) {
			continue
		}
		fid := f.ID(n.space)
		if !openRange(fid, n.id, id) {
			continue
		}
		if err := n.pool.Get(f).Ping(ctx); err != nil {
			n.lgr.Debug("closest_preceding_finger: dead finger", logger.F("index", i), logger.F("addr", f.String()))
			n.clearFinger(i)
			continue
		}
		return f
	}
	return n.self
}

// openRange reports whether c lies strictly between a and b, clockwise,
// excluding both endpoints.
func openRange(c, a, b ring.ID) bool {
	if c.Equal(a) || c.Equal(b) {
		return false
	}
	return ring.InRange(c, a, b)
}

// shiftSuccessor drops the dead successors[0] and promotes the next
// surviving entry. Returns false if the list is left empty.
func (n *Node) shiftSuccessor() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.successors) == 0 {
		return false
	}
	n.successors = n.successors[1:]
	return len(n.successors) > 0
}

// handleFindSuccessor is the RPC-side entry point used by the server
// dispatcher; it only differs from FindSuccessor in its error formatting
// for the wire protocol.
func (n *Node) handleFindSuccessor(ctx context.Context, id ring.ID) (peer.Address, error) {
	addr, err := n.FindSuccessor(ctx, id)
	if err != nil {
		return peer.Address{}, fmt.Errorf("find_successor %s: %w", id.ToHexString(), err)
	}
	return addr, nil
}

// handleClosestPrecedingFinger is the RPC-side entry point for
// closest_preceding_finger.
func (n *Node) handleClosestPrecedingFinger(ctx context.Context, id ring.ID) peer.Address {
	return n.closestPrecedingFinger(ctx, id)
}

// Notify handles an incoming advisory notification: if predecessor is
// unknown, or candidate lies in the open arc (predecessor, self), adopt it.
// Otherwise the candidate is stale and is ignored.
func (n *Node) Notify(candidate peer.Address) {
	cur, ok := n.predecessorAddr()
	if !ok {
		n.setPredecessor(candidate)
		n.lgr.Debug("notify: adopted predecessor (was unknown)", logger.F("candidate", candidate.String()))
		return
	}
	cid := candidate.ID(n.space)
	if openRange(cid, cur.ID(n.space), n.id) {
		n.setPredecessor(candidate)
		n.lgr.Debug("notify: adopted predecessor", logger.F("candidate", candidate.String()), logger.F("previous", cur.String()))
	}
}
