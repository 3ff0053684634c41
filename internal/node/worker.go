package node

import (
	"context"

	"ChordDHT/internal/logger"
	"ChordDHT/internal/peer"
)

// stabilize fixes the successor pointer and notifies the true successor of
// this node's existence. Run synchronously once at startup and then on
// every StabilizeInterval tick.
func (n *Node) stabilize() {
	ctx, cancel := context.WithTimeout(context.Background(), n.maint.RPCTimeout)
	defer cancel()

	succ := n.successor()
	if succ.Equal(n.self) {
		// Alone on the ring: the only way to learn of a newcomer is our
		// own predecessor field, set by an incoming notify. There is no
		// remote successor to query yet, so this is a local read rather
		// than the self-dial the general case below would otherwise be.
		// The newcomer, now our successor, is then notified of us.
		if pred, ok := n.predecessorAddr(); ok {
			n.setSuccessorList([]peer.Address{pred})
			if err := n.pool.Get(pred).Notify(ctx, n.self); err != nil {
				n.lgr.Debug("stabilize: notify failed", logger.F("successor", pred.String()), logger.F("err", err))
			}
		}
		return
	}

	sp := n.pool.Get(succ)
	if err := sp.Ping(ctx); err != nil && peer.IsUnreachable(err) {
		n.lgr.Warn("stabilize: successor unreachable, evicting", logger.F("successor", succ.String()))
		n.pool.Evict(succ)
		if !n.shiftSuccessor() {
			n.lgr.Warn("stabilize: successor list exhausted, reverting to single-node ring")
			n.mu.Lock()
			n.successors = n.successors[:0]
			n.mu.Unlock()
		}
		return
	}

	x, err := sp.GetPredecessor(ctx)
	switch {
	case err == nil:
		if openRange(x.ID(n.space), n.id, succ.ID(n.space)) {
			n.mu.Lock()
			if len(n.successors) > 0 {
				n.successors[0] = x
			} else {
				n.successors = append(n.successors, x)
			}
			n.mu.Unlock()
			succ = x
			sp = n.pool.Get(succ)
		}
	case peer.IsUnreachable(err):
		n.lgr.Debug("stabilize: get_predecessor failed", logger.F("successor", succ.String()), logger.F("err", err))
	default:
		// ErrNoPredecessor: successor genuinely has none yet, nothing to adopt.
	}

	succs, err := sp.GetSuccessors(ctx)
	if err == nil {
		merged := append([]peer.Address{succ}, succs...)
		n.setSuccessorList(merged)
	} else {
		n.lgr.Debug("stabilize: get_successors failed", logger.F("successor", succ.String()), logger.F("err", err))
	}

	if err := sp.Notify(ctx, n.self); err != nil {
		n.lgr.Debug("stabilize: notify failed", logger.F("successor", succ.String()), logger.F("err", err))
	}
}

// fixFingers advances the fix-fingers cursor by one and refreshes that
// single finger table entry via a self-originated find_successor lookup.
// A failed lookup leaves the entry unchanged, to be retried next tick.
func (n *Node) fixFingers() {
	n.mu.Lock()
	n.fixCursor = (n.fixCursor + 1) % n.space.Bits
	i := n.fixCursor
	n.mu.Unlock()

	start := n.space.AddPow2(n.id, i)
	ctx, cancel := context.WithTimeout(context.Background(), n.maint.RPCTimeout)
	defer cancel()

	addr, err := n.FindSuccessor(ctx, start)
	if err != nil {
		n.lgr.Debug("fix_fingers: lookup failed", logger.F("index", i), logger.F("err", err))
		return
	}
	n.setFinger(i, addr)
}

// checkPredecessor pings the current predecessor, clearing it to unknown
// if unreachable. This is the sole mechanism by which a failed
// predecessor is forgotten; its replacement arrives via a later notify.
func (n *Node) checkPredecessor() {
	pred, ok := n.predecessorAddr()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.maint.RPCTimeout)
	defer cancel()

	if err := n.pool.Get(pred).Ping(ctx); err != nil && peer.IsUnreachable(err) {
		n.lgr.Warn("check_predecessor: predecessor unreachable, clearing", logger.F("predecessor", pred.String()))
		n.pool.Evict(pred)
		n.clearPredecessor()
	}
}

