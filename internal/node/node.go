// Package node implements the Chord node state machine: ring membership,
// finger-table routing, and the periodic maintenance protocols that keep
// the ring correct under churn.
package node

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ChordDHT/internal/config"
	"ChordDHT/internal/logger"
	"ChordDHT/internal/peer"
	"ChordDHT/internal/ring"
)

// State names the node's lifecycle stage.
type State int32

const (
	// Fresh is the state from construction until join completes.
	Fresh State = iota
	// Joined is the state once the listener is up and maintenance loops
	// are running.
	Joined
	// Terminated is the final state once shutdown has completed.
	Terminated
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Joined:
		return "joined"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Node holds the ring-membership and routing state of a single participant:
// its successor list, predecessor, and finger table, all guarded by a
// single mutex. No outbound RPC is ever issued while mu is held — handlers
// snapshot the needed state, release, call remotely, then reacquire to
// commit, per the critical-section rule.
type Node struct {
	self  peer.Address
	id    ring.ID
	space ring.Space

	mu          sync.Mutex
	successors  []peer.Address // successors[0] is the immediate successor
	predecessor *peer.Address  // nil means unknown
	fingers     []peer.Address // fingers[i], or zero-value Address if unset
	fixCursor   int

	succListLen int

	pool *peer.Pool
	lgr  logger.Logger

	maint config.MaintenanceConfig

	state   atomic.Int32
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lisDone chan struct{}
}

// Option configures a Node at construction time.
type Option func(*Node)

// WithLogger sets the logger used for structured diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(n *Node) {
		if l != nil {
			n.lgr = l
		}
	}
}

// New constructs a node bound to self, with its own finger table and
// successor list sized per sp and succListLen. The node starts in the
// Fresh state; call Join or CreateRing to bring it onto a ring.
func New(self peer.Address, sp ring.Space, succListLen int, maint config.MaintenanceConfig, opts ...Option) *Node {
	n := &Node{
		self:        self,
		id:          self.ID(sp),
		space:       sp,
		successors:  make([]peer.Address, 0, succListLen),
		fingers:     make([]peer.Address, sp.Bits),
		succListLen: succListLen,
		maint:       maint,
		lgr:         &logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(n)
	}
	n.pool = peer.New(maint.RPCTimeout, peer.WithPoolLogger(n.lgr))
	n.lgr = n.lgr.Named("node").With(n.self.Field("self"))
	return n
}

// Self returns this node's own address.
func (n *Node) Self() peer.Address { return n.self }

// ID returns this node's identifier.
func (n *Node) ID() ring.ID { return n.id }

// Space returns the identifier space this node operates in.
func (n *Node) Space() ring.Space { return n.space }

// State reports the node's current lifecycle stage.
func (n *Node) State() State { return State(n.state.Load()) }

// successor returns the immediate successor, or self if the list is empty
// (single-node ring).
func (n *Node) successor() peer.Address {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.successorLocked()
}

func (n *Node) successorLocked() peer.Address {
	if len(n.successors) == 0 {
		return n.self
	}
	return n.successors[0]
}

// successorList returns a copy of the current successor list.
func (n *Node) successorList() []peer.Address {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]peer.Address, len(n.successors))
	copy(out, n.successors)
	return out
}

// setSuccessorList installs a new successor list, truncated to succListLen
// and with self removed if present (I1: successor_list[0] != self unless
// alone).
func (n *Node) setSuccessorList(list []peer.Address) {
	filtered := make([]peer.Address, 0, n.succListLen)
	for _, a := range list {
		if a.Equal(n.self) {
			continue
		}
		filtered = append(filtered, a)
		if len(filtered) == n.succListLen {
			break
		}
	}
	n.mu.Lock()
	n.successors = filtered
	n.mu.Unlock()
}

// predecessorAddr returns the current predecessor and whether one is known.
func (n *Node) predecessorAddr() (peer.Address, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.predecessor == nil {
		return peer.Address{}, false
	}
	return *n.predecessor, true
}

func (n *Node) setPredecessor(a peer.Address) {
	n.mu.Lock()
	n.predecessor = &a
	n.mu.Unlock()
}

func (n *Node) clearPredecessor() {
	n.mu.Lock()
	n.predecessor = nil
	n.mu.Unlock()
}

// finger returns finger table entry i, or self if unset.
func (n *Node) finger(i int) peer.Address {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fingers[i].Host == "" {
		return n.self
	}
	return n.fingers[i]
}

func (n *Node) setFinger(i int, a peer.Address) {
	n.mu.Lock()
	n.fingers[i] = a
	n.mu.Unlock()
}

func (n *Node) clearFinger(i int) {
	n.mu.Lock()
	n.fingers[i] = peer.Address{}
	n.mu.Unlock()
}

// fingerSnapshot returns a copy of the full finger table, with unset
// entries resolved to self.
func (n *Node) fingerSnapshot() []peer.Address {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]peer.Address, len(n.fingers))
	for i, a := range n.fingers {
		if a.Host == "" {
			out[i] = n.self
		} else {
			out[i] = a
		}
	}
	return out
}

// CreateRing initializes this node as the sole member of a brand new ring:
// predecessor unknown, successor list empty (which successor() reads as
// self), all fingers unset (which resolve to self). Per the successor-list open question (spec design
// notes), the node is considered Joined immediately since there is nothing
// to stabilize yet.
func (n *Node) CreateRing() {
	n.mu.Lock()
	n.predecessor = nil
	n.successors = n.successors[:0]
	for i := range n.fingers {
		n.fingers[i] = peer.Address{}
	}
	n.mu.Unlock()
	n.state.Store(int32(Joined))
	n.lgr.Info("ring created", logger.F("id", n.id.ToHexString()))
}

// Join contacts bootstrap to resolve this node's successor, installing it
// as successors[0]. The remaining successor-list slots and finger table
// are populated by the first rounds of stabilize/fix_fingers; per the
// open question on successor-list freshness, the node does not enter
// Joined until that first stabilize round completes (see Start).
func (n *Node) Join(ctx context.Context, bootstrap peer.Address) error {
	bp := n.pool.Get(bootstrap)
	succ, err := bp.FindSuccessor(ctx, n.space, n.id)
	if err != nil {
		return fmt.Errorf("node: join via %s: %w", bootstrap, err)
	}
	n.mu.Lock()
	n.predecessor = nil
	n.successors = append(n.successors[:0], succ)
	n.mu.Unlock()
	n.lgr.Info("joined via bootstrap", logger.F("bootstrap", bootstrap.String()), logger.F("successor", succ.String()))
	return nil
}

// Start brings the node fully online: it runs one stabilize round
// synchronously (so a fresh node's successor list is non-empty before it
// is marked Joined, per spec's successor-list freshness note), then
// launches the three periodic maintenance loops and returns once they are
// running. It does not start the RPC listener; pair it with Serve.
func (n *Node) Start(ctx context.Context) {
	if n.state.Load() != int32(Joined) {
		n.stabilize()
		n.state.Store(int32(Joined))
	}

	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	n.wg.Add(3)
	go n.loop(ctx, n.maint.StabilizeInterval, n.stabilize)
	go n.loop(ctx, n.maint.FixFingersInterval, n.fixFingers)
	go n.loop(ctx, n.maint.CheckPredecessorPeriod, n.checkPredecessor)
}

func (n *Node) loop(ctx context.Context, interval time.Duration, task func()) {
	defer n.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task()
		}
	}
}

// Shutdown cancels the maintenance loops and waits for them to drain,
// then marks the node Terminated. It does not close the RPC listener;
// callers running Serve should close their own listener first so new
// connections stop arriving.
func (n *Node) Shutdown() {
	if n.cancel != nil {
		n.cancel()
	}
	n.wg.Wait()
	n.state.Store(int32(Terminated))
	n.lgr.Info("node shut down")
}
