package node

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"ChordDHT/internal/config"
	"ChordDHT/internal/peer"
	"ChordDHT/internal/ring"
)

func testMaint() config.MaintenanceConfig {
	return config.MaintenanceConfig{
		StabilizeInterval:      50 * time.Millisecond,
		FixFingersInterval:     50 * time.Millisecond,
		CheckPredecessorPeriod: 50 * time.Millisecond,
		RPCTimeout:             time.Second,
	}
}

// spawn brings up a node with a real listener and returns it along with a
// teardown func; the caller is responsible for CreateRing/Join and Start.
func spawn(t *testing.T, sp ring.Space) (*Node, func()) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, portStr, _ := net.SplitHostPort(lis.Addr().String())
	port, _ := strconv.Atoi(portStr)
	self := peer.Address{Host: host, Port: port}

	n := New(self, sp, 4, testMaint())
	ctx, cancel := context.WithCancel(context.Background())
	go n.Serve(ctx, lis)
	return n, func() { cancel(); lis.Close() }
}

func TestCreateRingSingleNodeIsItsOwnSuccessor(t *testing.T) {
	sp, _ := ring.NewSpace(160)
	n, stop := spawn(t, sp)
	defer stop()

	n.CreateRing()
	if n.State() != Joined {
		t.Fatalf("state = %v, want Joined", n.State())
	}
	succ, err := n.FindSuccessor(context.Background(), n.ID())
	if err != nil {
		t.Fatalf("FindSuccessor: %v", err)
	}
	if !succ.Equal(n.Self()) {
		t.Errorf("FindSuccessor(self.id) = %v, want self %v", succ, n.Self())
	}
}

func TestJoinInstallsSuccessorFromBootstrap(t *testing.T) {
	sp, _ := ring.NewSpace(160)
	a, stopA := spawn(t, sp)
	defer stopA()
	a.CreateRing()

	b, stopB := spawn(t, sp)
	defer stopB()

	if err := b.Join(context.Background(), a.Self()); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got := b.successor(); !got.Equal(a.Self()) {
		t.Errorf("b.successor() = %v, want %v", got, a.Self())
	}
}

func TestStabilizeConvergesTwoNodeRing(t *testing.T) {
	sp, _ := ring.NewSpace(160)
	a, stopA := spawn(t, sp)
	defer stopA()
	a.CreateRing()

	b, stopB := spawn(t, sp)
	defer stopB()
	if err := b.Join(context.Background(), a.Self()); err != nil {
		t.Fatalf("Join: %v", err)
	}

	// Several stabilize rounds on both sides should converge the ring:
	// each node's successor is the other, and each is the other's
	// predecessor.
	for i := 0; i < 5; i++ {
		b.stabilize()
		a.stabilize()
	}

	if got := a.successor(); !got.Equal(b.Self()) {
		t.Errorf("a.successor() = %v, want %v", got, b.Self())
	}
	if got := b.successor(); !got.Equal(a.Self()) {
		t.Errorf("b.successor() = %v, want %v", got, a.Self())
	}
	predA, ok := a.predecessorAddr()
	if !ok || !predA.Equal(b.Self()) {
		t.Errorf("a.predecessor = %v,%v want %v,true", predA, ok, b.Self())
	}
	predB, ok := b.predecessorAddr()
	if !ok || !predB.Equal(a.Self()) {
		t.Errorf("b.predecessor = %v,%v want %v,true", predB, ok, a.Self())
	}
}

func TestNotifyAdoptsUnknownPredecessor(t *testing.T) {
	sp, _ := ring.NewSpace(160)
	n, stop := spawn(t, sp)
	defer stop()
	n.CreateRing()

	candidate := peer.Address{Host: "10.0.0.7", Port: 4000}
	n.Notify(candidate)

	pred, ok := n.predecessorAddr()
	if !ok || !pred.Equal(candidate) {
		t.Errorf("predecessor = %v,%v want %v,true", pred, ok, candidate)
	}
}

// findCandidateID scans a handful of synthetic addresses for one whose ID
// satisfies want(id), so the two range tests below can construct a
// deterministic fixture without depending on OS-assigned ephemeral ports.
func findCandidateID(t *testing.T, sp ring.Space, want func(id ring.ID) bool) peer.Address {
	t.Helper()
	for port := 1; port < 256; port++ {
		cand := peer.Address{Host: "10.0.0.9", Port: port}
		if want(cand.ID(sp)) {
			return cand
		}
	}
	t.Fatal("no candidate address satisfies the requested ID predicate")
	return peer.Address{}
}

func TestNotifyAdoptsCandidateInsidePredecessorSelfRange(t *testing.T) {
	sp, _ := ring.NewSpace(8)
	n, stop := spawn(t, sp)
	defer stop()
	n.CreateRing()

	good := peer.Address{Host: "10.0.0.1", Port: 1}
	n.Notify(good)
	if pred, ok := n.predecessorAddr(); !ok || !pred.Equal(good) {
		t.Fatalf("predecessor after first notify = %v,%v, want %v,true", pred, ok, good)
	}

	fresh := findCandidateID(t, sp, func(id ring.ID) bool {
		return openRange(id, good.ID(sp), n.id)
	})

	n.Notify(fresh)
	pred, ok := n.predecessorAddr()
	if !ok || !pred.Equal(fresh) {
		t.Errorf("predecessor after in-range notify = %v,%v, want %v,true", pred, ok, fresh)
	}
}

func TestNotifyIgnoresCandidateOutsidePredecessorSelfRange(t *testing.T) {
	sp, _ := ring.NewSpace(8)
	n, stop := spawn(t, sp)
	defer stop()
	n.CreateRing()

	good := peer.Address{Host: "10.0.0.1", Port: 1}
	n.Notify(good)
	if pred, ok := n.predecessorAddr(); !ok || !pred.Equal(good) {
		t.Fatalf("predecessor after first notify = %v,%v, want %v,true", pred, ok, good)
	}

	stale := findCandidateID(t, sp, func(id ring.ID) bool {
		return !openRange(id, good.ID(sp), n.id)
	})

	n.Notify(stale)
	pred, ok := n.predecessorAddr()
	if !ok || !pred.Equal(good) {
		t.Errorf("predecessor after out-of-range notify = %v,%v, want %v,true (unchanged)", pred, ok, good)
	}
}

func TestDispatchGetSuccessorRoundTrip(t *testing.T) {
	sp, _ := ring.NewSpace(160)
	n, stop := spawn(t, sp)
	defer stop()
	n.CreateRing()

	reply, ok := n.dispatch("get_successor")
	if !ok {
		t.Fatal("dispatch reported protocol error")
	}
	if reply == "" {
		t.Fatal("expected a non-empty reply")
	}
}

func TestDispatchFindSuccessorRequiresOneArg(t *testing.T) {
	sp, _ := ring.NewSpace(160)
	n, stop := spawn(t, sp)
	defer stop()
	n.CreateRing()

	if _, ok := n.dispatch("find_successor"); ok {
		t.Error("dispatch should report a protocol error for a missing argument")
	}
	if _, ok := n.dispatch("find_successor not-a-number"); ok {
		t.Error("dispatch should report a protocol error for a malformed id")
	}
}

func TestDispatchWhitespaceOnlyLineIsProtocolError(t *testing.T) {
	sp, _ := ring.NewSpace(160)
	n, stop := spawn(t, sp)
	defer stop()
	n.CreateRing()

	// strings.Fields on an all-whitespace line returns an empty slice;
	// dispatch must report this as a protocol error rather than index
	// into it and panic.
	if _, ok := n.dispatch("   "); ok {
		t.Error("dispatch should report a protocol error for a whitespace-only line")
	}
}

func TestDispatchUnknownCommandIsProtocolError(t *testing.T) {
	sp, _ := ring.NewSpace(160)
	n, stop := spawn(t, sp)
	defer stop()
	n.CreateRing()

	if _, ok := n.dispatch("bogus"); ok {
		t.Error("dispatch should report a protocol error for an unknown command")
	}
}

func TestClosestPrecedingFingerFallsBackToSelf(t *testing.T) {
	sp, _ := ring.NewSpace(160)
	n, stop := spawn(t, sp)
	defer stop()
	n.CreateRing()

	got := n.closestPrecedingFinger(context.Background(), n.space.AddPow2(n.id, 5))
	if !got.Equal(n.Self()) {
		t.Errorf("closestPrecedingFinger with empty finger table = %v, want self", got)
	}
}
