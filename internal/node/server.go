package node

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"

	"ChordDHT/internal/ctxutil"
	"ChordDHT/internal/logger"
	"ChordDHT/internal/peer"
	"ChordDHT/internal/ring"
	"ChordDHT/internal/telemetry/lookuptrace"
)

// Serve accepts connections on lis and dispatches each one against this
// node's state, per spec.md §6. It blocks until lis is closed or ctx is
// cancelled, at which point it stops accepting and returns at once without
// waiting for in-flight handlers; those are tracked by the node's wait
// group, which Shutdown waits on.
func (n *Node) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.handleConn(conn)
		}()
	}
}

// handleConn reads exactly one request line, dispatches it, writes exactly
// one reply line, and closes — per §4.2/§6. A connection carrying only
// "\r\n" (empty command) is a ping and is closed with no reply. Unknown or
// malformed commands are closed without writing any reply.
func (n *Node) handleConn(conn net.Conn) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return // ping
	}

	reply, ok := n.dispatch(line)
	if !ok {
		n.lgr.Debug("dispatch: protocol error", logger.F("line", line))
		return
	}
	if reply != "" {
		conn.Write([]byte(reply + "\r\n"))
	} else {
		conn.Write([]byte("\r\n"))
	}
}

// dispatch parses command [args...] and executes it against local state.
// The second return value is false for ProtocolError (unknown command or
// malformed arguments), signalling the caller to close without a reply.
func (n *Node) dispatch(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}
	cmd := fields[0]
	args := fields[1:]

	ctx, cancel := context.WithTimeout(context.Background(), n.maint.RPCTimeout)
	defer cancel()

	switch cmd {
	case "get_successor":
		return encodeAddr(n.successor()), true

	case "get_predecessor":
		pred, ok := n.predecessorAddr()
		if !ok {
			return "", true
		}
		return encodeAddr(pred), true

	case "get_successors":
		list := n.successorList()
		b, err := json.Marshal(list)
		if err != nil {
			return "", false
		}
		return string(b), true

	case "find_successor":
		if len(args) != 1 {
			return "", false
		}
		id, err := parseID(n, args[0])
		if err != nil {
			return "", false
		}
		hopCtx, cancel2 := ctxutil.NewContext(ctxutil.WithHops(), ctxutil.WithTimeout(n.maint.RPCTimeout))
		defer cancel2()
		hopCtx = lookuptrace.WithLookup(hopCtx)
		addr, err := n.handleFindSuccessor(hopCtx, id)
		if err != nil {
			return "", false
		}
		return encodeAddr(addr), true

	case "closest_preceding_finger":
		if len(args) != 1 {
			return "", false
		}
		id, err := parseID(n, args[0])
		if err != nil {
			return "", false
		}
		return encodeAddr(n.handleClosestPrecedingFinger(ctx, id)), true

	case "notify":
		if len(args) != 2 {
			return "", false
		}
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return "", false
		}
		n.Notify(peer.Address{Host: args[0], Port: port})
		return "", true

	default:
		return "", false
	}
}

func encodeAddr(a peer.Address) string {
	b, _ := json.Marshal(a)
	return string(b)
}

func parseID(n *Node, s string) (ring.ID, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("node: malformed identifier %q", s)
	}
	return n.space.FromBigInt(v), nil
}
