package peer

import "errors"

// Error kinds surfaced by peer RPC calls, per spec.md §7.
var (
	// ErrUnreachable covers any TCP failure or timeout talking to a
	// remote: refused connection, timeout, or reset. A malformed reply
	// carries ErrMalformedReply instead; IsUnreachable reports both.
	ErrUnreachable = errors.New("peer: unreachable")

	// ErrMalformedReply is returned when a reply cannot be parsed. The
	// caller treats it identically to ErrUnreachable (spec.md §7).
	ErrMalformedReply = errors.New("peer: malformed reply")

	// ErrNoPredecessor is a non-error sentinel: the remote reported no
	// predecessor (empty reply line), distinct from a transport failure.
	ErrNoPredecessor = errors.New("peer: remote has no predecessor")
)
