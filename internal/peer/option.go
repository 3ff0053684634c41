package peer

import "ChordDHT/internal/logger"

// Option configures a Peer at construction time. A Pool takes PoolOption
// values instead.
type Option func(*Peer)

// WithLogger sets the logger used for debug-level call tracing.
func WithLogger(l logger.Logger) Option {
	return func(p *Peer) {
		if l != nil {
			p.lgr = l
		}
	}
}
