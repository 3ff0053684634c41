package peer

import (
	"encoding/json"
	"fmt"

	"ChordDHT/internal/logger"
	"ChordDHT/internal/ring"
)

// Address identifies a node by its network location. Two addresses are
// equal iff both fields match; addresses sort lexicographically on
// (Host, Port), which is only used for stable iteration in tests.
type Address struct {
	Host string
	Port int
}

// String renders the address as "host:port".
func (a Address) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Equal reports whether a and b name the same network location.
func (a Address) Equal(b Address) bool {
	return a.Host == b.Host && a.Port == b.Port
}

// Less orders addresses lexicographically on (Host, Port).
func (a Address) Less(b Address) bool {
	if a.Host != b.Host {
		return a.Host < b.Host
	}
	return a.Port < b.Port
}

// ID derives the address's identifier in the given space.
func (a Address) ID(sp ring.Space) ring.ID {
	return sp.IDFromString(a.String())
}

// Field renders the address as a structured logging field.
func (a Address) Field(key string) logger.Field {
	return logger.F(key, a.String())
}

// MarshalJSON encodes the address as the two-element array the wire
// protocol expects: ["host", port].
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{a.Host, a.Port})
}

// UnmarshalJSON decodes the two-element array ["host", port] form.
func (a *Address) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("peer: malformed address: %w", err)
	}
	if err := json.Unmarshal(pair[0], &a.Host); err != nil {
		return fmt.Errorf("peer: malformed address host: %w", err)
	}
	if err := json.Unmarshal(pair[1], &a.Port); err != nil {
		return fmt.Errorf("peer: malformed address port: %w", err)
	}
	return nil
}
