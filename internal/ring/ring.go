// Package ring implements the modular identifier-space arithmetic that
// underlies the Chord ring: fixed-width identifiers, interval membership
// tests, and the hashing of addresses into identifiers.
package ring

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Space describes an identifier space of size 2^Bits.
//
// Identifiers are fixed-width big-endian byte slices of length ByteLen =
// ceil(Bits/8). When Bits is not a multiple of 8 the unused high-order bits
// of the first byte are always kept at zero.
type Space struct {
	Bits    int
	ByteLen int
}

// NewSpace builds the identifier space for the given bit width.
// Bits must be > 0; typical deployments use 8 (for small test rings) up to
// 160 (full SHA-1).
func NewSpace(bits int) (Space, error) {
	if bits <= 0 {
		return Space{}, fmt.Errorf("ring: invalid bit width %d (must be > 0)", bits)
	}
	return Space{Bits: bits, ByteLen: (bits + 7) / 8}, nil
}

// ID is an identifier in a Space, stored big-endian.
type ID []byte

// Zero returns the all-zero identifier for this space.
func (sp Space) Zero() ID { return make(ID, sp.ByteLen) }

func (sp Space) mask(id ID) {
	extra := sp.ByteLen*8 - sp.Bits
	if extra > 0 {
		id[0] &= byte(0xFF >> extra)
	}
}

// IDFromString derives an identifier from an arbitrary string (typically an
// address's "host:port") by truncating its SHA-1 digest to the space's
// width.
func (sp Space) IDFromString(s string) ID {
	h := sha1.Sum([]byte(s))
	buf := make(ID, sp.ByteLen)
	copy(buf, h[:min(sp.ByteLen, len(h))])
	sp.mask(buf)
	return buf
}

// FromUint64 truncates x to the space's width and returns it as an ID.
func (sp Space) FromUint64(x uint64) ID {
	id := make(ID, sp.ByteLen)
	for i := sp.ByteLen - 1; i >= 0 && x > 0; i-- {
		id[i] = byte(x & 0xFF)
		x >>= 8
	}
	sp.mask(id)
	return id
}

// FromBigInt reduces n modulo 2^Bits and returns it as an ID. Used when
// parsing a wire-format decimal identifier, which may arrive with more bits
// than the local space expects.
func (sp Space) FromBigInt(n *big.Int) ID {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(sp.Bits))
	reduced := new(big.Int).Mod(n, mod)
	id := make(ID, sp.ByteLen)
	reduced.FillBytes(id)
	sp.mask(id)
	return id
}

// AddPow2 computes (a + 2^i) mod 2^Bits — the start of finger i.
func (sp Space) AddPow2(a ID, i int) ID {
	shift := make(ID, sp.ByteLen)
	bitPos := sp.ByteLen*8 - 1 - i
	if bitPos >= 0 {
		shift[bitPos/8] = 1 << uint(7-bitPos%8)
	}
	return sp.AddMod(a, shift)
}

// AddMod computes (a + b) mod 2^Bits.
func (sp Space) AddMod(a, b ID) ID {
	res := make(ID, sp.ByteLen)
	carry := 0
	for i := sp.ByteLen - 1; i >= 0; i-- {
		sum := int(a[i]) + int(b[i]) + carry
		res[i] = byte(sum & 0xFF)
		carry = sum >> 8
	}
	sp.mask(res)
	return res
}

// ToHexString renders the identifier as a lowercase hex string.
func (x ID) ToHexString() string {
	if x == nil {
		return "<nil>"
	}
	return hex.EncodeToString(x)
}

// ToBigInt interprets the identifier as an unsigned big-endian integer.
func (x ID) ToBigInt() *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).SetBytes(x)
}

// Cmp compares two identifiers as unsigned big-endian integers.
func (x ID) Cmp(y ID) int { return bytes.Compare(x, y) }

// Equal reports whether x and y are the same identifier.
func (x ID) Equal(y ID) bool { return bytes.Equal(x, y) }

// InRange reports whether c lies on the half-open clockwise arc (a, b],
// i.e. strictly after a and up to and including b. If a == b the arc
// covers the whole ring and InRange always returns true — this is the
// convention spec.md's interval predicate is built on; closed/open variants
// are obtained by the caller nudging a or b by ±1 via Space.AddMod before
// calling InRange.
func InRange(c, a, b ID) bool {
	ac := a.Cmp(c)
	cb := c.Cmp(b)
	ab := a.Cmp(b)
	if ab == 0 {
		return true
	}
	if ab < 0 {
		return ac < 0 && cb <= 0
	}
	return ac < 0 || cb <= 0
}

// Distance returns (b - a) mod 2^Bits, the clockwise distance from a to b.
func Distance(sp Space, a, b ID) ID {
	// -a mod 2^Bits == (2^Bits - a); computed as two's complement of a,
	// then added to b.
	neg := make(ID, sp.ByteLen)
	carry := 1
	for i := sp.ByteLen - 1; i >= 0; i-- {
		v := int(^a[i]) + carry
		neg[i] = byte(v & 0xFF)
		carry = v >> 8
	}
	sp.mask(neg)
	return sp.AddMod(neg, b)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
