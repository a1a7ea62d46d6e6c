// Package oid implements ITU-style dotted-decimal Object Identifiers
// (spec.md §3), used as the compact stable type tag for state values.
//
// Adapted from the vendored oid crate referenced in the original source
// (bffhd/utils/oid.rs) into idiomatic Go: arcs are a []uint64 rather than
// a hand-rolled variable-length integer type, and there is no unsafe
// pointer work — see DESIGN.md on the "no unsafe trait-object casting"
// redesign note.
package oid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// OID is an immutable Object Identifier: a sequence of non-negative arcs.
type OID struct {
	arcs []uint64
}

var (
	ErrTooShort    = errors.New("oid: need at least two arcs")
	ErrArcOverflow = errors.New("oid: first arc must be 0, 1 or 2")
	ErrSecondArc   = errors.New("oid: second arc must be < 40 when first arc is 0 or 1")
	ErrEmptyBytes  = errors.New("oid: empty encoding")
	ErrTruncated   = errors.New("oid: truncated base-128 sequence")
)

// New constructs an OID from arcs, validating the first two per the ITU
// root-arc rules.
func New(arcs ...uint64) (OID, error) {
	if len(arcs) < 2 {
		return OID{}, ErrTooShort
	}
	if arcs[0] > 2 {
		return OID{}, ErrArcOverflow
	}
	if arcs[0] < 2 && arcs[1] >= 40 {
		return OID{}, ErrSecondArc
	}
	cp := make([]uint64, len(arcs))
	copy(cp, arcs)
	return OID{arcs: cp}, nil
}

// Parse reads the canonical dotted-decimal string form, e.g. "1.3.6.1".
func Parse(s string) (OID, error) {
	parts := strings.Split(s, ".")
	arcs := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return OID{}, fmt.Errorf("oid: parse arc %q: %w", p, err)
		}
		arcs[i] = v
	}
	return New(arcs...)
}

// String renders the canonical dotted-decimal form.
func (o OID) String() string {
	parts := make([]string, len(o.arcs))
	for i, a := range o.arcs {
		parts[i] = strconv.FormatUint(a, 10)
	}
	return strings.Join(parts, ".")
}

// Arcs returns a copy of the underlying arc sequence.
func (o OID) Arcs() []uint64 {
	cp := make([]uint64, len(o.arcs))
	copy(cp, o.arcs)
	return cp
}

// Equal reports structural equality.
func (o OID) Equal(other OID) bool {
	if len(o.arcs) != len(other.arcs) {
		return false
	}
	for i := range o.arcs {
		if o.arcs[i] != other.arcs[i] {
			return false
		}
	}
	return true
}

// Encode renders the canonical binary form: the first two arcs packed as
// the single value 40*a+b, followed by each remaining arc, every value as a big-endian
// base-128 sequence with the continuation bit set on every byte but the
// last.
func (o OID) Encode() []byte {
	out := make([]byte, 0, len(o.arcs)+2)
	out = appendBase128(out, 40*o.arcs[0]+o.arcs[1])
	for _, arc := range o.arcs[2:] {
		out = appendBase128(out, arc)
	}
	return out
}

func appendBase128(out []byte, v uint64) []byte {
	// Collect base-128 digits, most significant first.
	var digits [10]byte // enough for a 64-bit value
	n := 0
	if v == 0 {
		digits[0] = 0
		n = 1
	} else {
		for v > 0 {
			digits[n] = byte(v & 0x7f)
			v >>= 7
			n++
		}
	}
	start := len(out)
	out = append(out, make([]byte, n)...)
	for i := 0; i < n; i++ {
		b := digits[n-1-i]
		if i != n-1 {
			b |= 0x80
		}
		out[start+i] = b
	}
	return out
}

// Decode parses the canonical binary form produced by Encode, returning
// the OID and the number of bytes consumed.
func Decode(b []byte) (OID, int, error) {
	if len(b) == 0 {
		return OID{}, 0, ErrEmptyBytes
	}
	combined, consumed, err := readBase128(b)
	if err != nil {
		return OID{}, 0, err
	}
	var a, bb uint64
	if combined < 80 {
		a = combined / 40
		bb = combined % 40
	} else {
		a = 2
		bb = combined - 80
	}
	arcs := []uint64{a, bb}
	i := consumed
	for i < len(b) {
		v, consumed, err := readBase128(b[i:])
		if err != nil {
			return OID{}, 0, err
		}
		arcs = append(arcs, v)
		i += consumed
	}
	out, err := New(arcs...)
	if err != nil {
		return OID{}, 0, err
	}
	return out, i, nil
}

func readBase128(b []byte) (uint64, int, error) {
	var v uint64
	for i, byt := range b {
		v = v<<7 | uint64(byt&0x7f)
		if byt&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrTruncated
}
