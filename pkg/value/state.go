package value

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"

	"github.com/cuemby/bffhd/pkg/oid"
)

// Entry is one (OID, Value) pair in a State.
type Entry struct {
	OID   oid.OID
	Value Value
}

// State is an ordered, immutable sequence of (OID, Value) entries plus a
// 64-bit content hash (spec.md §3). States are built exclusively through
// Builder; there is no public constructor that skips hashing.
type State struct {
	entries []Entry
	hash    uint64
}

// Entries returns the ordered entries. The returned slice must not be
// mutated by the caller.
func (s State) Entries() []Entry { return s.entries }

// Hash returns the 64-bit content hash computed by the Builder.
func (s State) Hash() uint64 { return s.hash }

// Get returns the first entry tagged with the given OID, following the
// convention that a resource's state carries at most one entry per OID.
func (s State) Get(o oid.OID) (Value, bool) {
	for _, e := range s.entries {
		if e.OID.Equal(o) {
			return e.Value, true
		}
	}
	return nil, false
}

// Equal reports equality by content hash, matching spec.md §3 invariant
// (ii): two States compare equal iff their hashes compare equal iff their
// contents compare structurally equal. Hash equality is taken as the
// operative definition; Builder.Add folds every byte of OID and value
// payload into the hash in order, so this is correct as long as the
// underlying hash (§4.1: "fixed algorithm, stable across runs") does not
// collide for the inputs actually produced by registered value types.
func (s State) Equal(other State) bool {
	return s.hash == other.hash
}

// Builder incrementally constructs a State. Two Builders fed the same
// (oid, value) sequence in the same order produce equal States
// (spec.md §4.1).
type Builder struct {
	entries []Entry
	hasher  hash.Hash64
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{hasher: fnv.New64a()}
}

// Add folds (o, v) into the hash and appends the entry.
func (b *Builder) Add(o oid.OID, v Value) *Builder {
	enc := o.Encode()
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(enc)))
	b.hasher.Write(lenBuf[:])
	b.hasher.Write(enc)
	payload := v.Marshal()
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	b.hasher.Write(lenBuf[:])
	b.hasher.Write(payload)
	b.entries = append(b.entries, Entry{OID: o, Value: v})
	return b
}

// Finish snapshots the hash and returns the immutable State. The Builder
// may continue to be used; Finish does not reset its state.
func (b *Builder) Finish() State {
	entries := make([]Entry, len(b.entries))
	copy(entries, b.entries)
	return State{entries: entries, hash: b.hasher.Sum64()}
}

// Marshal encodes a State in the self-describing wire format (spec.md
// §4.1): a big-endian uint32 entry count, then for each entry a one-byte
// OID length, the OID bytes, and the vtable-specific payload, followed by
// the big-endian uint64 hash.
func (s State) Marshal() []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(s.entries)))
	for _, e := range s.entries {
		enc := e.OID.Encode()
		out = append(out, byte(len(enc)))
		out = append(out, enc...)
		out = append(out, e.Value.Marshal()...)
	}
	var hashBuf [8]byte
	binary.BigEndian.PutUint64(hashBuf[:], s.hash)
	out = append(out, hashBuf[:]...)
	return out
}

// Unmarshal decodes a State from the wire format produced by Marshal. A
// value whose OID is not registered is a recoverable error that aborts
// loading this State only (spec.md §4.1, §9).
func Unmarshal(data []byte) (State, error) {
	if len(data) < 4 {
		return State{}, fmt.Errorf("value: state: short header")
	}
	count := binary.BigEndian.Uint32(data)
	data = data[4:]

	entries := make([]Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < 1 {
			return State{}, fmt.Errorf("value: state: truncated entry %d", i)
		}
		oidLen := int(data[0])
		data = data[1:]
		if len(data) < oidLen {
			return State{}, fmt.Errorf("value: state: truncated oid in entry %d", i)
		}
		o, consumed, err := oid.Decode(data[:oidLen])
		if err != nil {
			return State{}, fmt.Errorf("value: state: entry %d: %w", i, err)
		}
		if consumed != oidLen {
			return State{}, fmt.Errorf("value: state: entry %d: oid length mismatch", i)
		}
		data = data[oidLen:]

		vt, ok := Lookup(o)
		if !ok {
			return State{}, fmt.Errorf("value: state: entry %d: unregistered oid %s", i, o.String())
		}
		v, n, err := vt.Decode(data)
		if err != nil {
			return State{}, fmt.Errorf("value: state: entry %d: %w", i, err)
		}
		data = data[n:]
		entries = append(entries, Entry{OID: o, Value: v})
	}

	if len(data) < 8 {
		return State{}, fmt.Errorf("value: state: missing trailing hash")
	}
	hash := binary.BigEndian.Uint64(data)

	return State{entries: entries, hash: hash}, nil
}
