// Package value implements the polymorphic Value Registry and the State
// Value Model (spec.md §4.1): a small, compile-time-fixed set of typed
// leaf values tagged by OID, and an ordered, hashable, immutable sequence
// of (OID, Value) entries used as both input and output resource state.
//
// The original source reconstructs trait-object pointers for
// deserialisation via hand-rolled unsafe vtable casts (bffhd/resources/
// state/value.rs). Per the redesign note in spec.md §9 ("prefer an
// explicit tagged enumeration of known value variants"), this package
// instead keeps one Go type per primitive kind and a registry of plain
// decode functions keyed by OID — no unsafe, no dynamic plugin loading.
package value

import (
	"fmt"
	"sync"

	"github.com/cuemby/bffhd/pkg/oid"
)

// Kind tags which concrete Go type a Value holds.
type Kind uint8

const (
	KindBool Kind = iota
	KindI8
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindI128
	KindU128
	KindString
	KindColour
	KindUserID
)

// Value is the interface every registered value type implements.
type Value interface {
	Kind() Kind
	// Equal reports structural equality against another Value of the
	// same concrete type.
	Equal(other Value) bool
	// Marshal encodes the type-specific payload (without the leading OID).
	Marshal() []byte
	String() string
}

// Decoder reconstructs a Value from its type-specific payload, returning
// the value and the number of bytes consumed.
type Decoder func(data []byte) (Value, int, error)

// VTable is one entry in the Value Registry.
type VTable struct {
	OID     oid.OID
	Kind    Kind
	Name    string
	Decode  Decoder
}

type registry struct {
	mu      sync.RWMutex
	byOID   map[string]VTable
}

var global = &registry{byOID: make(map[string]VTable)}

// Register adds an entry to the Value Registry. It is intended to be
// called only from package init() functions at process start; a duplicate
// OID is a fatal startup error, matching spec.md §4.1.
func Register(v VTable) {
	global.mu.Lock()
	defer global.mu.Unlock()
	key := v.OID.String()
	if _, exists := global.byOID[key]; exists {
		panic(fmt.Sprintf("value: duplicate OID registration for %s (%s)", key, v.Name))
	}
	global.byOID[key] = v
}

// Lookup finds the vtable registered for an OID.
func Lookup(o oid.OID) (VTable, bool) {
	global.mu.RLock()
	defer global.mu.RUnlock()
	v, ok := global.byOID[o.String()]
	return v, ok
}
