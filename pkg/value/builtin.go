package value

import "github.com/cuemby/bffhd/pkg/oid"

// Builtin OIDs live under the private arc 1.3.6.1.4.1.0.1.<n> — arc 0
// under enterprise numbers is unassigned and reserved here for bffhd's
// own compile-time-fixed value types (spec.md §4.1: "the set of value
// types is closed").
func builtinOID(n uint64) oid.OID {
	o, err := oid.New(1, 3, 6, 1, 4, 1, 0, 1, n)
	if err != nil {
		panic(err)
	}
	return o
}

func init() {
	Register(VTable{OID: builtinOID(1), Kind: KindBool, Name: "bool", Decode: decodeBool})
	Register(VTable{OID: builtinOID(2), Kind: KindI8, Name: "i8", Decode: decodeI8})
	Register(VTable{OID: builtinOID(3), Kind: KindU8, Name: "u8", Decode: decodeU8})
	Register(VTable{OID: builtinOID(4), Kind: KindI16, Name: "i16", Decode: decodeI16})
	Register(VTable{OID: builtinOID(5), Kind: KindU16, Name: "u16", Decode: decodeU16})
	Register(VTable{OID: builtinOID(6), Kind: KindI32, Name: "i32", Decode: decodeI32})
	Register(VTable{OID: builtinOID(7), Kind: KindU32, Name: "u32", Decode: decodeU32})
	Register(VTable{OID: builtinOID(8), Kind: KindI64, Name: "i64", Decode: decodeI64})
	Register(VTable{OID: builtinOID(9), Kind: KindU64, Name: "u64", Decode: decodeU64})
	Register(VTable{OID: builtinOID(10), Kind: KindI128, Name: "i128", Decode: decodeI128})
	Register(VTable{OID: builtinOID(11), Kind: KindU128, Name: "u128", Decode: decodeU128})
	Register(VTable{OID: builtinOID(12), Kind: KindString, Name: "string", Decode: decodeString})
	Register(VTable{OID: builtinOID(13), Kind: KindColour, Name: "colour", Decode: decodeColour})
	Register(VTable{OID: builtinOID(14), Kind: KindUserID, Name: "user-id", Decode: decodeUserID})
}

// Well-known OIDs for the builtin types, exported so callers building
// State entries don't need to know the arc scheme.
var (
	OIDBool    = builtinOID(1)
	OIDI8      = builtinOID(2)
	OIDU8      = builtinOID(3)
	OIDI16     = builtinOID(4)
	OIDU16     = builtinOID(5)
	OIDI32     = builtinOID(6)
	OIDU32     = builtinOID(7)
	OIDI64     = builtinOID(8)
	OIDU64     = builtinOID(9)
	OIDI128    = builtinOID(10)
	OIDU128    = builtinOID(11)
	OIDString  = builtinOID(12)
	OIDColour  = builtinOID(13)
	OIDUserID  = builtinOID(14)
)
