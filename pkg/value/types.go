package value

import (
	"encoding/binary"
	"fmt"
)

// Bool is the bool primitive value type.
type Bool bool

func (v Bool) Kind() Kind { return KindBool }
func (v Bool) Equal(o Value) bool {
	ov, ok := o.(Bool)
	return ok && v == ov
}
func (v Bool) Marshal() []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}
func (v Bool) String() string { return fmt.Sprintf("%t", bool(v)) }

func decodeBool(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("value: bool: short read")
	}
	return Bool(data[0] != 0), 1, nil
}

// Int8 / Uint8

type I8 int8
type U8 uint8

func (v I8) Kind() Kind             { return KindI8 }
func (v I8) Equal(o Value) bool     { ov, ok := o.(I8); return ok && v == ov }
func (v I8) Marshal() []byte        { return []byte{byte(v)} }
func (v I8) String() string         { return fmt.Sprintf("%d", int8(v)) }
func decodeI8(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("value: i8: short read")
	}
	return I8(int8(data[0])), 1, nil
}

func (v U8) Kind() Kind         { return KindU8 }
func (v U8) Equal(o Value) bool { ov, ok := o.(U8); return ok && v == ov }
func (v U8) Marshal() []byte    { return []byte{byte(v)} }
func (v U8) String() string     { return fmt.Sprintf("%d", uint8(v)) }
func decodeU8(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("value: u8: short read")
	}
	return U8(data[0]), 1, nil
}

// Int16 / Uint16

type I16 int16
type U16 uint16

func (v I16) Kind() Kind         { return KindI16 }
func (v I16) Equal(o Value) bool { ov, ok := o.(I16); return ok && v == ov }
func (v I16) Marshal() []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	return b
}
func (v I16) String() string { return fmt.Sprintf("%d", int16(v)) }
func decodeI16(data []byte) (Value, int, error) {
	if len(data) < 2 {
		return nil, 0, fmt.Errorf("value: i16: short read")
	}
	return I16(int16(binary.BigEndian.Uint16(data))), 2, nil
}

func (v U16) Kind() Kind         { return KindU16 }
func (v U16) Equal(o Value) bool { ov, ok := o.(U16); return ok && v == ov }
func (v U16) Marshal() []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	return b
}
func (v U16) String() string { return fmt.Sprintf("%d", uint16(v)) }
func decodeU16(data []byte) (Value, int, error) {
	if len(data) < 2 {
		return nil, 0, fmt.Errorf("value: u16: short read")
	}
	return U16(binary.BigEndian.Uint16(data)), 2, nil
}

// Int32 / Uint32

type I32 int32
type U32 uint32

func (v I32) Kind() Kind         { return KindI32 }
func (v I32) Equal(o Value) bool { ov, ok := o.(I32); return ok && v == ov }
func (v I32) Marshal() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}
func (v I32) String() string { return fmt.Sprintf("%d", int32(v)) }
func decodeI32(data []byte) (Value, int, error) {
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("value: i32: short read")
	}
	return I32(int32(binary.BigEndian.Uint32(data))), 4, nil
}

func (v U32) Kind() Kind         { return KindU32 }
func (v U32) Equal(o Value) bool { ov, ok := o.(U32); return ok && v == ov }
func (v U32) Marshal() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}
func (v U32) String() string { return fmt.Sprintf("%d", uint32(v)) }
func decodeU32(data []byte) (Value, int, error) {
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("value: u32: short read")
	}
	return U32(binary.BigEndian.Uint32(data)), 4, nil
}

// Int64 / Uint64

type I64 int64
type U64 uint64

func (v I64) Kind() Kind         { return KindI64 }
func (v I64) Equal(o Value) bool { ov, ok := o.(I64); return ok && v == ov }
func (v I64) Marshal() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}
func (v I64) String() string { return fmt.Sprintf("%d", int64(v)) }
func decodeI64(data []byte) (Value, int, error) {
	if len(data) < 8 {
		return nil, 0, fmt.Errorf("value: i64: short read")
	}
	return I64(int64(binary.BigEndian.Uint64(data))), 8, nil
}

func (v U64) Kind() Kind         { return KindU64 }
func (v U64) Equal(o Value) bool { ov, ok := o.(U64); return ok && v == ov }
func (v U64) Marshal() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}
func (v U64) String() string { return fmt.Sprintf("%d", uint64(v)) }
func decodeU64(data []byte) (Value, int, error) {
	if len(data) < 8 {
		return nil, 0, fmt.Errorf("value: u64: short read")
	}
	return U64(binary.BigEndian.Uint64(data)), 8, nil
}

// I128 / U128 represent 128-bit integers as two 64-bit halves, since Go
// has no native int128.
type I128 struct {
	Hi int64
	Lo uint64
}
type U128 struct {
	Hi uint64
	Lo uint64
}

func (v I128) Kind() Kind { return KindI128 }
func (v I128) Equal(o Value) bool {
	ov, ok := o.(I128)
	return ok && v == ov
}
func (v I128) Marshal() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], uint64(v.Hi))
	binary.BigEndian.PutUint64(b[8:], v.Lo)
	return b
}
func (v I128) String() string { return fmt.Sprintf("i128(%d:%d)", v.Hi, v.Lo) }
func decodeI128(data []byte) (Value, int, error) {
	if len(data) < 16 {
		return nil, 0, fmt.Errorf("value: i128: short read")
	}
	return I128{Hi: int64(binary.BigEndian.Uint64(data[:8])), Lo: binary.BigEndian.Uint64(data[8:16])}, 16, nil
}

func (v U128) Kind() Kind { return KindU128 }
func (v U128) Equal(o Value) bool {
	ov, ok := o.(U128)
	return ok && v == ov
}
func (v U128) Marshal() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], v.Hi)
	binary.BigEndian.PutUint64(b[8:], v.Lo)
	return b
}
func (v U128) String() string { return fmt.Sprintf("u128(%d:%d)", v.Hi, v.Lo) }
func decodeU128(data []byte) (Value, int, error) {
	if len(data) < 16 {
		return nil, 0, fmt.Errorf("value: u128: short read")
	}
	return U128{Hi: binary.BigEndian.Uint64(data[:8]), Lo: binary.BigEndian.Uint64(data[8:16])}, 16, nil
}

// String is a UTF-8 string value, length-prefixed with a big-endian
// uint32 when serialised.
type String string

func (v String) Kind() Kind { return KindString }
func (v String) Equal(o Value) bool {
	ov, ok := o.(String)
	return ok && v == ov
}
func (v String) Marshal() []byte {
	b := make([]byte, 4+len(v))
	binary.BigEndian.PutUint32(b, uint32(len(v)))
	copy(b[4:], v)
	return b
}
func (v String) String() string { return string(v) }
func decodeString(data []byte) (Value, int, error) {
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("value: string: short read")
	}
	n := binary.BigEndian.Uint32(data)
	if uint64(len(data)) < 4+uint64(n) {
		return nil, 0, fmt.Errorf("value: string: truncated body")
	}
	return String(data[4 : 4+n]), int(4 + n), nil
}

// Colour is a 3-byte RGB triple.
type Colour [3]byte

func (v Colour) Kind() Kind { return KindColour }
func (v Colour) Equal(o Value) bool {
	ov, ok := o.(Colour)
	return ok && v == ov
}
func (v Colour) Marshal() []byte { return []byte{v[0], v[1], v[2]} }
func (v Colour) String() string  { return fmt.Sprintf("#%02x%02x%02x", v[0], v[1], v[2]) }
func decodeColour(data []byte) (Value, int, error) {
	if len(data) < 3 {
		return nil, 0, fmt.Errorf("value: colour: short read")
	}
	return Colour{data[0], data[1], data[2]}, 3, nil
}

// UserID identifies a user by their durable user id string. It is its
// own value kind (rather than reusing String) so state payloads can be
// told apart from arbitrary text at a glance and in the registry.
type UserID string

func (v UserID) Kind() Kind { return KindUserID }
func (v UserID) Equal(o Value) bool {
	ov, ok := o.(UserID)
	return ok && v == ov
}
func (v UserID) Marshal() []byte {
	b := make([]byte, 4+len(v))
	binary.BigEndian.PutUint32(b, uint32(len(v)))
	copy(b[4:], v)
	return b
}
func (v UserID) String() string { return string(v) }
func decodeUserID(data []byte) (Value, int, error) {
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("value: userid: short read")
	}
	n := binary.BigEndian.Uint32(data)
	if uint64(len(data)) < 4+uint64(n) {
		return nil, 0, fmt.Errorf("value: userid: truncated body")
	}
	return UserID(data[4 : 4+n]), int(4 + n), nil
}
