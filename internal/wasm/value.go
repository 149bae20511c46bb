package wasm

import "fmt"

// ValKind tags the four numeric kinds a Value can hold. The encoding reuses
// the WebAssembly binary format's value-type byte so a Block's signature byte
// can be stored directly as a ValKind (with KindNone standing in for the
// block-type byte 0x40, "no result").
type ValKind byte

const (
	KindI32  ValKind = 0x7f
	KindI64  ValKind = 0x7e
	KindF32  ValKind = 0x7d
	KindF64  ValKind = 0x7c
	KindNone ValKind = 0x40
)

func (k ValKind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindNone:
		return "none"
	default:
		return fmt.Sprintf("valkind(%#x)", byte(k))
	}
}

// nibble returns the 4-bit code used to pack a ValKind into a type mask.
func (k ValKind) nibble() uint64 { return uint64(k) & 0xf }

// Value is a tagged union over the four WebAssembly numeric kinds. The 8-byte
// payload is reinterpreted, never converted, by the *.reinterpret_* opcodes.
type Value struct {
	Kind ValKind
	bits uint64
}

func I32(v int32) Value  { return Value{Kind: KindI32, bits: uint64(uint32(v))} }
func U32(v uint32) Value { return Value{Kind: KindI32, bits: uint64(v)} }
func I64(v int64) Value  { return Value{Kind: KindI64, bits: uint64(v)} }
func U64(v uint64) Value { return Value{Kind: KindI64, bits: v} }
func F32(v float32) Value {
	return Value{Kind: KindF32, bits: uint64(f32bits(v))}
}
func F64(v float64) Value {
	return Value{Kind: KindF64, bits: f64bits(v)}
}

func (v Value) I32() int32     { return int32(uint32(v.bits)) }
func (v Value) U32() uint32    { return uint32(v.bits) }
func (v Value) I64() int64     { return int64(v.bits) }
func (v Value) U64() uint64    { return v.bits }
func (v Value) F32() float32   { return f32frombits(uint32(v.bits)) }
func (v Value) F64() float64   { return f64frombits(v.bits) }
func (v Value) Bits() uint64   { return v.bits }
func (v Value) IsZero() bool   { return v.bits == 0 }
func WithBits(k ValKind, bits uint64) Value { return Value{Kind: k, bits: bits} }

// ZeroValue returns the default value for a local of the given kind.
func ZeroValue(k ValKind) Value { return Value{Kind: k} }

func (v Value) String() string {
	switch v.Kind {
	case KindI32:
		return fmt.Sprintf("%#x:i32", v.U32())
	case KindI64:
		return fmt.Sprintf("%#x:i64", v.U64())
	case KindF32:
		return fmt.Sprintf("%g:f32", v.F32())
	case KindF64:
		return fmt.Sprintf("%g:f64", v.F64())
	default:
		return fmt.Sprintf("<%s %#x>", v.Kind, v.bits)
	}
}
