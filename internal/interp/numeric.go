package interp

import (
	"math"
	"math/bits"

	"github.com/stealthrocket/wasmc/internal/leb128"
	"github.com/stealthrocket/wasmc/internal/wasm"
)

func boolValue(b bool) wasm.Value {
	if b {
		return wasm.I32(1)
	}
	return wasm.I32(0)
}

// execTest implements i32.eqz/i64.eqz.
func (e *Engine) execTest(op wasm.Op) {
	switch op {
	case wasm.OpI32Eqz:
		e.push(boolValue(e.popI32() == 0))
	case wasm.OpI64Eqz:
		e.push(boolValue(e.popI64() == 0))
	}
}

// execCompare implements the 32 comparison opcodes.
func (e *Engine) execCompare(op wasm.Op) {
	switch op {
	case wasm.OpI32Eq:
		b, a := e.popI32(), e.popI32()
		e.push(boolValue(a == b))
	case wasm.OpI32Ne:
		b, a := e.popI32(), e.popI32()
		e.push(boolValue(a != b))
	case wasm.OpI32LtS:
		b, a := e.popI32(), e.popI32()
		e.push(boolValue(a < b))
	case wasm.OpI32LtU:
		b, a := e.popU32(), e.popU32()
		e.push(boolValue(a < b))
	case wasm.OpI32GtS:
		b, a := e.popI32(), e.popI32()
		e.push(boolValue(a > b))
	case wasm.OpI32GtU:
		b, a := e.popU32(), e.popU32()
		e.push(boolValue(a > b))
	case wasm.OpI32LeS:
		b, a := e.popI32(), e.popI32()
		e.push(boolValue(a <= b))
	case wasm.OpI32LeU:
		b, a := e.popU32(), e.popU32()
		e.push(boolValue(a <= b))
	case wasm.OpI32GeS:
		b, a := e.popI32(), e.popI32()
		e.push(boolValue(a >= b))
	case wasm.OpI32GeU:
		b, a := e.popU32(), e.popU32()
		e.push(boolValue(a >= b))

	case wasm.OpI64Eq:
		b, a := e.popI64(), e.popI64()
		e.push(boolValue(a == b))
	case wasm.OpI64Ne:
		b, a := e.popI64(), e.popI64()
		e.push(boolValue(a != b))
	case wasm.OpI64LtS:
		b, a := e.popI64(), e.popI64()
		e.push(boolValue(a < b))
	case wasm.OpI64LtU:
		b, a := e.popU64(), e.popU64()
		e.push(boolValue(a < b))
	case wasm.OpI64GtS:
		b, a := e.popI64(), e.popI64()
		e.push(boolValue(a > b))
	case wasm.OpI64GtU:
		b, a := e.popU64(), e.popU64()
		e.push(boolValue(a > b))
	case wasm.OpI64LeS:
		b, a := e.popI64(), e.popI64()
		e.push(boolValue(a <= b))
	case wasm.OpI64LeU:
		b, a := e.popU64(), e.popU64()
		e.push(boolValue(a <= b))
	case wasm.OpI64GeS:
		b, a := e.popI64(), e.popI64()
		e.push(boolValue(a >= b))
	case wasm.OpI64GeU:
		b, a := e.popU64(), e.popU64()
		e.push(boolValue(a >= b))

	case wasm.OpF32Eq:
		b, a := e.popF32(), e.popF32()
		e.push(boolValue(a == b))
	case wasm.OpF32Ne:
		b, a := e.popF32(), e.popF32()
		e.push(boolValue(a != b))
	case wasm.OpF32Lt:
		b, a := e.popF32(), e.popF32()
		e.push(boolValue(a < b))
	case wasm.OpF32Gt:
		b, a := e.popF32(), e.popF32()
		e.push(boolValue(a > b))
	case wasm.OpF32Le:
		b, a := e.popF32(), e.popF32()
		e.push(boolValue(a <= b))
	case wasm.OpF32Ge:
		b, a := e.popF32(), e.popF32()
		e.push(boolValue(a >= b))

	case wasm.OpF64Eq:
		b, a := e.popF64(), e.popF64()
		e.push(boolValue(a == b))
	case wasm.OpF64Ne:
		b, a := e.popF64(), e.popF64()
		e.push(boolValue(a != b))
	case wasm.OpF64Lt:
		b, a := e.popF64(), e.popF64()
		e.push(boolValue(a < b))
	case wasm.OpF64Gt:
		b, a := e.popF64(), e.popF64()
		e.push(boolValue(a > b))
	case wasm.OpF64Le:
		b, a := e.popF64(), e.popF64()
		e.push(boolValue(a <= b))
	case wasm.OpF64Ge:
		b, a := e.popF64(), e.popF64()
		e.push(boolValue(a >= b))
	}
}

// execIntArith implements the integer unary/binary arithmetic opcodes,
// including the documented trap rules from spec.md §4.5.
func (e *Engine) execIntArith(op wasm.Op) error {
	switch op {
	case wasm.OpI32Clz:
		e.push(wasm.I32(int32(bits.LeadingZeros32(e.popU32()))))
	case wasm.OpI32Ctz:
		e.push(wasm.I32(int32(bits.TrailingZeros32(e.popU32()))))
	case wasm.OpI32Popcnt:
		e.push(wasm.I32(int32(bits.OnesCount32(e.popU32()))))
	case wasm.OpI32Add:
		b, a := e.popU32(), e.popU32()
		e.push(wasm.U32(a + b))
	case wasm.OpI32Sub:
		b, a := e.popU32(), e.popU32()
		e.push(wasm.U32(a - b))
	case wasm.OpI32Mul:
		b, a := e.popU32(), e.popU32()
		e.push(wasm.U32(a * b))
	case wasm.OpI32DivS:
		b, a := e.popI32(), e.popI32()
		if b == 0 {
			return trap(IntegerDivideByZero, "")
		}
		if a == math.MinInt32 && b == -1 {
			return trap(IntegerOverflow, "")
		}
		e.push(wasm.I32(a / b))
	case wasm.OpI32DivU:
		b, a := e.popU32(), e.popU32()
		if b == 0 {
			return trap(IntegerDivideByZero, "")
		}
		e.push(wasm.U32(a / b))
	case wasm.OpI32RemS:
		b, a := e.popI32(), e.popI32()
		if b == 0 {
			return trap(IntegerDivideByZero, "")
		}
		if a == math.MinInt32 && b == -1 {
			e.push(wasm.I32(0))
		} else {
			e.push(wasm.I32(a % b))
		}
	case wasm.OpI32RemU:
		b, a := e.popU32(), e.popU32()
		if b == 0 {
			return trap(IntegerDivideByZero, "")
		}
		e.push(wasm.U32(a % b))
	case wasm.OpI32And:
		b, a := e.popU32(), e.popU32()
		e.push(wasm.U32(a & b))
	case wasm.OpI32Or:
		b, a := e.popU32(), e.popU32()
		e.push(wasm.U32(a | b))
	case wasm.OpI32Xor:
		b, a := e.popU32(), e.popU32()
		e.push(wasm.U32(a ^ b))
	case wasm.OpI32Shl:
		b, a := e.popU32(), e.popU32()
		e.push(wasm.U32(a << (b & 31)))
	case wasm.OpI32ShrS:
		b, a := e.popU32(), e.popI32()
		e.push(wasm.I32(a >> (b & 31)))
	case wasm.OpI32ShrU:
		b, a := e.popU32(), e.popU32()
		e.push(wasm.U32(a >> (b & 31)))
	case wasm.OpI32Rotl:
		b, a := e.popU32(), e.popU32()
		e.push(wasm.U32(leb128.RotateLeft32(a, b)))
	case wasm.OpI32Rotr:
		b, a := e.popU32(), e.popU32()
		e.push(wasm.U32(leb128.RotateRight32(a, b)))

	case wasm.OpI64Clz:
		e.push(wasm.I64(int64(bits.LeadingZeros64(e.popU64()))))
	case wasm.OpI64Ctz:
		e.push(wasm.I64(int64(bits.TrailingZeros64(e.popU64()))))
	case wasm.OpI64Popcnt:
		e.push(wasm.I64(int64(bits.OnesCount64(e.popU64()))))
	case wasm.OpI64Add:
		b, a := e.popU64(), e.popU64()
		e.push(wasm.U64(a + b))
	case wasm.OpI64Sub:
		b, a := e.popU64(), e.popU64()
		e.push(wasm.U64(a - b))
	case wasm.OpI64Mul:
		b, a := e.popU64(), e.popU64()
		e.push(wasm.U64(a * b))
	case wasm.OpI64DivS:
		b, a := e.popI64(), e.popI64()
		if b == 0 {
			return trap(IntegerDivideByZero, "")
		}
		if e.isOverflowingDivision(a, b) {
			return trap(IntegerOverflow, "")
		}
		e.push(wasm.I64(a / b))
	case wasm.OpI64DivU:
		b, a := e.popU64(), e.popU64()
		if b == 0 {
			return trap(IntegerDivideByZero, "")
		}
		e.push(wasm.U64(a / b))
	case wasm.OpI64RemS:
		b, a := e.popI64(), e.popI64()
		if b == 0 {
			return trap(IntegerDivideByZero, "")
		}
		if e.isOverflowingDivision(a, b) {
			e.push(wasm.I64(0))
		} else {
			e.push(wasm.I64(a % b))
		}
	case wasm.OpI64RemU:
		b, a := e.popU64(), e.popU64()
		if b == 0 {
			return trap(IntegerDivideByZero, "")
		}
		e.push(wasm.U64(a % b))
	case wasm.OpI64And:
		b, a := e.popU64(), e.popU64()
		e.push(wasm.U64(a & b))
	case wasm.OpI64Or:
		b, a := e.popU64(), e.popU64()
		e.push(wasm.U64(a | b))
	case wasm.OpI64Xor:
		b, a := e.popU64(), e.popU64()
		e.push(wasm.U64(a ^ b))
	case wasm.OpI64Shl:
		b, a := e.popU64(), e.popU64()
		e.push(wasm.U64(a << (b & 63)))
	case wasm.OpI64ShrS:
		b, a := e.popU64(), e.popI64()
		e.push(wasm.I64(a >> (b & 63)))
	case wasm.OpI64ShrU:
		b, a := e.popU64(), e.popU64()
		e.push(wasm.U64(a >> (b & 63)))
	case wasm.OpI64Rotl:
		b, a := e.popU64(), e.popU64()
		e.push(wasm.U64(leb128.RotateLeft64(a, b)))
	case wasm.OpI64Rotr:
		b, a := e.popU64(), e.popU64()
		e.push(wasm.U64(leb128.RotateRight64(a, b)))
	}
	return nil
}

// isOverflowingDivision implements the i64.div_s/rem_s overflow check. By
// default it compares against the true 64-bit minimum; with
// Opts.LegacyI64OverflowCheck it instead reproduces the reference
// implementation's comparison against the 32-bit constant 0x80000000, which
// flags -0x80000000 / -1 (a representable result) as an overflow and misses
// the real INT64_MIN / -1 overflow.
func (e *Engine) isOverflowingDivision(a, b int64) bool {
	if b != -1 {
		return false
	}
	if e.Opts.LegacyI64OverflowCheck {
		return a == -0x80000000
	}
	return a == math.MinInt64
}

// execFloatArith implements the float unary/binary arithmetic opcodes.
func (e *Engine) execFloatArith(op wasm.Op) error {
	switch op {
	case wasm.OpF32Abs:
		e.push(wasm.F32(float32(math.Abs(float64(e.popF32())))))
	case wasm.OpF32Neg:
		e.push(wasm.F32(-e.popF32()))
	case wasm.OpF32Ceil:
		e.push(wasm.F32(float32(math.Ceil(float64(e.popF32())))))
	case wasm.OpF32Floor:
		e.push(wasm.F32(float32(math.Floor(float64(e.popF32())))))
	case wasm.OpF32Trunc:
		e.push(wasm.F32(float32(math.Trunc(float64(e.popF32())))))
	case wasm.OpF32Nearest:
		e.push(wasm.F32(float32(math.RoundToEven(float64(e.popF32())))))
	case wasm.OpF32Sqrt:
		e.push(wasm.F32(float32(math.Sqrt(float64(e.popF32())))))
	case wasm.OpF32Add:
		b, a := e.popF32(), e.popF32()
		e.push(wasm.F32(a + b))
	case wasm.OpF32Sub:
		b, a := e.popF32(), e.popF32()
		e.push(wasm.F32(a - b))
	case wasm.OpF32Mul:
		b, a := e.popF32(), e.popF32()
		e.push(wasm.F32(a * b))
	case wasm.OpF32Div:
		b, a := e.popF32(), e.popF32()
		if e.Opts.LegacyFloatDivTraps && b == 0 {
			return trap(IntegerDivideByZero, "")
		}
		e.push(wasm.F32(a / b))
	case wasm.OpF32Min:
		b, a := e.popF32(), e.popF32()
		e.push(wasm.F32(float32(fMin(float64(a), float64(b)))))
	case wasm.OpF32Max:
		b, a := e.popF32(), e.popF32()
		e.push(wasm.F32(float32(fMax(float64(a), float64(b)))))
	case wasm.OpF32Copysign:
		b, a := e.popF32(), e.popF32()
		e.push(wasm.F32(float32(math.Copysign(float64(a), float64(b)))))

	case wasm.OpF64Abs:
		e.push(wasm.F64(math.Abs(e.popF64())))
	case wasm.OpF64Neg:
		e.push(wasm.F64(-e.popF64()))
	case wasm.OpF64Ceil:
		e.push(wasm.F64(math.Ceil(e.popF64())))
	case wasm.OpF64Floor:
		e.push(wasm.F64(math.Floor(e.popF64())))
	case wasm.OpF64Trunc:
		e.push(wasm.F64(math.Trunc(e.popF64())))
	case wasm.OpF64Nearest:
		e.push(wasm.F64(math.RoundToEven(e.popF64())))
	case wasm.OpF64Sqrt:
		e.push(wasm.F64(math.Sqrt(e.popF64())))
	case wasm.OpF64Add:
		b, a := e.popF64(), e.popF64()
		e.push(wasm.F64(a + b))
	case wasm.OpF64Sub:
		b, a := e.popF64(), e.popF64()
		e.push(wasm.F64(a - b))
	case wasm.OpF64Mul:
		b, a := e.popF64(), e.popF64()
		e.push(wasm.F64(a * b))
	case wasm.OpF64Div:
		b, a := e.popF64(), e.popF64()
		if e.Opts.LegacyFloatDivTraps && b == 0 {
			return trap(IntegerDivideByZero, "")
		}
		e.push(wasm.F64(a / b))
	case wasm.OpF64Min:
		b, a := e.popF64(), e.popF64()
		e.push(wasm.F64(fMin(a, b)))
	case wasm.OpF64Max:
		b, a := e.popF64(), e.popF64()
		e.push(wasm.F64(fMax(a, b)))
	case wasm.OpF64Copysign:
		b, a := e.popF64(), e.popF64()
		e.push(wasm.F64(math.Copysign(a, b)))
	}
	return nil
}

// fMin implements WebAssembly's min: NaN-propagating, and for equal-valued
// ±0.0 returns the negative operand.
func fMin(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) {
			return a
		}
		return b
	}
	return math.Min(a, b)
}

// fMax implements WebAssembly's max: NaN-propagating, and for equal-valued
// ±0.0 returns the positive operand.
func fMax(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) {
			return b
		}
		return a
	}
	return math.Max(a, b)
}
