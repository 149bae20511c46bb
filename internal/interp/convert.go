package interp

import (
	"math"

	"github.com/stealthrocket/wasmc/internal/leb128"
	"github.com/stealthrocket/wasmc/internal/wasm"
)

// execConvert implements the 25 MVP numeric conversion opcodes (wrapping,
// trapping float-to-int truncation, int-to-float conversion, float
// demotion/promotion, and bit reinterpretation) plus the five
// sign-extension operators.
func (e *Engine) execConvert(op wasm.Op) error {
	switch op {
	case wasm.OpI32WrapI64:
		e.push(wasm.I32(int32(e.popI64())))

	case wasm.OpI32TruncF32S:
		v, err := truncToInt(float64(e.popF32()), -2147483648, 2147483647)
		if err != nil {
			return err
		}
		e.push(wasm.I32(int32(v)))
	case wasm.OpI32TruncF32U:
		v, err := truncToUint(float64(e.popF32()), 4294967295)
		if err != nil {
			return err
		}
		e.push(wasm.U32(uint32(v)))
	case wasm.OpI32TruncF64S:
		v, err := truncToInt(e.popF64(), -2147483648, 2147483647)
		if err != nil {
			return err
		}
		e.push(wasm.I32(int32(v)))
	case wasm.OpI32TruncF64U:
		v, err := truncToUint(e.popF64(), 4294967295)
		if err != nil {
			return err
		}
		e.push(wasm.U32(uint32(v)))

	case wasm.OpI64ExtendI32S:
		e.push(wasm.I64(int64(e.popI32())))
	case wasm.OpI64ExtendI32U:
		e.push(wasm.U64(uint64(e.popU32())))

	case wasm.OpI64TruncF32S:
		v, err := truncToInt(float64(e.popF32()), math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		e.push(wasm.I64(int64(v)))
	case wasm.OpI64TruncF32U:
		v, err := truncToUint(float64(e.popF32()), math.MaxUint64)
		if err != nil {
			return err
		}
		e.push(wasm.U64(uint64(v)))
	case wasm.OpI64TruncF64S:
		v, err := truncToInt(e.popF64(), math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		e.push(wasm.I64(int64(v)))
	case wasm.OpI64TruncF64U:
		v, err := truncToUint(e.popF64(), math.MaxUint64)
		if err != nil {
			return err
		}
		e.push(wasm.U64(uint64(v)))

	case wasm.OpF32ConvertI32S:
		e.push(wasm.F32(float32(e.popI32())))
	case wasm.OpF32ConvertI32U:
		e.push(wasm.F32(float32(e.popU32())))
	case wasm.OpF32ConvertI64S:
		e.push(wasm.F32(float32(e.popI64())))
	case wasm.OpF32ConvertI64U:
		e.push(wasm.F32(float32(e.popU64())))
	case wasm.OpF32DemoteF64:
		e.push(wasm.F32(float32(e.popF64())))

	case wasm.OpF64ConvertI32S:
		e.push(wasm.F64(float64(e.popI32())))
	case wasm.OpF64ConvertI32U:
		e.push(wasm.F64(float64(e.popU32())))
	case wasm.OpF64ConvertI64S:
		e.push(wasm.F64(float64(e.popI64())))
	case wasm.OpF64ConvertI64U:
		e.push(wasm.F64(float64(e.popU64())))
	case wasm.OpF64PromoteF32:
		e.push(wasm.F64(float64(e.popF32())))

	case wasm.OpI32ReinterpretF32:
		e.push(wasm.U32(math.Float32bits(e.popF32())))
	case wasm.OpI64ReinterpretF64:
		e.push(wasm.U64(math.Float64bits(e.popF64())))
	case wasm.OpF32ReinterpretI32:
		e.push(wasm.F32(math.Float32frombits(e.popU32())))
	case wasm.OpF64ReinterpretI64:
		e.push(wasm.F64(math.Float64frombits(e.popU64())))

	case wasm.OpI32Extend8S:
		e.push(wasm.I32(leb128.SignExtend8to32(uint32(e.popU32() & 0xff))))
	case wasm.OpI32Extend16S:
		e.push(wasm.I32(leb128.SignExtend16to32(uint32(e.popU32() & 0xffff))))
	case wasm.OpI64Extend8S:
		e.push(wasm.I64(leb128.SignExtend8to64(e.popU64() & 0xff)))
	case wasm.OpI64Extend16S:
		e.push(wasm.I64(leb128.SignExtend16to64(e.popU64() & 0xffff)))
	case wasm.OpI64Extend32S:
		e.push(wasm.I64(leb128.SignExtend32to64(uint64(uint32(e.popU64())))))
	}
	return nil
}

// truncToInt implements the trapping float->signed-int truncation rules
// shared by every i32/i64.trunc_f32/f64_s opcode: NaN and out-of-range
// values trap rather than saturate.
func truncToInt(f float64, min, max float64) (float64, error) {
	if math.IsNaN(f) {
		return 0, trap(InvalidConversionToInteger, "invalid conversion to integer")
	}
	t := math.Trunc(f)
	// max+1 is the first out-of-range value; for 64-bit bounds float64(max)
	// already rounds up to 2^63, so ">= max+1" also rejects exactly 2^63.
	if t < min || t >= max+1 {
		return 0, trap(IntegerOverflow, "integer overflow")
	}
	return t, nil
}

// truncToUint implements the trapping float->unsigned-int truncation rules.
func truncToUint(f float64, max float64) (float64, error) {
	if math.IsNaN(f) {
		return 0, trap(InvalidConversionToInteger, "invalid conversion to integer")
	}
	t := math.Trunc(f)
	if t < 0 || t >= max+1 {
		return 0, trap(IntegerOverflow, "integer overflow")
	}
	return t, nil
}

// execSaturatingTrunc implements the eight 0xFC sub-opcodes: truncation that
// saturates to the representable range instead of trapping, and maps NaN to
// zero.
func (e *Engine) execSaturatingTrunc(sub wasm.Op) {
	switch sub {
	case wasm.MiscI32TruncSatF32S:
		e.push(wasm.I32(int32(satTruncInt(float64(e.popF32()), -2147483648, 2147483647))))
	case wasm.MiscI32TruncSatF32U:
		e.push(wasm.U32(uint32(satTruncUint(float64(e.popF32()), 4294967295))))
	case wasm.MiscI32TruncSatF64S:
		e.push(wasm.I32(int32(satTruncInt(e.popF64(), -2147483648, 2147483647))))
	case wasm.MiscI32TruncSatF64U:
		e.push(wasm.U32(uint32(satTruncUint(e.popF64(), 4294967295))))
	case wasm.MiscI64TruncSatF32S:
		e.push(wasm.I64(int64(satTruncInt(float64(e.popF32()), math.MinInt64, math.MaxInt64))))
	case wasm.MiscI64TruncSatF32U:
		e.push(wasm.U64(uint64(satTruncUint(float64(e.popF32()), math.MaxUint64))))
	case wasm.MiscI64TruncSatF64S:
		e.push(wasm.I64(int64(satTruncInt(e.popF64(), math.MinInt64, math.MaxInt64))))
	case wasm.MiscI64TruncSatF64U:
		e.push(wasm.U64(uint64(satTruncUint(e.popF64(), math.MaxUint64))))
	}
}

func satTruncInt(f float64, min, max float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	t := math.Trunc(f)
	if t < min {
		return min
	}
	if t > max {
		return max
	}
	return t
}

func satTruncUint(f float64, max float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	t := math.Trunc(f)
	if t < 0 {
		return 0
	}
	if t > max {
		return max
	}
	return t
}
