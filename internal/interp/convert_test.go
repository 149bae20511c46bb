package interp

import (
	"math"
	"testing"

	"github.com/stealthrocket/wasmc/internal/wasm"
)

func TestTruncF64STrapsOnNaN(t *testing.T) {
	e := newTestEngine()
	e.push(wasm.F64(math.NaN()))
	err := e.execConvert(wasm.OpI32TruncF64S)
	tr, ok := err.(*Trap)
	if !ok || tr.Kind != InvalidConversionToInteger {
		t.Fatalf("got %v, want InvalidConversionToInteger trap", err)
	}
}

func TestTruncF64STrapsOnOverflow(t *testing.T) {
	e := newTestEngine()
	e.push(wasm.F64(1e18))
	err := e.execConvert(wasm.OpI32TruncF64S)
	tr, ok := err.(*Trap)
	if !ok || tr.Kind != IntegerOverflow {
		t.Fatalf("got %v, want IntegerOverflow trap", err)
	}
}

func TestSaturatingTruncNeverTraps(t *testing.T) {
	e := newTestEngine()
	e.push(wasm.F32(float32(math.NaN())))
	e.execSaturatingTrunc(wasm.MiscI32TruncSatF32S)
	if got := e.pop().I32(); got != 0 {
		t.Fatalf("sat_trunc(NaN) = %d, want 0", got)
	}

	e.push(wasm.F32(1e18))
	e.execSaturatingTrunc(wasm.MiscI32TruncSatF32S)
	if got := e.pop().I32(); got != math.MaxInt32 {
		t.Fatalf("sat_trunc(1e18) = %d, want MaxInt32", got)
	}

	e.push(wasm.F32(-1e18))
	e.execSaturatingTrunc(wasm.MiscI32TruncSatF32S)
	if got := e.pop().I32(); got != math.MinInt32 {
		t.Fatalf("sat_trunc(-1e18) = %d, want MinInt32", got)
	}
}

func TestSignExtend8S(t *testing.T) {
	e := newTestEngine()
	e.push(wasm.U32(0xff))
	if err := e.execConvert(wasm.OpI32Extend8S); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.pop().I32(); got != -1 {
		t.Fatalf("extend8_s(0xff) = %d, want -1", got)
	}
}

func TestReinterpretRoundTrip(t *testing.T) {
	e := newTestEngine()
	e.push(wasm.F32(3.5))
	if err := e.execConvert(wasm.OpI32ReinterpretF32); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bits := e.pop().U32()
	e.push(wasm.U32(bits))
	if err := e.execConvert(wasm.OpF32ReinterpretI32); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.pop().F32(); got != 3.5 {
		t.Fatalf("round-trip = %v, want 3.5", got)
	}
}
