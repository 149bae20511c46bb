package interp

import (
	"math"

	"github.com/stealthrocket/wasmc/internal/leb128"
)

// These helpers read an immediate operand starting at e.pc and advance it.
// Bytecode reaching the engine has already been validated once by the
// section decoder and block resolver (which walk every instruction's
// immediates to compute block addresses), so these do not re-check for
// truncation the way internal/wasm's decoder does.

func (e *Engine) cursor() *leb128.Reader {
	r := leb128.NewReader(e.Module.Bytes)
	r.SeekTo(e.pc)
	return r
}

func (e *Engine) readByte() byte {
	b := e.Module.Bytes[e.pc]
	e.pc++
	return b
}

func (e *Engine) readU32() uint32 {
	r := e.cursor()
	v, _ := r.ReadU32()
	e.pc = r.Pos()
	return v
}

func (e *Engine) readI32() int32 {
	r := e.cursor()
	v, _ := r.ReadI32()
	e.pc = r.Pos()
	return v
}

func (e *Engine) readI64() int64 {
	r := e.cursor()
	v, _ := r.ReadI64()
	e.pc = r.Pos()
	return v
}

func (e *Engine) readF32() float32 {
	r := e.cursor()
	v, _ := r.ReadF32()
	e.pc = r.Pos()
	return math.Float32frombits(v)
}

func (e *Engine) readF64() float64 {
	r := e.cursor()
	v, _ := r.ReadF64()
	e.pc = r.Pos()
	return math.Float64frombits(v)
}
