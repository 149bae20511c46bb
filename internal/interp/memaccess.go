package interp

import (
	"encoding/binary"

	"github.com/stealthrocket/wasmc/internal/leb128"
	"github.com/stealthrocket/wasmc/internal/wasm"
)

// effectiveAddr implements the load/store address computation shared by
// every memory instruction: align (a hint, ignored for correctness) plus an
// offset immediate added to the popped base address.
func (e *Engine) effectiveAddr() uint64 {
	_ = e.readU32() // align, unused
	offset := e.readU32()
	base := e.popU32()
	return uint64(base) + uint64(offset)
}

func (e *Engine) checkBounds(addr uint64, width int) error {
	if e.Opts.DisableMemoryBoundsChecks {
		return nil
	}
	mem := e.Module.Memory
	if mem == nil || addr+uint64(width) > uint64(len(mem.Bytes)) {
		return trap(Unreachable, "out of bounds memory access")
	}
	return nil
}

// execLoad implements the 14 load opcodes.
func (e *Engine) execLoad(op wasm.Op) error {
	addr := e.effectiveAddr()
	mem := e.Module.Memory

	switch op {
	case wasm.OpI32Load:
		if err := e.checkBounds(addr, 4); err != nil {
			return err
		}
		e.push(wasm.U32(binary.LittleEndian.Uint32(mem.Bytes[addr:])))
	case wasm.OpI64Load:
		if err := e.checkBounds(addr, 8); err != nil {
			return err
		}
		e.push(wasm.U64(binary.LittleEndian.Uint64(mem.Bytes[addr:])))
	case wasm.OpF32Load:
		if err := e.checkBounds(addr, 4); err != nil {
			return err
		}
		e.push(wasm.WithBits(wasm.KindF32, uint64(binary.LittleEndian.Uint32(mem.Bytes[addr:]))))
	case wasm.OpF64Load:
		if err := e.checkBounds(addr, 8); err != nil {
			return err
		}
		e.push(wasm.WithBits(wasm.KindF64, binary.LittleEndian.Uint64(mem.Bytes[addr:])))
	case wasm.OpI32Load8S:
		if err := e.checkBounds(addr, 1); err != nil {
			return err
		}
		e.push(wasm.I32(leb128.SignExtend8to32(uint32(mem.Bytes[addr]))))
	case wasm.OpI32Load8U:
		if err := e.checkBounds(addr, 1); err != nil {
			return err
		}
		e.push(wasm.U32(uint32(mem.Bytes[addr])))
	case wasm.OpI32Load16S:
		if err := e.checkBounds(addr, 2); err != nil {
			return err
		}
		e.push(wasm.I32(leb128.SignExtend16to32(uint32(binary.LittleEndian.Uint16(mem.Bytes[addr:])))))
	case wasm.OpI32Load16U:
		if err := e.checkBounds(addr, 2); err != nil {
			return err
		}
		e.push(wasm.U32(uint32(binary.LittleEndian.Uint16(mem.Bytes[addr:]))))
	case wasm.OpI64Load8S:
		if err := e.checkBounds(addr, 1); err != nil {
			return err
		}
		e.push(wasm.I64(leb128.SignExtend8to64(uint64(mem.Bytes[addr]))))
	case wasm.OpI64Load8U:
		if err := e.checkBounds(addr, 1); err != nil {
			return err
		}
		e.push(wasm.U64(uint64(mem.Bytes[addr])))
	case wasm.OpI64Load16S:
		if err := e.checkBounds(addr, 2); err != nil {
			return err
		}
		e.push(wasm.I64(leb128.SignExtend16to64(uint64(binary.LittleEndian.Uint16(mem.Bytes[addr:])))))
	case wasm.OpI64Load16U:
		if err := e.checkBounds(addr, 2); err != nil {
			return err
		}
		e.push(wasm.U64(uint64(binary.LittleEndian.Uint16(mem.Bytes[addr:]))))
	case wasm.OpI64Load32S:
		if err := e.checkBounds(addr, 4); err != nil {
			return err
		}
		e.push(wasm.I64(leb128.SignExtend32to64(uint64(binary.LittleEndian.Uint32(mem.Bytes[addr:])))))
	case wasm.OpI64Load32U:
		if err := e.checkBounds(addr, 4); err != nil {
			return err
		}
		e.push(wasm.U64(uint64(binary.LittleEndian.Uint32(mem.Bytes[addr:]))))
	}
	return nil
}

// execStore implements the 9 store opcodes. The value is popped first, then
// the address, matching the operand-stack order [addr, value] the binary
// format encodes instructions in.
func (e *Engine) execStore(op wasm.Op) error {
	val := e.pop()
	var width int

	_ = e.readU32() // align
	offset := e.readU32()
	base := e.popU32()
	addr := uint64(base) + uint64(offset)

	mem := e.Module.Memory
	switch op {
	case wasm.OpI32Store, wasm.OpF32Store:
		width = 4
	case wasm.OpI64Store, wasm.OpF64Store:
		width = 8
	case wasm.OpI32Store8, wasm.OpI64Store8:
		width = 1
	case wasm.OpI32Store16, wasm.OpI64Store16:
		width = 2
	case wasm.OpI64Store32:
		width = 4
	}
	if err := e.checkBounds(addr, width); err != nil {
		return err
	}

	switch op {
	case wasm.OpI32Store:
		binary.LittleEndian.PutUint32(mem.Bytes[addr:], val.U32())
	case wasm.OpI64Store:
		binary.LittleEndian.PutUint64(mem.Bytes[addr:], val.U64())
	case wasm.OpF32Store:
		binary.LittleEndian.PutUint32(mem.Bytes[addr:], uint32(val.Bits()))
	case wasm.OpF64Store:
		binary.LittleEndian.PutUint64(mem.Bytes[addr:], val.Bits())
	case wasm.OpI32Store8, wasm.OpI64Store8:
		mem.Bytes[addr] = byte(val.U64())
	case wasm.OpI32Store16, wasm.OpI64Store16:
		binary.LittleEndian.PutUint16(mem.Bytes[addr:], uint16(val.U64()))
	case wasm.OpI64Store32:
		binary.LittleEndian.PutUint32(mem.Bytes[addr:], uint32(val.U64()))
	}
	return nil
}

// execMemorySize implements memory.size: current size in pages.
func (e *Engine) execMemorySize() {
	_ = e.readByte() // reserved
	e.push(wasm.I32(int32(e.Module.Memory.PageCount())))
}

// execMemoryGrow implements memory.grow: idempotent at delta=0, always
// returns the previous page count, whether or not the grow succeeded —
// never a -1 sentinel. Never traps, per spec.md §4.5.
func (e *Engine) execMemoryGrow() {
	_ = e.readByte() // reserved
	delta := e.popU32()
	prev, ok := e.Module.Memory.Grow(delta)
	if !ok {
		e.push(wasm.I32(int32(prev)))
		return
	}
	if e.OnMemoryGrow != nil && delta > 0 {
		e.OnMemoryGrow(e, delta)
	}
	e.push(wasm.I32(int32(prev)))
}
