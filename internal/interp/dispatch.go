package interp

import "github.com/stealthrocket/wasmc/internal/wasm"

// Run executes starting at the engine's current pc until the active
// invocation halts (its outermost Function or InitExpr frame returns) or a
// trap unwinds the whole engine. This is the direct-threaded switch
// dispatch loop spec.md §4.5 describes.
func (e *Engine) Run() error {
	for {
		op := wasm.Op(e.readByte())
		halt, err := e.step(op)
		if err != nil {
			return err
		}
		if halt {
			return nil
		}
	}
}

// step decodes and executes a single instruction, starting just after its
// opcode byte has already been consumed by Run.
func (e *Engine) step(op wasm.Op) (halt bool, err error) {
	switch {
	case op == wasm.OpUnreachable:
		return false, trap(Unreachable, "unreachable")
	case op == wasm.OpNop:
		return false, nil
	case op == wasm.OpBlock || op == wasm.OpLoop || op == wasm.OpIf:
		curPC := e.pc - 1
		_ = e.readByte() // block signature byte, already folded into the resolved Block
		return false, e.enterBlock(curPC, op)
	case op == wasm.OpElse:
		e.execElse()
		return false, nil
	case op == wasm.OpEnd:
		return e.execEnd()
	case op == wasm.OpBr:
		depth := e.readU32()
		return false, e.branch(int(depth))
	case op == wasm.OpBrIf:
		depth := e.readU32()
		if e.popI32() != 0 {
			return false, e.branch(int(depth))
		}
		return false, nil
	case op == wasm.OpBrTable:
		return false, e.execBrTable()
	case op == wasm.OpReturn:
		return false, e.execReturn()
	case op == wasm.OpCall:
		fidx := e.readU32()
		return false, e.callFunc(e.Module.Function(fidx))
	case op == wasm.OpCallIndirect:
		typeIdx := e.readU32()
		_ = e.readByte() // reserved table index, always 0 in the MVP
		return false, e.execCallIndirect(typeIdx)

	case op == wasm.OpDrop:
		e.pop()
		return false, nil
	case op == wasm.OpSelect:
		cond := e.popI32()
		b := e.pop()
		a := e.pop()
		if cond != 0 {
			e.push(a)
		} else {
			e.push(b)
		}
		return false, nil

	case op == wasm.OpLocalGet:
		idx := e.readU32()
		e.push(e.stack[e.fp+int(idx)])
		return false, nil
	case op == wasm.OpLocalSet:
		idx := e.readU32()
		e.stack[e.fp+int(idx)] = e.pop()
		return false, nil
	case op == wasm.OpLocalTee:
		idx := e.readU32()
		e.stack[e.fp+int(idx)] = e.top()
		return false, nil
	case op == wasm.OpGlobalGet:
		idx := e.readU32()
		e.push(e.Module.Globals[idx].Value)
		return false, nil
	case op == wasm.OpGlobalSet:
		idx := e.readU32()
		e.Module.Globals[idx].Value = e.pop()
		return false, nil

	case op >= wasm.OpI32Load && op <= wasm.OpI64Load32U:
		return false, e.execLoad(op)
	case op >= wasm.OpI32Store && op <= wasm.OpI64Store32:
		return false, e.execStore(op)
	case op == wasm.OpMemorySize:
		e.execMemorySize()
		return false, nil
	case op == wasm.OpMemoryGrow:
		e.execMemoryGrow()
		return false, nil

	case op == wasm.OpI32Const:
		e.push(wasm.I32(e.readI32()))
		return false, nil
	case op == wasm.OpI64Const:
		e.push(wasm.I64(e.readI64()))
		return false, nil
	case op == wasm.OpF32Const:
		e.push(wasm.F32(e.readF32()))
		return false, nil
	case op == wasm.OpF64Const:
		e.push(wasm.F64(e.readF64()))
		return false, nil

	case op == wasm.OpI32Eqz || op == wasm.OpI64Eqz:
		e.execTest(op)
		return false, nil
	case op >= wasm.OpI32Eq && op <= wasm.OpF64Ge:
		e.execCompare(op)
		return false, nil
	case op >= wasm.OpI32Clz && op <= wasm.OpI64Rotr:
		return false, e.execIntArith(op)
	case op >= wasm.OpF32Abs && op <= wasm.OpF64Copysign:
		return false, e.execFloatArith(op)
	case op >= wasm.OpI32WrapI64 && op <= wasm.OpF64ReinterpretI64:
		return false, e.execConvert(op)
	case op >= wasm.OpI32Extend8S && op <= wasm.OpI64Extend32S:
		return false, e.execConvert(op)

	case op == wasm.OpMiscPrefix:
		sub := wasm.Op(e.readByte())
		e.execSaturatingTrunc(sub)
		return false, nil
	}

	return false, trap(InvalidOpcode, "invalid opcode %#x", byte(op))
}

// execBrTable implements `br_table`: a vector of depths plus a default,
// indexed by the popped i32 selector, clamped to the default when out of
// range. spec.md §4.5's BrTableScratch bounds the vector length accepted.
func (e *Engine) execBrTable() error {
	count := e.readU32()
	if int(count) >= BrTableScratch {
		return trap(BrTableSizeExceeded, "br_table vector of %d exceeds limit", count)
	}
	targets := e.brTable[:count]
	for i := range targets {
		targets[i] = e.readU32()
	}
	defaultDepth := e.readU32()

	idx := e.popU32()
	if idx < count {
		return e.branch(int(targets[idx]))
	}
	return e.branch(int(defaultDepth))
}
