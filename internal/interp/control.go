package interp

import "github.com/stealthrocket/wasmc/internal/wasm"

// pushFrame implements the frame-push protocol of spec.md §4.5: it records
// the block being entered plus the state needed to restore execution on
// exit. It does not touch e.fp; only the function-call preamble (callFunc)
// changes the frame pointer, since block/loop/if share the enclosing
// function's local-variable window.
func (e *Engine) pushFrame(block *wasm.Block, savedSP int) error {
	if e.csp+1 >= CallStackSize {
		return trap(CallStackExhausted, "call stack exhausted")
	}
	e.csp++
	e.callstack[e.csp] = wasm.Frame{
		Block:   block,
		SavedSP: savedSP,
		SavedFP: e.fp,
		SavedPC: e.pc,
	}
	return nil
}

// popFrame implements the frame-pop protocol of spec.md §4.5.
func (e *Engine) popFrame() error {
	f := e.callstack[e.csp]
	e.csp--

	if f.Block.ResultCount() == 1 {
		resultKind, _ := f.Block.Type.Result()
		val := e.top()
		if val.Kind != resultKind {
			return trap(TypeMismatch, "type mismatch: expected %s result, got %s", resultKind, val.Kind)
		}
		e.stack[f.SavedSP+1] = val
		e.sp = f.SavedSP + 1
	} else if e.sp > f.SavedSP {
		e.sp = f.SavedSP
	}

	e.fp = f.SavedFP
	if f.Block.Kind == wasm.BlockFunction {
		e.pc = f.SavedPC
		if e.OnReturn != nil {
			e.OnReturn(e, f.Block)
		}
	}
	return nil
}

// enterBlock handles `block`/`loop`/`if` (spec.md §4.5's "Control —
// structured"). curPC is the address of the opcode itself, used to look up
// its pre-resolved Block.
func (e *Engine) enterBlock(curPC int, op wasm.Op) error {
	block := e.Module.BlockLookup[curPC]
	if block == nil {
		return trap(InvalidOpcode, "no resolved block at %#x", curPC)
	}

	if op == wasm.OpIf {
		cond := e.popI32()
		if err := e.pushFrame(block, e.sp); err != nil {
			return err
		}
		if cond == 0 {
			if block.HasElse() {
				e.pc = block.ElseAddr
			} else {
				e.pc = block.BranchAddr + 1
				e.csp--
			}
		}
		return nil
	}

	return e.pushFrame(block, e.sp)
}

// execElse implements the `else` pseudo-instruction: skip to the block's
// trailing `end`, which the normal end handler then pops.
func (e *Engine) execElse() {
	f := e.callstack[e.csp]
	e.pc = f.Block.BranchAddr
}

// execEnd implements `end`. It returns halt=true when the engine invocation
// is complete (the popped block was the outermost Function frame, or an
// InitExpr).
func (e *Engine) execEnd() (halt bool, err error) {
	f := e.callstack[e.csp]
	kind := f.Block.Kind
	if err := e.popFrame(); err != nil {
		return false, err
	}
	if kind == wasm.BlockFunction && e.csp == -1 {
		return true, nil
	}
	if kind == wasm.BlockInitExpr {
		return true, nil
	}
	return false, nil
}

// branch pops depth call-stack frames and jumps to the resulting target's
// branch address, implementing `br`/`br_if`/`br_table` (spec.md §4.5).
func (e *Engine) branch(depth int) error {
	if depth < 0 || depth > e.csp {
		return trap(InvalidOpcode, "br depth %d exceeds call stack", depth)
	}
	e.csp -= depth
	e.pc = e.callstack[e.csp].Block.BranchAddr
	return nil
}

// execReturn implements `return`: unwind to the nearest enclosing Function
// frame and jump to its `end`, letting the ordinary end handler pop it.
func (e *Engine) execReturn() error {
	for e.csp >= 0 && e.callstack[e.csp].Block.Kind != wasm.BlockFunction {
		e.csp--
	}
	if e.csp < 0 {
		return trap(InvalidOpcode, "return outside of a function")
	}
	e.pc = e.callstack[e.csp].Block.EndAddr
	return nil
}

// callFunc performs the call preamble shared by `call` and `call_indirect`
// once the callee's function index has been resolved: push a function
// frame, bind the frame pointer to the argument window, zero-initialize
// declared locals, and jump to the callee's code.
func (e *Engine) callFunc(fn *wasm.Block) error {
	if fn.IsImport {
		return e.callHost(fn)
	}
	if e.csp+1 >= CallStackSize {
		return trap(CallStackExhausted, "call stack exhausted")
	}

	paramCount := fn.ParamCount()
	savedSP := e.sp - paramCount
	if err := e.pushFrame(fn, savedSP); err != nil {
		return err
	}
	e.fp = savedSP + 1

	for _, kind := range fn.LocalKinds {
		e.push(wasm.ZeroValue(kind))
	}
	e.pc = fn.StartAddr

	if e.OnCall != nil {
		e.OnCall(e, fn)
	}
	return nil
}

func (e *Engine) callHost(fn *wasm.Block) error {
	if err := fn.HostFunc(e); err != nil {
		return err
	}
	return nil
}

// execCallIndirect implements `call_indirect`, including the post-preamble
// re-verification spec.md §4.5 calls for.
func (e *Engine) execCallIndirect(typeIdx uint32) error {
	tbl := e.Module.Table
	index := e.popU32()
	if tbl == nil || index >= tbl.MaxSize {
		max := uint32(0)
		if tbl != nil {
			max = tbl.MaxSize
		}
		return trap(UndefinedElement, "undefined element %#x (max: %#x) in table", index, max)
	}
	if int(index) >= len(tbl.Entries) {
		return trap(UndefinedElement, "undefined element %#x (max: %#x) in table", index, tbl.MaxSize)
	}
	fidx := tbl.Entries[index]
	fn := e.Module.Function(fidx)
	if fn == nil {
		return trap(UndefinedElement, "undefined element %#x (max: %#x) in table", index, tbl.MaxSize)
	}

	wantType := e.Module.Types[typeIdx]
	if fn.Type.Mask() != wantType.Mask() {
		return trap(IndirectTypeMismatch, "indirect call type mismatch")
	}

	if err := e.callFunc(fn); err != nil {
		return err
	}

	if fn.IsImport {
		return nil
	}
	paramCount := fn.ParamCount()
	localCount := len(fn.LocalKinds)
	if paramCount+localCount != e.sp-e.fp+1 {
		return trap(TypeMismatch, "call_indirect: argument/local count mismatch")
	}
	for i, p := range fn.Type.Params {
		if e.stack[e.fp+i].Kind != p {
			return trap(TypeMismatch, "call_indirect: parameter %d kind mismatch", i)
		}
	}
	return nil
}
