package wasm

import (
	"fmt"

	"github.com/stealthrocket/wasmc/internal/leb128"
)

// ResolveBlocks performs a single linear pass over every local function body,
// recording start/end/else/branch addresses for each block/loop/if. It is
// grounded on the same opcode-skipping scan the teacher package uses to walk
// compiled Go function bodies embedded in a wasm binary (pclntab.go's
// skipInstr/skipIf/skipExpr), generalized here to a full structured-block
// scanner over the WebAssembly opcode table instead of a narrow pattern
// match on a known Go calling convention.
func ResolveBlocks(m *Module) error {
	for i := range m.Functions {
		fn := &m.Functions[i]
		if fn.IsImport {
			continue
		}
		if err := resolveFunctionBlocks(m, fn); err != nil {
			return err
		}
	}
	return nil
}

func resolveFunctionBlocks(m *Module, fn *Block) error {
	r := leb128.NewReader(m.Bytes)
	r.SeekTo(fn.StartAddr)

	var stack []*Block
	for r.Pos() <= fn.EndAddr {
		opAddr := r.Pos()
		b, err := r.Byte()
		if err != nil {
			return decodeErrorf(MalformedModule, err, "function %d: truncated body", fn.FuncIndex)
		}
		op := Op(b)

		switch op {
		case OpBlock, OpLoop, OpIf:
			sig, err := r.Byte()
			if err != nil {
				return decodeErrorf(MalformedModule, err, "function %d: truncated block signature", fn.FuncIndex)
			}
			kind := BlockPlain
			if op == OpLoop {
				kind = BlockLoop
			} else if op == OpIf {
				kind = BlockIf
			}
			blk := &Block{
				Kind:      kind,
				Type:      blockTypeFromByte(sig),
				StartAddr: opAddr,
			}
			m.BlockLookup[opAddr] = blk
			stack = append(stack, blk)

		case OpElse:
			if len(stack) == 0 || stack[len(stack)-1].Kind != BlockIf {
				return decodeErrorf(MalformedModule, nil, "function %d: else without matching if at %#x", fn.FuncIndex, opAddr)
			}
			stack[len(stack)-1].ElseAddr = r.Pos()

		case OpEnd:
			if opAddr == fn.EndAddr {
				if len(stack) != 0 {
					return decodeErrorf(MalformedModule, nil, "function %d: unclosed block at end of body", fn.FuncIndex)
				}
				return nil
			}
			if len(stack) == 0 {
				return decodeErrorf(MalformedModule, nil, "function %d: unmatched end at %#x", fn.FuncIndex, opAddr)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top.EndAddr = opAddr
			if top.Kind == BlockLoop {
				top.BranchAddr = top.StartAddr + 2
			} else {
				top.BranchAddr = top.EndAddr
			}

		default:
			if err := skipImmediate(r, op); err != nil {
				return decodeErrorf(MalformedModule, err, "function %d: at %#x", fn.FuncIndex, opAddr)
			}
		}
	}
	return decodeErrorf(MalformedModule, nil, "function %d: body did not end at declared end_addr %#x", fn.FuncIndex, fn.EndAddr)
}

func blockTypeFromByte(sig byte) FuncType {
	switch ValKind(sig) {
	case KindI32, KindI64, KindF32, KindF64:
		return NewFuncType(nil, []ValKind{ValKind(sig)})
	default:
		return NewFuncType(nil, nil)
	}
}

// skipImmediate advances r past the immediate operands of op, for every
// opcode that is not block/loop/if/else/end (those are handled by the
// caller's block-tracking state machine).
func skipImmediate(r *leb128.Reader, op Op) error {
	switch op {
	case OpUnreachable, OpNop, OpDrop, OpSelect, OpReturn:
		return nil

	case OpBr, OpBrIf:
		_, err := r.ReadU32()
		return err

	case OpBrTable:
		count, err := r.ReadU32()
		if err != nil {
			return err
		}
		for i := uint32(0); i < count; i++ {
			if _, err := r.ReadU32(); err != nil {
				return err
			}
		}
		_, err = r.ReadU32() // default label
		return err

	case OpCall:
		_, err := r.ReadU32()
		return err

	case OpCallIndirect:
		if _, err := r.ReadU32(); err != nil { // type index
			return err
		}
		_, err := r.Byte() // reserved zero byte
		return err

	case OpLocalGet, OpLocalSet, OpLocalTee, OpGlobalGet, OpGlobalSet:
		_, err := r.ReadU32()
		return err

	case OpI32Load, OpI64Load, OpF32Load, OpF64Load,
		OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U,
		OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U,
		OpI32Store, OpI64Store, OpF32Store, OpF64Store,
		OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
		if _, err := r.ReadU32(); err != nil { // align (ignored as a hint)
			return err
		}
		_, err := r.ReadU32() // offset
		return err

	case OpMemorySize, OpMemoryGrow:
		_, err := r.ReadU32() // reserved
		return err

	case OpI32Const:
		_, err := r.ReadI32()
		return err
	case OpI64Const:
		_, err := r.ReadI64()
		return err
	case OpF32Const:
		_, err := r.ReadF32()
		return err
	case OpF64Const:
		_, err := r.ReadF64()
		return err

	case OpI32Extend8S, OpI32Extend16S, OpI64Extend8S, OpI64Extend16S, OpI64Extend32S:
		return nil

	case OpMiscPrefix:
		sub, err := r.ReadU32()
		if err != nil {
			return err
		}
		if sub > uint32(MiscI64TruncSatF64U) {
			return fmt.Errorf("invalid opcode 0xfc %#x", sub)
		}
		return nil
	}

	// Comparisons (0x45-0x66), integer/float arithmetic (0x67-0xbf) take no
	// immediate operands.
	if op >= OpI32Eqz && op <= OpF64ReinterpretI64 {
		return nil
	}

	return fmt.Errorf("invalid opcode %#x", byte(op))
}
