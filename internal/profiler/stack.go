// Package profiler adapts the teacher's wazero-profiler domain stack to
// this interpreter's own execution engine: pprof-format CPU and memory
// profiles sampled from interp.Engine's OnCall/OnReturn hooks instead of a
// wazero experimental.FunctionListener.
package profiler

import (
	"github.com/cespare/xxhash"
	"golang.org/x/exp/slices"

	"github.com/stealthrocket/wasmc/internal/wasm"
)

// frame is one call-stack entry: which function, and the pc the caller will
// resume at. This is the byte-view hashed into a stackTrace's key, playing
// the role the teacher's (fn, pc) StackIterator frame pairs play.
type frame struct {
	funcIndex uint32
	returnPC  uint32
}

// stackTrace is a snapshot of the interpreter's call stack at a sampling
// point, ground on the teacher's stackTrace in pclntab.go/wzprof.go: same
// clone-on-reuse strategy (via x/exp/slices), same hashed key, but keyed on
// this interpreter's own frame representation instead of wazero's
// StackIterator.
type stackTrace struct {
	frames []frame
	key    uint64
}

// snapshot captures the module-index/pc pair for every active frame, deepest
// caller first, matching the teacher's bottom-up StackIterator order.
func snapshot(m *wasm.Module, stack []wasm.Frame) stackTrace {
	st := stackTrace{frames: make([]frame, 0, len(stack))}
	for _, f := range stack {
		if f.Block.Kind != wasm.BlockFunction {
			continue
		}
		st.frames = append(st.frames, frame{
			funcIndex: f.Block.FuncIndex,
			returnPC:  uint32(f.SavedPC),
		})
	}
	st.key = stackKey(st.frames)
	return st
}

// stackKey hashes a call-stack frame slice with xxhash, giving the teacher's
// go.mod dependency on cespare/xxhash an actual job (the teacher itself
// hashes with stdlib hash/maphash instead; see DESIGN.md).
func stackKey(frames []frame) uint64 {
	b := make([]byte, 0, 8*len(frames))
	for _, f := range frames {
		b = append(b,
			byte(f.funcIndex), byte(f.funcIndex>>8), byte(f.funcIndex>>16), byte(f.funcIndex>>24),
			byte(f.returnPC), byte(f.returnPC>>8), byte(f.returnPC>>16), byte(f.returnPC>>24),
		)
	}
	return xxhash.Sum64(b)
}

func (st stackTrace) host() bool {
	return len(st.frames) == 0
}

func (st stackTrace) contains(other stackTrace) bool {
	if len(other.frames) > len(st.frames) {
		return false
	}
	for i, f := range other.frames {
		if st.frames[i] != f {
			return false
		}
	}
	return true
}

func (st stackTrace) clone() stackTrace {
	return stackTrace{frames: slices.Clone(st.frames), key: st.key}
}
