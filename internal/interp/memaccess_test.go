package interp

import (
	"testing"

	"github.com/stealthrocket/wasmc/internal/wasm"
)

func newMemEngine(pages uint32) *Engine {
	return newMemEngineMax(pages, pages)
}

func newMemEngineMax(pages, max uint32) *Engine {
	m := wasm.NewModule([]byte{0x00, 0x00}) // align=0, offset=0 immediate
	m.Memory = wasm.NewMemory(pages, max)
	e := NewEngine(m, Options{})
	e.pc = 0
	return e
}

func TestStoreLoadRoundTrip(t *testing.T) {
	e := newMemEngine(1)

	e.push(wasm.I32(0))   // address
	e.push(wasm.I32(123)) // value
	e.pc = 0
	if err := e.execStore(wasm.OpI32Store); err != nil {
		t.Fatalf("store: %v", err)
	}

	e.pc = 0
	e.push(wasm.I32(0))
	if err := e.execLoad(wasm.OpI32Load); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := e.pop().I32(); got != 123 {
		t.Fatalf("load after store = %d, want 123", got)
	}
}

func TestLoadOutOfBoundsTraps(t *testing.T) {
	e := newMemEngine(1)
	e.pc = 0
	e.push(wasm.I32(int32(wasm.PageSize))) // one byte past the single page
	err := e.execLoad(wasm.OpI32Load)
	tr, ok := err.(*Trap)
	if !ok || tr.Kind != Unreachable {
		t.Fatalf("got %v, want Unreachable trap", err)
	}
}

func TestDisableBoundsChecksSkipsTrap(t *testing.T) {
	e := newMemEngine(1)
	e.Opts.DisableMemoryBoundsChecks = true
	e.pc = 0
	e.push(wasm.I32(0))
	if err := e.execLoad(wasm.OpI32Load); err != nil {
		t.Fatalf("unexpected trap with bounds checks disabled: %v", err)
	}
}

func TestMemorySizeAndGrow(t *testing.T) {
	e := newMemEngineMax(1, 4)
	e.pc = 0
	e.execMemorySize()
	if got := e.pop().I32(); got != 1 {
		t.Fatalf("memory.size = %d, want 1", got)
	}

	e.pc = 0
	e.push(wasm.I32(1))
	e.execMemoryGrow()
	if got := e.pop().I32(); got != 1 {
		t.Fatalf("memory.grow returned %d, want previous size 1", got)
	}

	e.pc = 0
	e.execMemorySize()
	if got := e.pop().I32(); got != 2 {
		t.Fatalf("memory.size after grow = %d, want 2", got)
	}
}

func TestMemoryGrowBeyondMaxFails(t *testing.T) {
	e := newMemEngine(1)
	e.pc = 0
	e.push(wasm.I32(1)) // max is 1 page, grow by 1 should fail
	e.execMemoryGrow()
	if got := e.pop().I32(); got != 1 {
		t.Fatalf("memory.grow beyond max = %d, want unchanged page count 1", got)
	}
}
