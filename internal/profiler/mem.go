package profiler

import (
	"sync"
	"time"

	"github.com/google/pprof/profile"

	"github.com/stealthrocket/wasmc/internal/interp"
	"github.com/stealthrocket/wasmc/internal/wasm"
)

// MemoryProfiler instruments memory.grow executions, a page-granular
// analogue of the teacher's malloc/calloc/realloc host-import hooks (this
// interpreter has no managed heap to instrument at byte granularity).
type MemoryProfiler struct {
	mutex   sync.Mutex
	module  *wasm.Module
	counts  stackCounterMap
	start   time.Time
	running bool
}

// NewMemoryProfiler constructs a MemoryProfiler bound to m's symbols.
func NewMemoryProfiler(m *wasm.Module) *MemoryProfiler {
	return &MemoryProfiler{module: m}
}

// sampleTypes mirrors the teacher's ProfilerMemory.SampleType ("alloc_space"
// in bytes), paired with an "alloc_objects" count so both of stackCounter's
// value slots (count, total) end up represented in the profile.
func (p *MemoryProfiler) sampleTypes() []*profile.ValueType {
	return []*profile.ValueType{
		{Type: "alloc_objects", Unit: "count"},
		{Type: "alloc_space", Unit: "bytes"},
	}
}

// StartProfile begins recording memory.grow calls.
func (p *MemoryProfiler) StartProfile() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.running {
		return false
	}
	p.running = true
	p.counts = make(stackCounterMap)
	p.start = time.Now()
	return true
}

// StopProfile stops recording and returns the accumulated profile.
func (p *MemoryProfiler) StopProfile() *profile.Profile {
	p.mutex.Lock()
	samples, start := p.counts, p.start
	p.running = false
	p.counts = nil
	p.mutex.Unlock()
	if samples == nil {
		return nil
	}
	return buildProfile(p.module, samples, start, time.Since(start), p.sampleTypes())
}

// Attach wires the profiler's memory.grow hook onto e.
func (p *MemoryProfiler) Attach(e *interp.Engine) {
	e.OnMemoryGrow = p.Observe
}

// Observe records a memory.grow call of deltaPages pages, converted to
// bytes at 64KiB/page, sampled at e's current call stack.
func (p *MemoryProfiler) Observe(e *interp.Engine, deltaPages uint32) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.counts == nil {
		return
	}
	st := snapshot(p.module, e.CallStack())
	p.counts.observe(st, int64(deltaPages)*wasm.PageSize)
}
