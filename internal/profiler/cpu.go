package profiler

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"

	"github.com/stealthrocket/wasmc/internal/interp"
	"github.com/stealthrocket/wasmc/internal/wasm"
)

// CPUProfiler records samples of time spent in function calls of a decoded
// module, a direct adaptation of the teacher's CPUProfiler: the "cpu" and
// "samples" value types are produced the same way, symbolized from this
// interpreter's own function names and block offsets instead of DWARF.
type CPUProfiler struct {
	mutex  sync.Mutex
	module *wasm.Module
	counts stackCounterMap
	frames []cpuTimeFrame
	time   func() int64
	start  time.Time
	host   bool
}

type cpuTimeFrame struct {
	start int64
	trace stackTrace
}

// NewCPUProfiler constructs a CPUProfiler bound to m's symbol information.
func NewCPUProfiler(m *wasm.Module) *CPUProfiler {
	return &CPUProfiler{module: m, time: func() int64 { return time.Now().UnixNano() }}
}

// EnableHostTime controls whether StopProfile keeps samples whose recorded
// call stack has no function frame (the samples it classifies as host
// samples); when false they are dropped and their time subtracted from the
// samples they prefix. Host (imported) function calls fire no OnCall/OnReturn
// hook, so their time is never sampled on its own: it is always counted in
// the calling function's sample. Default false, matching the teacher.
func (p *CPUProfiler) EnableHostTime(enable bool) { p.host = enable }

// Attach wires the profiler's sampling hooks onto e's call boundaries.
func (p *CPUProfiler) Attach(e *interp.Engine) {
	e.OnCall = func(e *interp.Engine, fn *wasm.Block) { p.before(e, fn) }
	e.OnReturn = func(e *interp.Engine, fn *wasm.Block) { p.after(e, fn) }
}

// StartProfile begins recording. Returns false if already running.
func (p *CPUProfiler) StartProfile() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.counts != nil {
		return false
	}
	p.counts = make(stackCounterMap)
	p.start = time.Now()
	return true
}

// StopProfile stops recording and returns the accumulated pprof Profile, or
// nil if recording was never started.
func (p *CPUProfiler) StopProfile() *profile.Profile {
	p.mutex.Lock()
	samples, start := p.counts, p.start
	p.counts = nil
	p.mutex.Unlock()

	if samples == nil {
		return nil
	}
	duration := time.Since(start)

	if !p.host {
		for k, sample := range samples {
			if sample.stack.host() {
				delete(samples, k)
				for _, other := range samples {
					if sample.stack.contains(other.stack) {
						other.subtract(sample.total())
					}
				}
			}
		}
	}

	return buildProfile(p.module, samples, start, duration, []*profile.ValueType{
		{Type: "cpu", Unit: "nanoseconds"},
		{Type: "samples", Unit: "count"},
	})
}

// NewHandler returns an http.Handler exposing this profiler on a
// pprof-compatible endpoint, a rename of the teacher's handler of the same
// semantics (sampling window via ?seconds=).
func (p *CPUProfiler) NewHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		duration := 30 * time.Second
		if seconds := r.FormValue("seconds"); seconds != "" {
			if n, err := strconv.ParseInt(seconds, 10, 64); err == nil && n > 0 {
				duration = time.Duration(n) * time.Second
			}
		}

		ctx := r.Context()
		if deadline, ok := ctx.Deadline(); ok {
			if timeout := time.Until(deadline); duration > timeout {
				http.Error(w, "profile duration exceeds server's WriteTimeout", http.StatusBadRequest)
				return
			}
		}

		if !p.StartProfile() {
			http.Error(w, "CPU profiling already running", http.StatusInternalServerError)
			return
		}

		timer := time.NewTimer(duration)
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		timer.Stop()

		prof := p.StopProfile()
		w.Header().Set("Content-Type", "application/octet-stream")
		if prof != nil {
			_ = prof.Write(w)
		}
	})
}

func (p *CPUProfiler) before(e *interp.Engine, fn *wasm.Block) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.counts == nil {
		p.frames = append(p.frames, cpuTimeFrame{})
		return
	}
	p.frames = append(p.frames, cpuTimeFrame{
		start: p.time(),
		trace: snapshot(p.module, e.CallStack()),
	})
}

func (p *CPUProfiler) after(e *interp.Engine, fn *wasm.Block) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	n := len(p.frames)
	if n == 0 {
		return
	}
	f := p.frames[n-1]
	p.frames = p.frames[:n-1]
	if f.start != 0 && p.counts != nil {
		p.counts.observe(f.trace, p.time()-f.start)
	}
}
