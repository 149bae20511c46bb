package profiler

import (
	"time"

	"github.com/google/pprof/profile"

	"github.com/stealthrocket/wasmc/internal/wasm"
)

type stackCounterMap map[uint64]*stackCounter

func (scm stackCounterMap) lookup(st stackTrace) *stackCounter {
	sc := scm[st.key]
	if sc == nil {
		sc = &stackCounter{stack: st.clone()}
		scm[st.key] = sc
	}
	return sc
}

func (scm stackCounterMap) observe(st stackTrace, val int64) {
	scm.lookup(st).observe(val)
}

type stackCounter struct {
	stack stackTrace
	value [2]int64 // count, total
}

func (sc *stackCounter) observe(value int64) {
	sc.value[0]++
	sc.value[1] += value
}

func (sc *stackCounter) total() int64 { return sc.value[1] }

func (sc *stackCounter) subtract(value int64) { sc.value[1] -= value }

func (sc *stackCounter) sampleValue() []int64 { return sc.value[:] }

// buildProfile renders accumulated samples into a pprof Profile, symbolizing
// each frame from the module's function names and the block resolver's
// start-address offsets — this interpreter's stand-in for the teacher's
// DWARF/pclntab symbolizer, since there is no compiled-language debug
// section to consult here.
func buildProfile(m *wasm.Module, samples stackCounterMap, start time.Time, duration time.Duration, sampleType []*profile.ValueType) *profile.Profile {
	prof := &profile.Profile{
		SampleType:    sampleType,
		Sample:        make([]*profile.Sample, 0, len(samples)),
		TimeNanos:     start.UnixNano(),
		DurationNanos: int64(duration),
	}

	locationID := uint64(1)
	locationCache := make(map[frame]*profile.Location)
	functionCache := make(map[uint32]*profile.Function)

	for _, sample := range samples {
		st := sample.stack
		locs := make([]*profile.Location, len(st.frames))

		for i, f := range st.frames {
			loc := locationCache[f]
			if loc == nil {
				fn := functionCache[f.funcIndex]
				if fn == nil {
					fn = &profile.Function{
						ID:   uint64(len(functionCache)) + 1,
						Name: m.FunctionName(f.funcIndex),
					}
					functionCache[f.funcIndex] = fn
				}
				loc = &profile.Location{
					ID:   locationID,
					Line: []profile.Line{{Function: fn, Line: int64(f.returnPC)}},
				}
				locationID++
				locationCache[f] = loc
			}
			locs[len(st.frames)-1-i] = loc
		}

		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: locs,
			Value:    sample.sampleValue()[:len(sampleType)],
		})
	}

	prof.Location = make([]*profile.Location, len(locationCache))
	for _, loc := range locationCache {
		prof.Location[loc.ID-1] = loc
	}
	prof.Function = make([]*profile.Function, len(functionCache))
	for _, fn := range functionCache {
		prof.Function[fn.ID-1] = fn
	}
	return prof
}
