package interp

import (
	"fmt"

	"github.com/stealthrocket/wasmc/internal/wasm"
)

// Load decodes bytes into a Module, resolving imports through resolver, and
// then — if the module declares a start function — runs it to completion on
// a fresh Engine, per spec.md §4's "decode, then optionally invoke start"
// sequencing.
func Load(bytes []byte, resolver wasm.Resolver, opts Options) (*wasm.Module, *Engine, error) {
	evalInit := NewInitExprEvaluator()

	m, err := wasm.Decode(bytes, resolver, evalInit)
	if err != nil {
		return nil, nil, err
	}

	engine := NewEngine(m, opts)
	if m.StartFunc != wasm.NoStartFunc {
		fn := m.Function(m.StartFunc)
		if fn == nil {
			return nil, nil, fmt.Errorf("start function %d not found", m.StartFunc)
		}
		if err := engine.CallExported(fn); err != nil {
			return nil, nil, fmt.Errorf("start function trapped: %w", err)
		}
	}
	return m, engine, nil
}
