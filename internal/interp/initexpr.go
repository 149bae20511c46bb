package interp

import "github.com/stealthrocket/wasmc/internal/wasm"

// initExprEvaluator implements wasm.InitExprEvaluator on top of a scratch
// Engine bound to the module under decode: global, element, and data
// segment offsets are themselves constant expressions (a single const or
// global.get, per spec.md §4.4), so the decoder runs them through the same
// engine that will later execute real code. The decoder passes the same
// live *Module pointer on every call within one Decode, so the evaluator
// lazily binds its scratch Engine to it on first use.
type initExprEvaluator struct {
	engine *Engine
}

// NewInitExprEvaluator returns a wasm.InitExprEvaluator with no Engine bound
// yet; it binds lazily to whichever Module the decoder passes in.
func NewInitExprEvaluator() wasm.InitExprEvaluator {
	return &initExprEvaluator{}
}

// EvalInitExpr runs the constant expression starting at startAddr and
// returns its single result, synthesizing a BlockInitExpr frame so the
// ordinary `end` handling (execEnd) recognizes when to stop.
func (v *initExprEvaluator) EvalInitExpr(m *wasm.Module, startAddr int, resultKind wasm.ValKind) (wasm.Value, error) {
	if v.engine == nil || v.engine.Module != m {
		v.engine = NewEngine(m, Options{})
	}
	e := v.engine
	e.Reset()
	e.pc = startAddr

	block := &wasm.Block{
		Kind: wasm.BlockInitExpr,
		Type: wasm.NewFuncType(nil, []wasm.ValKind{resultKind}),
	}
	if err := e.pushFrame(block, e.sp); err != nil {
		return wasm.Value{}, err
	}

	if err := e.Run(); err != nil {
		return wasm.Value{}, err
	}
	return e.top(), nil
}
