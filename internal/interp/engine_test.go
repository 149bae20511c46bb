package interp

import (
	"testing"

	"github.com/stealthrocket/wasmc/internal/wasm"
)

// binaryOpModule encodes:
//
//	(func (export name) (param i32 i32) (result i32)
//	  local.get 0
//	  local.get 1
//	  <op>)
func binaryOpModule(name string, op byte) []byte {
	b := []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,

		0x01, 0x07,
		0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,

		0x03, 0x02,
		0x01, 0x00,

		0x07, byte(4 + len(name)),
		0x01, byte(len(name)),
	}
	b = append(b, name...)
	b = append(b, 0x00, 0x00)

	b = append(b,
		0x0a, 0x09,
		0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, op, 0x0b,
	)
	return b
}

func loadModule(t *testing.T, code []byte) (*wasm.Module, *Engine) {
	t.Helper()
	m, e, err := Load(code, noImportResolver{}, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m, e
}

type noImportResolver struct{}

func (noImportResolver) ResolveFunc(module, field string, sig wasm.FuncType) (wasm.HostFunc, error) {
	panic("no imports expected")
}
func (noImportResolver) ResolveTable(module, field string) (*wasm.Table, error) {
	panic("no imports expected")
}
func (noImportResolver) ResolveMemory(module, field string) (*wasm.Memory, error) {
	panic("no imports expected")
}
func (noImportResolver) ResolveGlobal(module, field string, kind wasm.ValKind) (wasm.Value, error) {
	panic("no imports expected")
}

func callI32(t *testing.T, m *wasm.Module, e *Engine, name string, a, b int32) (int32, error) {
	t.Helper()
	exp, ok := m.FindExport(name)
	if !ok {
		t.Fatalf("export %q not found", name)
	}
	fn := m.Function(exp.Index)
	e.Reset()
	e.Push(wasm.I32(a))
	e.Push(wasm.I32(b))
	if err := e.CallExported(fn); err != nil {
		return 0, err
	}
	return e.Pop().I32(), nil
}

func TestEngineAdd(t *testing.T) {
	m, e := loadModule(t, binaryOpModule("add", 0x6a)) // i32.add
	got, err := callI32(t, m, e, "add", 2, 3)
	if err != nil {
		t.Fatalf("unexpected trap: %v", err)
	}
	if got != 5 {
		t.Fatalf("add(2,3) = %d, want 5", got)
	}
}

func TestEngineDivByZeroTraps(t *testing.T) {
	m, e := loadModule(t, binaryOpModule("div", 0x6d)) // i32.div_s
	_, err := callI32(t, m, e, "div", 7, 0)
	if err == nil {
		t.Fatalf("expected a trap")
	}
	tr, ok := err.(*Trap)
	if !ok {
		t.Fatalf("got %T, want *Trap", err)
	}
	if tr.Kind != IntegerDivideByZero {
		t.Fatalf("trap kind = %v, want IntegerDivideByZero", tr.Kind)
	}
}

func TestEngineReplResetsBetweenCalls(t *testing.T) {
	m, e := loadModule(t, binaryOpModule("add", 0x6a))
	if _, err := callI32(t, m, e, "add", 1, 1); err != nil {
		t.Fatalf("first call: %v", err)
	}
	got, err := callI32(t, m, e, "add", 10, 20)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if got != 30 {
		t.Fatalf("add(10,20) = %d, want 30", got)
	}
	if e.SP() != -1 {
		t.Fatalf("SP = %d, want -1 (result popped, nothing left from the first call)", e.SP())
	}
}
