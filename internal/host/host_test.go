package host

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stealthrocket/wasmc/internal/wasm"
)

type fakeStack struct {
	values []wasm.Value
}

func (s *fakeStack) Push(v wasm.Value) { s.values = append(s.values, v) }
func (s *fakeStack) Pop() wasm.Value {
	v := s.values[len(s.values)-1]
	s.values = s.values[:len(s.values)-1]
	return v
}

func TestResolveFuncUnknownModule(t *testing.T) {
	tbl := NewTable()
	if _, err := tbl.ResolveFunc("wasi_snapshot_preview1", "fd_write", wasm.FuncType{}); err == nil {
		t.Fatalf("expected an error for a non-env import module")
	}
}

func TestResolveFuncUnknownField(t *testing.T) {
	tbl := NewTable()
	if _, err := tbl.ResolveFunc("env", "nonexistent", wasm.FuncType{}); err == nil {
		t.Fatalf("expected an error for an unknown host function")
	}
}

func TestPrintI32(t *testing.T) {
	var buf bytes.Buffer
	tbl := &Table{Out: &buf}
	fn, err := tbl.ResolveFunc("env", "print_i32", wasm.FuncType{})
	if err != nil {
		t.Fatalf("ResolveFunc: %v", err)
	}
	stack := &fakeStack{values: []wasm.Value{wasm.I32(42)}}
	if err := fn(stack); err != nil {
		t.Fatalf("calling print_i32: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "42" {
		t.Fatalf("output = %q, want %q", got, "42")
	}
}

func TestExitReturnsExitError(t *testing.T) {
	tbl := NewTable()
	fn, err := tbl.ResolveFunc("env", "exit", wasm.FuncType{})
	if err != nil {
		t.Fatalf("ResolveFunc: %v", err)
	}
	stack := &fakeStack{values: []wasm.Value{wasm.I32(7)}}
	err = fn(stack)
	ee, ok := err.(*ExitError)
	if !ok {
		t.Fatalf("got %T, want *ExitError", err)
	}
	if ee.Code != 7 {
		t.Fatalf("Code = %d, want 7", ee.Code)
	}
}

func TestResolveTableMemoryGlobalAlwaysFail(t *testing.T) {
	tbl := NewTable()
	if _, err := tbl.ResolveTable("env", "t"); err == nil {
		t.Fatalf("expected ResolveTable to fail")
	}
	if _, err := tbl.ResolveMemory("env", "m"); err == nil {
		t.Fatalf("expected ResolveMemory to fail")
	}
	if _, err := tbl.ResolveGlobal("env", "g", wasm.KindI32); err == nil {
		t.Fatalf("expected ResolveGlobal to fail")
	}
}
