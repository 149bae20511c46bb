package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stealthrocket/wasmc/internal/interp"
	"github.com/stealthrocket/wasmc/internal/wasm"
)

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

// addModuleBytes encodes (func (export "add") (param i32 i32) (result i32)
// local.get 0 local.get 1 i32.add).
func addModuleBytes() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,

		0x01, 0x07,
		0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,

		0x03, 0x02,
		0x01, 0x00,

		0x07, 0x07,
		0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00,

		0x0a, 0x09,
		0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
	}
}

func newAddREPL(t *testing.T, in string) (*REPL, *bytes.Buffer) {
	t.Helper()
	m, e, err := interp.Load(addModuleBytes(), noImportResolver{}, interp.Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var out bytes.Buffer
	return New(m, e, strings.NewReader(in), &out), &out
}

func TestREPLInvokesExportedFunction(t *testing.T) {
	r, out := newAddREPL(t, "add 2 3\nquit\n")
	r.Run()
	if !strings.Contains(out.String(), "0x5:i32") {
		t.Fatalf("output = %q, want it to contain 0x5:i32", out.String())
	}
}

func TestREPLUnknownFunction(t *testing.T) {
	r, out := newAddREPL(t, "nope\nquit\n")
	r.Run()
	if !strings.Contains(out.String(), "no exported function") {
		t.Fatalf("output = %q, want an unknown-function exception", out.String())
	}
}

func TestREPLArgCountMismatch(t *testing.T) {
	r, out := newAddREPL(t, "add 1\nquit\n")
	r.Run()
	if !strings.Contains(out.String(), "expects 2 argument") {
		t.Fatalf("output = %q, want an argument-count exception", out.String())
	}
}

func TestREPLFuncsLists(t *testing.T) {
	r, out := newAddREPL(t, "funcs\nquit\n")
	r.Run()
	if !strings.Contains(out.String(), "add(i32, i32)->i32") {
		t.Fatalf("output = %q, want the add signature", out.String())
	}
}

func TestParseArgNegNaN(t *testing.T) {
	v, err := parseArg("-nan", wasm.KindF64)
	if err != nil {
		t.Fatalf("parseArg: %v", err)
	}
	if v.F64() == v.F64() { // NaN != NaN
		t.Fatalf("expected NaN")
	}
}
