// Package host provides the built-in import resolver: a small fixed table of
// host functions standing in for the dynamic-library symbol resolution the
// specification leaves unprescribed (SPEC_FULL.md §7). A different
// resolution strategy can be substituted by implementing wasm.Resolver.
package host

import (
	"fmt"
	"io"
	"os"

	"github.com/stealthrocket/wasmc/internal/wasm"
)

// ExitError is returned through the engine's error path when env.exit is
// called, carrying the requested exit code. The REPL reports it like any
// other error ("Exception: env.exit(N)"); neither the REPL nor the CLI turns
// it into a process exit.
type ExitError struct {
	Code int32
}

func (e *ExitError) Error() string { return fmt.Sprintf("env.exit(%d)", e.Code) }

// Table is a fixed-table wasm.Resolver. It resolves every func import named
// in builtinFuncs and refuses everything else, and it never resolves table,
// memory, or global imports (this interpreter's sample host environment
// only exports functions).
type Table struct {
	Out io.Writer
}

// NewTable returns a Table that writes env.print output to stdout.
func NewTable() *Table {
	return &Table{Out: os.Stdout}
}

func (t *Table) ResolveFunc(module, field string, sig wasm.FuncType) (wasm.HostFunc, error) {
	if module != "env" {
		return nil, fmt.Errorf("unknown import module %q", module)
	}
	fn, ok := builtinFuncs[field]
	if !ok {
		return nil, fmt.Errorf("unknown host function env.%s", field)
	}
	return fn(t), nil
}

func (t *Table) ResolveTable(module, field string) (*wasm.Table, error) {
	return nil, fmt.Errorf("no importable table %s.%s", module, field)
}

func (t *Table) ResolveMemory(module, field string) (*wasm.Memory, error) {
	return nil, fmt.Errorf("no importable memory %s.%s", module, field)
}

func (t *Table) ResolveGlobal(module, field string, kind wasm.ValKind) (wasm.Value, error) {
	return wasm.Value{}, fmt.Errorf("no importable global %s.%s", module, field)
}

var builtinFuncs = map[string]func(*Table) wasm.HostFunc{
	"print": func(t *Table) wasm.HostFunc {
		return func(stack wasm.ValueStack) error {
			v := stack.Pop()
			fmt.Fprintln(t.Out, v)
			return nil
		}
	},
	"print_i32": func(t *Table) wasm.HostFunc {
		return func(stack wasm.ValueStack) error {
			v := stack.Pop()
			fmt.Fprintln(t.Out, v.I32())
			return nil
		}
	},
	"exit": func(t *Table) wasm.HostFunc {
		return func(stack wasm.ValueStack) error {
			code := stack.Pop().I32()
			return &ExitError{Code: code}
		}
	},
}
