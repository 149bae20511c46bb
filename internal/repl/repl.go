// Package repl implements the interactive line-oriented command loop
// described in spec.md §6: read an exported function name plus arguments,
// invoke it, print the result or trap, repeat until "quit" or EOF.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/stealthrocket/wasmc/internal/interp"
	"github.com/stealthrocket/wasmc/internal/wasm"
)

const prompt = "wasmc$ "

// REPL ties a decoded Module and its Engine to an input/output stream pair.
type REPL struct {
	Module *wasm.Module
	Engine *interp.Engine
	In     *bufio.Scanner
	Out    io.Writer
}

// New returns a REPL reading from in and writing prompts/results to out.
func New(m *wasm.Module, e *interp.Engine, in io.Reader, out io.Writer) *REPL {
	return &REPL{Module: m, Engine: e, In: bufio.NewScanner(in), Out: out}
}

// Run reads commands until "quit" or EOF, per spec.md §6's cancellation
// note: the engine itself has no timeout, only this loop's exit condition.
func (r *REPL) Run() {
	for {
		fmt.Fprint(r.Out, prompt)
		if !r.In.Scan() {
			return
		}
		line := strings.TrimSpace(r.In.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			return
		}
		r.dispatch(line)
	}
}

func (r *REPL) dispatch(line string) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "funcs":
		r.cmdFuncs()
		return
	case "mem":
		r.cmdMem(args)
		return
	}

	r.invoke(name, args)
}

func (r *REPL) invoke(name string, args []string) {
	export, ok := r.Module.FindExport(name)
	if !ok || export.Kind != wasm.ExportFunction {
		fmt.Fprintf(r.Out, "Exception: no exported function %q\n", name)
		return
	}
	fn := r.Module.Function(export.Index)
	if fn == nil {
		fmt.Fprintf(r.Out, "Exception: no exported function %q\n", name)
		return
	}
	if len(args) != fn.ParamCount() {
		fmt.Fprintf(r.Out, "Exception: %s expects %d argument(s), got %d\n", name, fn.ParamCount(), len(args))
		return
	}

	r.Engine.Reset()
	for i, kind := range fn.Type.Params {
		v, err := parseArg(args[i], kind)
		if err != nil {
			fmt.Fprintf(r.Out, "Exception: argument %d: %v\n", i, err)
			return
		}
		r.Engine.Push(v)
	}

	if err := r.Engine.CallExported(fn); err != nil {
		fmt.Fprintf(os.Stderr, "Exception: %v\n", err)
		return
	}

	if fn.ResultCount() == 1 {
		fmt.Fprintln(r.Out, r.Engine.Pop())
	}
}

// parseArg reproduces strtoul/strtoull/strtod's parsing per parameter kind
// (spec.md §6), including the case-insensitive "-nan" literal.
func parseArg(s string, kind wasm.ValKind) (wasm.Value, error) {
	if strings.EqualFold(s, "-nan") {
		switch kind {
		case wasm.KindF32:
			return wasm.F32(float32(math.Copysign(math.NaN(), -1))), nil
		case wasm.KindF64:
			return wasm.F64(math.Copysign(math.NaN(), -1)), nil
		}
	}

	switch kind {
	case wasm.KindI32:
		v, err := strconv.ParseUint(strings.TrimPrefix(s, "-"), 0, 32)
		if err != nil {
			return wasm.Value{}, err
		}
		if strings.HasPrefix(s, "-") {
			v = -v // strtoul negates a leading minus in unsigned arithmetic
		}
		return wasm.U32(uint32(v)), nil
	case wasm.KindI64:
		v, err := strconv.ParseUint(strings.TrimPrefix(s, "-"), 0, 64)
		if err != nil {
			return wasm.Value{}, err
		}
		if strings.HasPrefix(s, "-") {
			v = -v
		}
		return wasm.U64(v), nil
	case wasm.KindF32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return wasm.Value{}, err
		}
		return wasm.F32(float32(v)), nil
	case wasm.KindF64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return wasm.Value{}, err
		}
		return wasm.F64(v), nil
	default:
		return wasm.Value{}, fmt.Errorf("unsupported parameter kind %s", kind)
	}
}

func (r *REPL) cmdFuncs() {
	for _, exp := range r.Module.Exports {
		if exp.Kind != wasm.ExportFunction {
			continue
		}
		fn := r.Module.Function(exp.Index)
		if fn == nil {
			continue
		}
		fmt.Fprintf(r.Out, "%s%s\n", exp.Name, signatureString(fn.Type))
	}
}

func signatureString(t wasm.FuncType) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range t.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(")->")
	if kind, ok := t.Result(); ok {
		b.WriteString(kind.String())
	} else {
		b.WriteString("()")
	}
	return b.String()
}

func (r *REPL) cmdMem(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(r.Out, "Exception: usage: mem <addr> <len>")
		return
	}
	addr, err1 := strconv.ParseUint(args[0], 0, 32)
	length, err2 := strconv.ParseUint(args[1], 0, 32)
	if err1 != nil || err2 != nil {
		fmt.Fprintln(r.Out, "Exception: mem: invalid addr/len")
		return
	}
	mem := r.Module.Memory
	if mem == nil || addr+length > uint64(len(mem.Bytes)) {
		fmt.Fprintln(r.Out, "Exception: mem: out of bounds")
		return
	}
	data := mem.Bytes[addr : addr+length]
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(r.Out, "%08x  ", addr+uint64(i))
		for _, b := range data[i:end] {
			fmt.Fprintf(r.Out, "%02x ", b)
		}
		fmt.Fprintln(r.Out)
	}
}
