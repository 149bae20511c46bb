package wasm

import "strconv"

// NoStartFunc marks a module with no start function.
const NoStartFunc = ^uint32(0)

// Module is the decoded, validated in-memory representation of one
// WebAssembly binary: its types, functions, single table, single memory,
// globals, and exports, plus the block lookup the execution engine relies on
// for O(1) control transfer.
//
// The runtime registers an executing interpreter needs (pc, operand stack,
// call stack, fp) are NOT stored here: they belong to a single invocation of
// the execution engine (internal/interp.Engine), not to the module, so that
// the REPL can reset them between calls without touching module state that
// must persist across calls (globals, memory, table).
type Module struct {
	Bytes []byte

	Types     []FuncType
	Functions []Block // imports first ([0, ImportFuncCount)), then locals

	ImportFuncCount uint32

	Table  *Table
	Memory *Memory

	Globals []Global
	Exports []Export

	StartFunc uint32 // NoStartFunc if absent

	BlockLookup BlockLookup

	// FunctionNames holds names recovered from the optional "name" custom
	// section's function-name subsection, keyed by function index. Empty if
	// the module carries none.
	FunctionNames map[uint32]string
}

// NewModule returns an empty Module ready for the section decoder to
// populate.
func NewModule(bytes []byte) *Module {
	return &Module{
		Bytes:         bytes,
		StartFunc:     NoStartFunc,
		BlockLookup:   BlockLookup{},
		FunctionNames: map[uint32]string{},
	}
}

// FunctionName returns a human-readable name for a function index, falling
// back to "func N" when the name section didn't cover it.
func (m *Module) FunctionName(idx uint32) string {
	if name, ok := m.FunctionNames[idx]; ok && name != "" {
		return name
	}
	return "func " + strconv.Itoa(int(idx))
}

// FindExport looks up an export by name.
func (m *Module) FindExport(name string) (Export, bool) {
	for _, e := range m.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return Export{}, false
}

// Function returns the Block describing function index idx.
func (m *Module) Function(idx uint32) *Block {
	if int(idx) >= len(m.Functions) {
		return nil
	}
	return &m.Functions[idx]
}
