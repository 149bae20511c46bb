package wasm

// PageSize is the unit of linear memory growth: 64 KiB.
const PageSize = 65536

// MaxMemoryPages caps a memory's max_size at 2 GiB, per the MVP limit this
// interpreter enforces.
const MaxMemoryPages = 0x8000

// MaxTableSize caps a table's max_size at 65536 entries.
const MaxTableSize = 0x10000

// Memory is page-based linear memory.
type Memory struct {
	MinPages uint32
	MaxPages uint32
	Bytes    []byte
}

// NewMemory allocates a Memory with cur_size == min pages of zeroed bytes.
func NewMemory(min, max uint32) *Memory {
	if max > MaxMemoryPages {
		max = MaxMemoryPages
	}
	return &Memory{
		MinPages: min,
		MaxPages: max,
		Bytes:    make([]byte, uint64(min)*PageSize),
	}
}

// PageCount returns the current size in pages.
func (m *Memory) PageCount() uint32 { return uint32(len(m.Bytes) / PageSize) }

// Grow appends delta zero-initialized pages, returning the previous page
// count, or false if the growth would exceed MaxPages.
func (m *Memory) Grow(delta uint32) (prev uint32, ok bool) {
	prev = m.PageCount()
	if delta == 0 {
		return prev, true
	}
	if uint64(prev)+uint64(delta) > uint64(m.MaxPages) {
		return prev, false
	}
	m.Bytes = append(m.Bytes, make([]byte, uint64(delta)*PageSize)...)
	return prev, true
}

// Table holds indirectly callable function indices. Element kind is always
// funcref (0x70) in the MVP.
type Table struct {
	MinSize uint32
	MaxSize uint32
	Entries []uint32 // function indices; unset entries read as 0
}

// NewTable allocates a Table with zeroed entries.
func NewTable(min, max uint32) *Table {
	if max > MaxTableSize {
		max = MaxTableSize
	}
	return &Table{
		MinSize: min,
		MaxSize: max,
		Entries: make([]uint32, min),
	}
}

// Global is a single mutable-or-not value slot.
type Global struct {
	Value   Value
	Mutable bool
}

// ExportKind enumerates what an Export refers to.
type ExportKind int

const (
	ExportFunction ExportKind = iota
	ExportTable
	ExportMemory
	ExportGlobal
)

// Export names an entity reachable from outside the module.
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// Frame records the activation of a Block on the call stack.
type Frame struct {
	Block   *Block
	SavedSP int // operand-stack top before this frame's arguments, minus them
	SavedFP int // caller's frame pointer
	SavedPC int // return address; meaningful only for Function frames
}
