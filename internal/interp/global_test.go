package interp

import (
	"testing"
)

// bumpModuleBytes encodes:
//
//	(global $counter (mut i32) (i32.const 10))
//	(func (export "bump") (result i32)
//	  global.get 0
//	  i32.const 1
//	  i32.add
//	  global.set 0
//	  global.get 0)
func bumpModuleBytes() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,

		// type section: ()->i32
		0x01, 0x05,
		0x01, 0x60, 0x00, 0x01, 0x7f,

		// function section
		0x03, 0x02,
		0x01, 0x00,

		// global section: mutable i32, init 10
		0x06, 0x06,
		0x01, 0x7f, 0x01, 0x41, 0x0a, 0x0b,

		// export section: "bump"
		0x07, 0x08,
		0x01, 0x04, 'b', 'u', 'm', 'p', 0x00, 0x00,

		// code section
		0x0a, 0x0d,
		0x01, 0x0b, 0x00,
		0x23, 0x00, // global.get 0
		0x41, 0x01, // i32.const 1
		0x6a,       // i32.add
		0x24, 0x00, // global.set 0
		0x23, 0x00, // global.get 0
		0x0b,
	}
}

func TestGlobalMutationPersistsAcrossCalls(t *testing.T) {
	m, e := loadModule(t, bumpModuleBytes())
	exp, ok := m.FindExport("bump")
	if !ok {
		t.Fatalf("export bump not found")
	}
	fn := m.Function(exp.Index)

	want := []int32{11, 12, 13}
	for _, w := range want {
		e.Reset()
		if err := e.CallExported(fn); err != nil {
			t.Fatalf("bump: unexpected trap: %v", err)
		}
		if got := e.Pop().I32(); got != w {
			t.Fatalf("bump() = %d, want %d", got, w)
		}
	}
	if got := m.Globals[0].Value.I32(); got != 13 {
		t.Fatalf("global value = %d, want 13", got)
	}
}

func TestGlobalInitialValue(t *testing.T) {
	m, _ := loadModule(t, bumpModuleBytes())
	if got := m.Globals[0].Value.I32(); got != 10 {
		t.Fatalf("initial global value = %d, want 10", got)
	}
	if !m.Globals[0].Mutable {
		t.Fatalf("global should be mutable")
	}
}
