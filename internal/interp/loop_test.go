package interp

import (
	"testing"

	"github.com/stealthrocket/wasmc/internal/wasm"
)

// factModuleBytes encodes:
//
//	(func (export "fact") (param i32) (result i32)
//	  (local i32)
//	  i32.const 1
//	  local.set 1
//	  (block
//	    (loop
//	      local.get 0
//	      i32.eqz
//	      br_if 1
//	      local.get 1
//	      local.get 0
//	      i32.mul
//	      local.set 1
//	      local.get 0
//	      i32.const 1
//	      i32.sub
//	      local.set 0
//	      br 0))
//	  local.get 1)
func factModuleBytes() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,

		// type section: (i32)->i32
		0x01, 0x06,
		0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f,

		// function section
		0x03, 0x02,
		0x01, 0x00,

		// export section: "fact"
		0x07, 0x08,
		0x01, 0x04, 'f', 'a', 'c', 't', 0x00, 0x00,

		// code section
		0x0a, 0x27,
		0x01, 0x25,
		0x01, 0x01, 0x7f, // 1 local decl group: 1 x i32
		0x41, 0x01, // i32.const 1
		0x21, 0x01, // local.set 1
		0x02, 0x40, // block void
		0x03, 0x40, // loop void
		0x20, 0x00, // local.get 0
		0x45,       // i32.eqz
		0x0d, 0x01, // br_if 1
		0x20, 0x01, // local.get 1
		0x20, 0x00, // local.get 0
		0x6c,       // i32.mul
		0x21, 0x01, // local.set 1
		0x20, 0x00, // local.get 0
		0x41, 0x01, // i32.const 1
		0x6b,       // i32.sub
		0x21, 0x00, // local.set 0
		0x0c, 0x00, // br 0
		0x0b, // end loop
		0x0b, // end block
		0x20, 0x01, // local.get 1
		0x0b, // end function
	}
}

func TestEngineFactorialLoop(t *testing.T) {
	m, e := loadModule(t, factModuleBytes())
	exp, ok := m.FindExport("fact")
	if !ok {
		t.Fatalf("export fact not found")
	}
	fn := m.Function(exp.Index)

	cases := []struct{ n, want int32 }{
		{0, 1},
		{1, 1},
		{5, 120},
		{10, 3628800},
	}
	for _, c := range cases {
		e.Reset()
		e.Push(wasm.I32(c.n))
		if err := e.CallExported(fn); err != nil {
			t.Fatalf("fact(%d): unexpected trap: %v", c.n, err)
		}
		if got := e.Pop().I32(); got != c.want {
			t.Fatalf("fact(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}
