package wasm

import "testing"

// selModuleBytes encodes:
//
//	(func (export "sel") (param i32) (result i32)
//	  local.get 0
//	  if (result i32)
//	    i32.const 1
//	  else
//	    i32.const 2
//	  end)
func selModuleBytes() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,

		// type section: (i32)->i32
		0x01, 0x06,
		0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f,

		// function section
		0x03, 0x02,
		0x01, 0x00,

		// export section: "sel"
		0x07, 0x07,
		0x01, 0x03, 's', 'e', 'l', 0x00, 0x00,

		// code section
		0x0a, 0x0e,
		0x01, 0x0c, 0x00,
		0x20, 0x00, // local.get 0
		0x04, 0x7f, // if (result i32)
		0x41, 0x01, // i32.const 1
		0x05,       // else
		0x41, 0x02, // i32.const 2
		0x0b, // end if
		0x0b, // end function
	}
}

func TestResolveBlocksIfElse(t *testing.T) {
	m, err := Decode(selModuleBytes(), nilResolver{}, nopEvaluator{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	fn := &m.Functions[0]
	ifAddr := fn.StartAddr + 2 // local.get 0 is 2 bytes, if follows
	blk, ok := m.BlockLookup[ifAddr]
	if !ok {
		t.Fatalf("no block recorded at %#x", ifAddr)
	}
	if blk.Kind != BlockIf {
		t.Fatalf("Kind = %v, want BlockIf", blk.Kind)
	}
	if !blk.HasElse() {
		t.Fatalf("expected an else arm")
	}
	if blk.ElseAddr <= blk.StartAddr || blk.ElseAddr >= blk.EndAddr {
		t.Fatalf("ElseAddr %#x out of range (%#x, %#x)", blk.ElseAddr, blk.StartAddr, blk.EndAddr)
	}
	if blk.EndAddr != fn.EndAddr-1 {
		t.Fatalf("EndAddr = %#x, want %#x (the if's own end, one byte before the function's)", blk.EndAddr, fn.EndAddr-1)
	}
	if blk.BranchAddr != blk.EndAddr {
		t.Fatalf("non-loop BranchAddr = %#x, want EndAddr %#x", blk.BranchAddr, blk.EndAddr)
	}
	if n, ok := blk.Type.Result(); !ok || n != KindI32 {
		t.Fatalf("block result = (%v, %v), want (i32, true)", n, ok)
	}
}

func TestResolveBlocksLoopBranchAddr(t *testing.T) {
	m, err := Decode(factModuleBytesForBlockTest(), nilResolver{}, nopEvaluator{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	fn := &m.Functions[0]

	// block starts right after "i32.const 1; local.set 1" (4 bytes).
	blockAddr := fn.StartAddr + 4
	block, ok := m.BlockLookup[blockAddr]
	if !ok || block.Kind != BlockPlain {
		t.Fatalf("expected a plain block at %#x, got %+v (ok=%v)", blockAddr, block, ok)
	}

	loopAddr := blockAddr + 2
	loop, ok := m.BlockLookup[loopAddr]
	if !ok || loop.Kind != BlockLoop {
		t.Fatalf("expected a loop at %#x, got %+v (ok=%v)", loopAddr, loop, ok)
	}
	if loop.BranchAddr != loop.StartAddr+2 {
		t.Fatalf("loop BranchAddr = %#x, want StartAddr+2 = %#x", loop.BranchAddr, loop.StartAddr+2)
	}
	if block.BranchAddr != block.EndAddr {
		t.Fatalf("block BranchAddr = %#x, want its own EndAddr %#x", block.BranchAddr, block.EndAddr)
	}
}

// factModuleBytesForBlockTest is the same byte layout as the interpreter
// package's factorial loop fixture, duplicated here since test files cannot
// share unexported helpers across packages.
func factModuleBytesForBlockTest() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,

		0x01, 0x06,
		0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f,

		0x03, 0x02,
		0x01, 0x00,

		0x07, 0x08,
		0x01, 0x04, 'f', 'a', 'c', 't', 0x00, 0x00,

		0x0a, 0x27,
		0x01, 0x25,
		0x01, 0x01, 0x7f,
		0x41, 0x01,
		0x21, 0x01,
		0x02, 0x40,
		0x03, 0x40,
		0x20, 0x00,
		0x45,
		0x0d, 0x01,
		0x20, 0x01,
		0x20, 0x00,
		0x6c,
		0x21, 0x01,
		0x20, 0x00,
		0x41, 0x01,
		0x6b,
		0x21, 0x00,
		0x0c, 0x00,
		0x0b,
		0x0b,
		0x20, 0x01,
		0x0b,
	}
}
