package module

import "testing"

// buildNested builds:
//
//	local.get 0      @ entry:0
//	block             @ entry:1 (seq A)
//	  local.get 0      @ A:0
//	  drop             @ A:1
//	end
//	drop              @ entry:2 (resumes here after the block)
//	return            @ entry:3
func buildNested(t *testing.T) (*Function, BlockID) {
	t.Helper()
	b := NewBuilder()
	fb := b.Func("f", I32)
	entry := fb.EntryBlock()
	entry.LocalGet(0)
	inner := entry.Block()
	inner.LocalGet(0)
	inner.Drop()
	entry.Drop()
	entry.Return()

	mod := b.Build()
	fn, _ := mod.FuncByName("f")
	return fn, innerID(fn)
}

// innerID finds the block id the entry's OpBlock instruction refers to.
func innerID(fn *Function) BlockID {
	for _, instr := range fn.Block(fn.Body.Entry).Instrs {
		if blk, ok := instr.Op.(OpBlock); ok {
			return blk.Seq
		}
	}
	panic("no nested block found")
}

func TestComputeInfoResolvesNestedBlockEnd(t *testing.T) {
	fn, inner := buildNested(t)
	info := ComputeInfo(fn)

	if info.Kinds[inner] != KindBlockSeq {
		t.Fatalf("inner block kind = %v, want KindBlockSeq", info.Kinds[inner])
	}

	end, ok := info.Ends[inner]
	if !ok {
		t.Fatalf("inner block has no Ends entry")
	}
	if end.Block != fn.Body.Entry {
		t.Errorf("end.Block = %v, want entry block %v", end.Block, fn.Body.Entry)
	}

	entryBlock := fn.Block(fn.Body.Entry)
	wantLoc := entryBlock.Instrs[2].Loc // the `drop` right after `block...end`
	if end != wantLoc {
		t.Errorf("end = %+v, want %+v", end, wantLoc)
	}
}

func TestComputeInfoTracksReferencedLocals(t *testing.T) {
	fn, _ := buildNested(t)
	info := ComputeInfo(fn)

	if _, ok := info.Locals[LocalID(0)]; !ok {
		t.Errorf("local 0 should be recorded as referenced")
	}
}

func TestComputeInfoLoopKind(t *testing.T) {
	b := NewBuilder()
	fb := b.Func("loopy")
	entry := fb.EntryBlock()
	loop := entry.Loop()
	loop.Br(loop)
	entry.Return()

	mod := b.Build()
	fn, _ := mod.FuncByName("loopy")
	info := ComputeInfo(fn)

	var loopID BlockID
	for _, instr := range fn.Block(fn.Body.Entry).Instrs {
		if l, ok := instr.Op.(OpLoop); ok {
			loopID = l.Seq
		}
	}

	if info.Kinds[loopID] != KindLoopSeq {
		t.Errorf("loop kind = %v, want KindLoopSeq", info.Kinds[loopID])
	}
}
