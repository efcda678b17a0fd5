package module

import "github.com/wasymex/wasymex-go/internal/wasymex/value"

// Op is the closed set of instructions the interpreter understands. An
// unrecognized concrete type reaching the engine's dispatch is a programmer
// error (spec §9 "Instruction dispatch") and panics rather than no-ops.
type Op interface{ isOp() }

type OpDrop struct{}

func (OpDrop) isOp() {}

type OpConst struct{ Value int32 }

func (OpConst) isOp() {}

type OpLocalGet struct{ Local LocalID }

func (OpLocalGet) isOp() {}

type OpLocalSet struct{ Local LocalID }

func (OpLocalSet) isOp() {}

type OpLocalTee struct{ Local LocalID }

func (OpLocalTee) isOp() {}

type OpGlobalGet struct{ Global uint32 }

func (OpGlobalGet) isOp() {}

type OpGlobalSet struct{ Global uint32 }

func (OpGlobalSet) isOp() {}

type OpUnop struct{ Op value.UnOp }

func (OpUnop) isOp() {}

type OpBinop struct{ Op value.BinOp }

func (OpBinop) isOp() {}

type OpSelect struct{}

func (OpSelect) isOp() {}

// OpBlock and OpLoop introduce a new nested instruction sequence; the
// engine jumps into Seq and re-enqueues rather than recursing (spec §4.5).
type OpBlock struct{ Seq BlockID }

func (OpBlock) isOp() {}

type OpLoop struct{ Seq BlockID }

func (OpLoop) isOp() {}

type OpIfElse struct {
	Consequent BlockID
	Alternative BlockID
}

func (OpIfElse) isOp() {}

type OpBr struct{ Target BlockID }

func (OpBr) isOp() {}

type OpBrIf struct{ Target BlockID }

func (OpBrIf) isOp() {}

type OpCall struct{ Func FunctionID }

func (OpCall) isOp() {}

type OpReturn struct{}

func (OpReturn) isOp() {}

type OpMemorySize struct{}

func (OpMemorySize) isOp() {}

type OpMemoryGrow struct{}

func (OpMemoryGrow) isOp() {}

// OpLoad's AccessBits and OpStore's StoreBits are the access widths the
// memory model lowers to per-byte array operations (spec §4.3): 8, 16, or
// 32 bits.
type OpLoad struct {
	Offset      int32
	AccessBits  uint32
	ResultBits  uint32
	ZeroExtend  bool
}

func (OpLoad) isOp() {}

type OpStore struct {
	Offset     int32
	StoreBits  uint32
}

func (OpStore) isOp() {}
