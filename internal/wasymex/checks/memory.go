package checks

import (
	"fmt"

	"github.com/wasymex/wasymex-go/internal/wasymex/memory"
	"github.com/wasymex/wasymex-go/internal/wasymex/module"
	"github.com/wasymex/wasymex-go/internal/wasymex/reporter"
	"github.com/wasymex/wasymex-go/internal/wasymex/smt"
	"github.com/wasymex/wasymex-go/internal/wasymex/state"
	"github.com/wasymex/wasymex-go/internal/wasymex/value"
)

// OutOfBoundsMemory flags any Load whose accessed byte range can reach or
// exceed the memory's current size along some feasible path.
type OutOfBoundsMemory struct {
	constraints map[module.Loc]smt.Bool
}

func NewOutOfBoundsMemory() *OutOfBoundsMemory {
	return &OutOfBoundsMemory{constraints: make(map[module.Loc]smt.Bool)}
}

func (c *OutOfBoundsMemory) Name() string { return "Memory" }

// Clone gives the new execution its own constraints map, so that forking a
// path never lets the fork's bounds predicates leak into the original's.
func (c *OutOfBoundsMemory) Clone() state.Check {
	clone := &OutOfBoundsMemory{constraints: make(map[module.Loc]smt.Bool, len(c.constraints))}
	for loc, pred := range c.constraints {
		clone.constraints[loc] = pred
	}
	return clone
}

// Check records "end_index >= byte_size" at loc for every Load, where
// end_index is base+offset+access_bytes (base being the not-yet-popped
// dynamic index, offset the load's static offset) and byte_size is the
// memory's page count times the fixed page size. The comparison is signed
// (bvsge, as in the original, rather than bvuge): an end_index of 2^31 or
// more reads as negative and is never flagged, and a byte_size of 2^31 or
// more (32768 pages and up) reads as negative, so every load is flagged.
func (c *OutOfBoundsMemory) Check(ctx *smt.Context, exec *state.Execution, instr module.Instr) {
	load, ok := instr.Op.(module.OpLoad)
	if !ok {
		return
	}

	frame := exec.State.Top()
	baseIndex := frame.ValueStack[len(frame.ValueStack)-1]
	mem := exec.State.Memory

	accessIndex, err := value.BinaryOp(ctx, value.Add, value.Concrete(load.Offset), baseIndex)
	if err != nil {
		return
	}
	endIndex, err := value.BinaryOp(ctx, value.Add, value.Concrete(int32(load.AccessBits/8)), accessIndex)
	if err != nil {
		return
	}
	byteSize, err := value.BinaryOp(ctx, value.Mul, value.Concrete(int32(memory.PageSize)), mem.Size)
	if err != nil {
		return
	}

	c.constraints[instr.Loc] = endIndex.AsSymbolic(ctx).SGe(byteSize.AsSymbolic(ctx))
}

func (c *OutOfBoundsMemory) Run(ctx *smt.Context, exec *state.Execution, inputs map[module.LocalID]value.Value) state.CheckResult {
	solver := exec.GetSolver(ctx)
	for loc, constraint := range c.constraints {
		solver.Push()
		solver.Assert(constraint)

		if solver.Check() != smt.Unsat {
			model := solver.Model()
			return state.CheckResult{
				Kind:    state.CheckFail,
				Message: fmt.Sprintf("memory out of bounds @ %v with inputs %s", loc, reporter.FormatModel(ctx, inputs, model)),
			}
		}
		solver.Pop(1)
	}
	return state.CheckResult{Kind: state.CheckOk}
}
