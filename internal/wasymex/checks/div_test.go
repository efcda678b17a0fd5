package checks

import (
	"testing"

	"github.com/wasymex/wasymex-go/internal/wasymex/module"
	"github.com/wasymex/wasymex-go/internal/wasymex/smt"
	"github.com/wasymex/wasymex-go/internal/wasymex/state"
	"github.com/wasymex/wasymex-go/internal/wasymex/value"
)

func execWithStack(stack ...value.Value) *state.Execution {
	st := state.NewState()
	frame := state.NewFrame(module.FunctionID(0), nil)
	frame.ValueStack = append(frame.ValueStack, stack...)
	st.CallStack = append(st.CallStack, frame)
	return state.NewExecution(st, module.BlockID(0))
}

func TestDivisionByZeroIgnoresNonDividingBinops(t *testing.T) {
	ctx := smt.NewContext()
	exec := execWithStack(value.Concrete(1), value.Concrete(2))
	c := NewDivisionByZero()

	loc := module.Loc{Block: 0, At: 0}
	c.Check(ctx, exec, module.Instr{Loc: loc, Op: module.OpBinop{Op: value.Add}})

	if len(c.constraints) != 0 {
		t.Errorf("Add recorded a division constraint: %v", c.constraints)
	}
}

func TestDivisionByZeroFlagsSymbolicDivisor(t *testing.T) {
	ctx := smt.NewContext()
	rhs := ctx.BVConst("rhs", value.Width)
	exec := execWithStack(value.Concrete(10), value.Symbolic(rhs))
	c := NewDivisionByZero()

	loc := module.Loc{Block: 0, At: 0}
	c.Check(ctx, exec, module.Instr{Loc: loc, Op: module.OpBinop{Op: value.DivS}})

	result := c.Run(ctx, exec, nil)
	if result.Kind != state.CheckFail {
		t.Fatalf("Run = %v, want CheckFail (rhs == 0 is feasible)", result.Kind)
	}
}

func TestDivisionByZeroOkWhenDivisorProvablyNonzero(t *testing.T) {
	ctx := smt.NewContext()
	rhs := ctx.BVConst("rhs", value.Width)
	exec := execWithStack(value.Concrete(10), value.Symbolic(rhs))
	exec.Constraints = append(exec.Constraints, rhs.Ne(ctx.Zero(value.Width)))
	c := NewDivisionByZero()

	loc := module.Loc{Block: 0, At: 0}
	c.Check(ctx, exec, module.Instr{Loc: loc, Op: module.OpBinop{Op: value.DivU}})

	result := c.Run(ctx, exec, nil)
	if result.Kind != state.CheckOk {
		t.Fatalf("Run = %v, want CheckOk when rhs != 0 is a path constraint", result.Kind)
	}
}

func TestDivisionByZeroDiscoversConcreteZeroDivisor(t *testing.T) {
	ctx := smt.NewContext()
	exec := execWithStack(value.Concrete(10), value.Concrete(0))
	c := NewDivisionByZero()

	loc := module.Loc{Block: 0, At: 0}
	c.Check(ctx, exec, module.Instr{Loc: loc, Op: module.OpBinop{Op: value.RemS}})

	result := c.Run(ctx, exec, nil)
	if result.Kind != state.CheckFail {
		t.Fatalf("Run = %v, want CheckFail for a concrete zero divisor", result.Kind)
	}
}
