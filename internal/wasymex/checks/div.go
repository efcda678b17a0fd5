// Package checks implements the pluggable safety properties that
// accumulate predicates along a path as it's stepped and discharge them
// against the path's constraints once it completes (spec §4.6).
package checks

import (
	"fmt"

	"github.com/wasymex/wasymex-go/internal/wasymex/module"
	"github.com/wasymex/wasymex-go/internal/wasymex/reporter"
	"github.com/wasymex/wasymex-go/internal/wasymex/smt"
	"github.com/wasymex/wasymex-go/internal/wasymex/state"
	"github.com/wasymex/wasymex-go/internal/wasymex/value"
)

// DivisionByZero flags any I32DivS/I32DivU/I32RemS/I32RemU whose divisor
// can be zero along some feasible path.
type DivisionByZero struct {
	constraints map[module.Loc]smt.Bool
}

// NewDivisionByZero starts a fresh check with no recorded predicates.
func NewDivisionByZero() *DivisionByZero {
	return &DivisionByZero{constraints: make(map[module.Loc]smt.Bool)}
}

func (c *DivisionByZero) Name() string { return "DivisionByZero" }

// Clone gives the new execution its own constraints map, so that forking a
// path never lets the fork's divisor predicates leak into the original's.
func (c *DivisionByZero) Clone() state.Check {
	clone := &DivisionByZero{constraints: make(map[module.Loc]smt.Bool, len(c.constraints))}
	for loc, pred := range c.constraints {
		clone.constraints[loc] = pred
	}
	return clone
}

// Check records "divisor == 0" at loc whenever instr is a dividing binop,
// reading the not-yet-popped rhs off the top of the current frame's stack
// (the convention every instruction's operands are checked pre-pop, spec
// §4.6).
func (c *DivisionByZero) Check(ctx *smt.Context, exec *state.Execution, instr module.Instr) {
	binop, ok := instr.Op.(module.OpBinop)
	if !ok {
		return
	}
	switch binop.Op {
	case value.DivS, value.DivU, value.RemS, value.RemU:
	default:
		return
	}

	frame := exec.State.Top()
	rhs := frame.ValueStack[len(frame.ValueStack)-1]
	c.constraints[instr.Loc] = rhs.AsSymbolic(ctx).Eq(ctx.Zero(value.Width))
}

// Run discharges every recorded predicate: if any is satisfiable alongside
// the path's own constraints, a zero divisor is reachable.
func (c *DivisionByZero) Run(ctx *smt.Context, exec *state.Execution, inputs map[module.LocalID]value.Value) state.CheckResult {
	solver := exec.GetSolver(ctx)
	for loc, constraint := range c.constraints {
		solver.Push()
		solver.Assert(constraint)

		if solver.Check() != smt.Unsat {
			model := solver.Model()
			return state.CheckResult{
				Kind:    state.CheckFail,
				Message: fmt.Sprintf("division by zero @ %v with inputs %s", loc, reporter.FormatModel(ctx, inputs, model)),
			}
		}
		solver.Pop(1)
	}
	return state.CheckResult{Kind: state.CheckOk}
}
