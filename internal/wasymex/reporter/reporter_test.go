package reporter

import (
	"testing"

	"github.com/wasymex/wasymex-go/internal/wasymex/module"
	"github.com/wasymex/wasymex-go/internal/wasymex/smt"
	"github.com/wasymex/wasymex-go/internal/wasymex/value"
)

func TestFormatModelRendersConcreteInputsDirectly(t *testing.T) {
	ctx := smt.NewContext()
	inputs := map[module.LocalID]value.Value{
		0: value.Concrete(7),
	}
	got := FormatModel(ctx, inputs, nil)
	if got != "local0=7" {
		t.Errorf("FormatModel = %q, want %q", got, "local0=7")
	}
}

func TestFormatModelEvaluatesSymbolicInputsAgainstModel(t *testing.T) {
	ctx := smt.NewContext()
	x := ctx.BVConst("local0", value.Width)
	inputs := map[module.LocalID]value.Value{
		0: value.Symbolic(x),
	}

	solver := ctx.NewSolver(nil)
	solver.Assert(x.Eq(ctx.BVFromInt64(42, value.Width)))
	if solver.Check() != smt.Sat {
		t.Fatalf("setup: expected x == 42 to be satisfiable")
	}
	model := solver.Model()

	got := FormatModel(ctx, inputs, model)
	if got != "local0=42" {
		t.Errorf("FormatModel = %q, want %q", got, "local0=42")
	}
}
