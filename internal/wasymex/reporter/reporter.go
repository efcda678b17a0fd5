// Package reporter renders analysis results to the terminal: per-function
// banners, the collected execution paths, and each path's check verdicts
// (spec §4.6, §6). Colors follow the teacher's checkmark-style CLI output;
// anything that isn't meant for a human terminal goes through zap instead.
package reporter

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/wasymex/wasymex-go/internal/wasymex/module"
	"github.com/wasymex/wasymex-go/internal/wasymex/smt"
	"github.com/wasymex/wasymex-go/internal/wasymex/state"
	"github.com/wasymex/wasymex-go/internal/wasymex/value"
)

var (
	funcName  = color.New(color.Bold, color.FgCyan).SprintFunc()
	section   = color.New(color.FgBlue).SprintFunc()
	feasible  = color.New(color.FgWhite).SprintFunc()
	faint     = color.New(color.FgHiBlack).SprintFunc()
	warn      = color.New(color.FgYellow).SprintFunc()
	ok        = color.New(color.FgGreen).SprintFunc()
	fail      = color.New(color.FgRed).SprintFunc()
)

// Reporter prints analysis output to stdout and emits structured log lines
// for anything a human isn't meant to parse off the terminal.
type Reporter struct {
	log *zap.Logger
}

// New builds a reporter backed by log, used for the non-terminal lines
// (trace-level detail the teacher's CLI keeps out of the println output).
func New(log *zap.Logger) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{log: log}
}

// ReportFunc prints the banner introducing one function's analysis.
func (r *Reporter) ReportFunc(name string) {
	fmt.Println(funcName(name))
}

// ReportExecutions prints the collected path count and a one-line summary
// of each: Complete paths print their id and path constraints, anything
// else prints its status followed by the same id and constraints.
func (r *Reporter) ReportExecutions(executions []*state.Execution) {
	fmt.Printf("  %s\n", section(fmt.Sprintf("Collected %d Execution Paths", len(executions))))
	for _, exec := range executions {
		if exec.Status == state.StatusComplete {
			fmt.Printf("    %s\n", feasible(exec.String()))
			continue
		}
		fmt.Printf("    ✗ %s %s\n", warn(statusLabel(exec.Status)), faint(exec.String()))
	}
}

func statusLabel(s state.Status) string {
	switch s {
	case state.StatusTerminated:
		return "Terminated"
	case state.StatusTrap:
		return "Trap"
	default:
		return s.String()
	}
}

// FormatModel renders a model's evaluation of every input local as
// "local<N>=<value>", in the style the original's crash reports use.
func FormatModel(ctx *smt.Context, inputs map[module.LocalID]value.Value, model *smt.Model) string {
	parts := make([]string, 0, len(inputs))
	for id, v := range inputs {
		var rendered string
		if v.IsConcrete() {
			rendered = fmt.Sprintf("%d", v.AsConcrete())
		} else {
			rendered = fmt.Sprintf("%d", model.EvalBV(v.AsSymbolic(ctx)).Int64())
		}
		parts = append(parts, fmt.Sprintf("local%d=%s", id, rendered))
	}
	return strings.Join(parts, ", ")
}

// ReportChecks solves each execution's path constraints alone; infeasible
// paths are skipped, feasible ones have every registered Check run and its
// verdict printed.
func (r *Reporter) ReportChecks(ctx *smt.Context, inputs map[module.LocalID]value.Value, executions []*state.Execution) {
	fmt.Printf("  %s\n", section("Execution Path Checks"))
	for _, exec := range executions {
		model, feasibleRun := exec.Solve(ctx)
		if !feasibleRun {
			fmt.Printf("%s\n", faint(fmt.Sprintf("    #%d: Infeasible; skipping...", exec.ID)))
			continue
		}

		fmt.Printf("%s\n", feasible(fmt.Sprintf("    #%d: Feasible; Input=[%s]", exec.ID, FormatModel(ctx, inputs, model))))

		checks := exec.Checks
		exec.Checks = nil
		for _, check := range checks {
			result := check.Run(ctx, exec, inputs)
			switch result.Kind {
			case state.CheckOk:
				fmt.Printf("        %s\n", ok(fmt.Sprintf("[%s] ✓", check.Name())))
			case state.CheckPossibleFail:
				fmt.Printf("        %s\n", warn(fmt.Sprintf("[%s] ? %s", check.Name(), result.Message)))
			case state.CheckFail:
				fmt.Printf("        %s\n", fail(fmt.Sprintf("[%s] ✗ %s", check.Name(), result.Message)))
				r.log.Warn("check failed", zap.String("check", check.Name()), zap.Uint64("execution", exec.ID))
			}
		}
	}
}
