// Command wasymex-crack is a worked example of driving the engine by hand
// to recover a password from a checksum function: it seeds memory with
// symbolic password bytes, runs the function to completion, then asks the
// solver for an assignment matching the target checksum.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wasymex/wasymex-go/internal/wasymex/engine"
	"github.com/wasymex/wasymex-go/internal/wasymex/module"
	"github.com/wasymex/wasymex-go/internal/wasymex/smt"
	"github.com/wasymex/wasymex-go/internal/wasymex/state"
)

func main() {
	var (
		input        string
		quiet        bool
		mainFunc     string
		checksum     int32
		passwordLen  uint32
	)

	cmd := &cobra.Command{
		Use:   "wasymex-crack",
		Short: "Recover a password from a checksum function via symbolic memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(input, mainFunc, checksum, passwordLen)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "path to a WASM binary")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-terminal log output")
	cmd.Flags().StringVarP(&mainFunc, "main", "m", "", "name (or index) of the checksum function")
	cmd.Flags().Int32VarP(&checksum, "checksum", "c", 0, "target checksum value")
	cmd.Flags().Uint32VarP(&passwordLen, "password-length", "l", 5, "number of password bytes to recover")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("main")
	cmd.MarkFlagRequired("checksum")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(input, mainFunc string, checksum int32, passwordLen uint32) error {
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open %s: %w", input, err)
	}
	defer f.Close()

	mod, err := module.Load(f)
	if err != nil {
		return fmt.Errorf("decode module: %w", err)
	}

	ctx := smt.NewContext()
	eng := engine.New(ctx, mod, nil)
	eng.Initialize()

	fn, ok := mod.FuncByName(mainFunc)
	if !ok {
		idx, parseErr := strconv.Atoi(mainFunc)
		if parseErr != nil {
			return fmt.Errorf("no such function: %s", mainFunc)
		}
		fn = mod.Func(module.FunctionID(idx))
	}

	initial := eng.GetInitialExecution(fn)
	mem := initial.State.Memory
	eng.SetMaxHotness(passwordLen + 2)

	passwordBytes := make([]smt.BV, passwordLen)
	for i := uint32(0); i < passwordLen; i++ {
		b := ctx.BVConst(fmt.Sprintf("pwd%d", i), 8)
		mem.Array = mem.Array.Store(ctx.BVFromInt64(int64(i), 32), b)
		passwordBytes[i] = b
	}
	mem.Array = mem.Array.Store(ctx.BVFromInt64(int64(passwordLen), 32), ctx.Zero(8))

	executions := eng.GetFuncExecutions(fn, initial)
	for _, exec := range executions {
		if exec.Status != state.StatusComplete {
			continue
		}
		frame := exec.State.Top()
		returnValue := frame.Peek()

		solver := exec.GetSolver(ctx)
		solver.Assert(returnValue.AsSymbolic(ctx).Eq(ctx.BVFromInt64(int64(checksum), 32)))
		for _, b := range passwordBytes {
			solver.Assert(b.SGe(ctx.BVFromInt64(int64('a'), 8)))
			solver.Assert(b.SLe(ctx.BVFromInt64(int64('z'), 8)))
		}

		if solver.Check() != smt.Sat {
			continue
		}
		model := solver.Model()
		password := make([]byte, len(passwordBytes))
		for i, b := range passwordBytes {
			password[i] = byte(model.EvalBV(b).Int64())
		}
		fmt.Println(string(password))
	}

	return nil
}
