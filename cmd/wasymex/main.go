// Command wasymex runs the symbolic execution engine over a WASM binary,
// printing every analyzed function's collected execution paths and the
// safety checks discharged against each one.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wasymex/wasymex-go/pkg/wasymex"
)

func main() {
	var (
		input      string
		quiet      bool
		maxHotness uint32
		funcName   string
	)

	cmd := &cobra.Command{
		Use:   "wasymex",
		Short: "Symbolic execution engine for the i32 subset of WASM",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open %s: %w", input, err)
			}
			defer f.Close()

			cfg := wasymex.DefaultConfig()
			cfg.Quiet = quiet
			if maxHotness > 0 {
				cfg.MaxHotness = maxHotness
			}
			if funcName != "" {
				cfg.Funcs = []string{funcName}
			}

			eng, err := wasymex.Load(f, cfg)
			if err != nil {
				return err
			}
			return eng.Analyze()
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "path to a WASM binary")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-terminal log output")
	cmd.Flags().Uint32VarP(&maxHotness, "max-hotness", "m", 0, "max times a loop body may run along one path (default 1)")
	cmd.Flags().StringVar(&funcName, "main", "", "analyze only this function, by export name or index")
	cmd.MarkFlagRequired("input")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
