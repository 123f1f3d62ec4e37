package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wordscript/lword/internal/vm"
)

var (
	evalExpr  string
	dumpWords bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run an L file or expression",
	Long: `Execute an L program from a file or inline expression.

Examples:
  # Run a script file
  lword run script.l

  # Evaluate an inline expression
  lword run -e "2+3*4;"

  # Run with the emitted Word stream dumped first (for debugging)
  lword run --dump-words script.l`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "evaluate inline code instead of reading from file")
	runCmd.Flags().BoolVar(&dumpWords, "dump-words", false, "dump the emitted Word stream before running")
}

func runScript(_ *cobra.Command, args []string) error {
	source, file, err := readSourceArg(evalExpr, args)
	if err != nil {
		return err
	}

	out, err := compileSource(source, file)
	if err != nil {
		return err
	}

	if dumpWords {
		dumpProgram(os.Stderr, out)
	}

	machine := vm.New(out.Words, out.Floats, out.Strings, os.Stdout)
	top, err := machine.Run()
	if err != nil {
		return fmt.Errorf("runtime error: %w", err)
	}

	rendered, err := machine.Format(top)
	if err != nil {
		return fmt.Errorf("runtime error: %w", err)
	}
	fmt.Println(rendered)
	return nil
}
