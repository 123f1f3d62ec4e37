package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var disasmEvalExpr string

var disasmCmd = &cobra.Command{
	Use:   "disasm [file]",
	Short: "Disassemble an L file or expression",
	Long: `Compile an L program and print its constant pools and its Word stream
one instruction per line (offset, opcode name, and a tag-aware rendering of
the operand, local slot, or jump target), grounded on the teacher's bytecode
disassembler naming and table style.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDisasm,
}

func init() {
	rootCmd.AddCommand(disasmCmd)

	disasmCmd.Flags().StringVarP(&disasmEvalExpr, "eval", "e", "", "disassemble inline code instead of reading from file")
}

func runDisasm(_ *cobra.Command, args []string) error {
	source, file, err := readSourceArg(disasmEvalExpr, args)
	if err != nil {
		return err
	}

	out, err := compileSource(source, file)
	if err != nil {
		return err
	}

	dumpProgram(os.Stdout, out)
	return nil
}
