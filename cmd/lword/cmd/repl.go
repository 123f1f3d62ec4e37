package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wordscript/lword/internal/vm"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive L REPL",
	Long: `Start the line-buffered L REPL (spec.md §6): each line recompiles and
reruns the whole accumulated source, printing the finalized top-of-stack
Word. "exit" quits, "help" prints a summary.`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, _ []string) error {
	return repl(os.Stdin, os.Stdout)
}

func repl(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	var source strings.Builder

	fmt.Fprintln(out, "lword REPL — type \"help\" for a summary, \"exit\" to quit")
	fmt.Fprint(out, "> ")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "exit":
			return nil
		case "help":
			printReplHelp(out)
			fmt.Fprint(out, "> ")
			continue
		case "":
			fmt.Fprint(out, "> ")
			continue
		}

		source.WriteString(line)
		source.WriteString("\n")

		result, err := evalReplSource(source.String())
		if err != nil {
			fmt.Fprintln(out, err)
		} else {
			fmt.Fprintln(out, result)
		}
		fmt.Fprint(out, "> ")
	}

	return scanner.Err()
}

func evalReplSource(source string) (string, error) {
	out, err := compileSource(source, "<repl>")
	if err != nil {
		return "", err
	}

	machine := vm.New(out.Words, out.Floats, out.Strings, os.Stdout)
	top, err := machine.Run()
	if err != nil {
		return "", fmt.Errorf("runtime error: %w", err)
	}
	return machine.Format(top)
}

func printReplHelp(out io.Writer) {
	fmt.Fprintln(out, `L REPL:
  Each line is appended to the session's source and the whole program is
  re-compiled and re-run from scratch; the finalized top-of-stack Word is
  printed.
  exit    quit the REPL
  help    show this summary`)
}
