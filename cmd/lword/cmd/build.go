package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wordscript/lword/internal/serializer"
	"github.com/wordscript/lword/internal/vm"
)

var (
	buildOutput  string
	buildVerbose bool
)

var buildCmd = &cobra.Command{
	Use:   "build [file]",
	Short: "Compile an L file to a serialized bytecode artifact",
	Long: `Compile an L program to its section-framed binary artifact (spec.md §4.4)
and save it as a .lwc file, for later execution with "lword exec".`,
	Args: cobra.ExactArgs(1),
	RunE: buildScript,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output file (default: <input>.lwc)")
	buildCmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "verbose output")
}

func buildScript(_ *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	out, err := compileSource(string(content), filename)
	if err != nil {
		return err
	}

	data := serializer.Serialize(serializer.Program{
		Words:      out.Words,
		Floats:     out.Floats,
		Strings:    out.Strings,
		LocalCount: out.LocalCount,
	})

	outFile := buildOutput
	if outFile == "" {
		ext := filepath.Ext(filename)
		if ext != "" {
			outFile = strings.TrimSuffix(filename, ext) + ".lwc"
		} else {
			outFile = filename + ".lwc"
		}
	}

	if err := os.WriteFile(outFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", outFile, err)
	}

	if buildVerbose {
		fmt.Fprintf(os.Stderr, "Words: %d, Floats: %d, Strings: %d, Locals: %d\n",
			len(out.Words), len(out.Floats), len(out.Strings), out.LocalCount)
		fmt.Fprintf(os.Stderr, "Bytecode written to %s (%d bytes)\n", outFile, len(data))
	} else {
		fmt.Printf("Compiled %s -> %s\n", filename, outFile)
	}

	return nil
}

var execCmd = &cobra.Command{
	Use:   "exec [file.lwc]",
	Short: "Load and run a serialized bytecode artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  execArtifact,
}

func init() {
	rootCmd.AddCommand(execCmd)
}

func execArtifact(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", args[0], err)
	}

	p, err := serializer.Load(data)
	if err != nil {
		return fmt.Errorf("load error: %w", err)
	}

	machine := vm.New(p.Words, p.Floats, p.Strings, os.Stdout)
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
