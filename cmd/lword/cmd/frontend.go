package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/wordscript/lword/internal/disasm"
	"github.com/wordscript/lword/internal/emitter"
	"github.com/wordscript/lword/internal/lexer"
	"github.com/wordscript/lword/internal/parser"
)

// compileSource runs source through the parser and emitter, printing any
// diagnostics (with source context) to stderr before returning an error.
func compileSource(source, file string) (emitter.Output, error) {
	p := parser.New(lexer.New(source), source, file)
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		fmt.Fprintln(os.Stderr, errs.Error())
		return emitter.Output{}, fmt.Errorf("parsing failed with %d error(s)", len(errs))
	}

	e := emitter.New(source, file)
	out, errs := e.Emit(prog)
	if len(errs) > 0 {
		fmt.Fprintln(os.Stderr, errs.Error())
		return emitter.Output{}, fmt.Errorf("emit failed with %d error(s)", len(errs))
	}
	return out, nil
}

// readSourceArg resolves the usual run/build/disasm input convention: an
// inline -e expression, a file argument, or (failing both) an error.
func readSourceArg(evalExpr string, args []string) (source, file string, err error) {
	if evalExpr != "" {
		return evalExpr, "<eval>", nil
	}
	if len(args) == 1 {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
		return string(content), args[0], nil
	}
	return "", "", fmt.Errorf("either provide a file path or use -e flag for inline code")
}

// dumpProgram writes a human-readable disassembly of out to w.
func dumpProgram(w io.Writer, out emitter.Output) {
	disasm.New(out.Words, out.Floats, out.Strings, w).Disassemble()
}
