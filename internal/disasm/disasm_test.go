package disasm

import (
	"os"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/wordscript/lword/internal/emitter"
	"github.com/wordscript/lword/internal/lexer"
	"github.com/wordscript/lword/internal/parser"
)

func compile(t *testing.T, src string) emitter.Output {
	t.Helper()
	p := parser.New(lexer.New(src), src, "")
	prog := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors for %q: %v", src, p.Errors())
	}
	e := emitter.New(src, "")
	out, errs := e.Emit(prog)
	if len(errs) > 0 {
		t.Fatalf("emit errors for %q: %v", src, errs)
	}
	return out
}

func TestDisassembleArithmetic(t *testing.T) {
	out := compile(t, "2+3*4;")
	snaps.MatchSnapshot(t, ToString(out.Words, out.Floats, out.Strings))
}

func TestDisassembleIfElse(t *testing.T) {
	out := compile(t, "if true {2} else {3};")
	snaps.MatchSnapshot(t, ToString(out.Words, out.Floats, out.Strings))
}

func TestDisassembleVarDeclAndTable(t *testing.T) {
	out := compile(t, `var x = 1.5; [1: "a", _: "z"];`)
	snaps.MatchSnapshot(t, ToString(out.Words, out.Floats, out.Strings))
}

func TestMain(m *testing.M) {
	v := m.Run()
	snaps.Clean(m, snaps.CleanOpts{Sort: true})
	os.Exit(v)
}
