package vm

import (
	"testing"

	"github.com/wordscript/lword/internal/emitter"
	"github.com/wordscript/lword/internal/lexer"
	"github.com/wordscript/lword/internal/parser"
)

func run(t *testing.T, src string) (string, *VM) {
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
	vm := New(out.Words, out.Floats, out.Strings, nil)
	top, err := vm.Run()
	if err != nil {
		t.Fatalf("run error for %q: %v", src, err)
	}
	s, err := vm.format(top)
	if err != nil {
		t.Fatalf("format error for %q: %v", src, err)
	}
	return s, vm
}

// TestIfElseTable exercises the if/else and option-fallback rows of spec.md
// §8's concrete test table.
func TestIfElseTable(t *testing.T) {
	cases := []struct{ src, want string }{
		{"if true {2};", "2?"},
		{"if false {2};", "no"},
		{"if false {2}; 3;", "3"},
		{"no else {3};", "3"},
		{"2? else {3};", "2"},
	}
	for _, c := range cases {
		got, _ := run(t, c.src)
		if got != c.want {
			t.Errorf("%q => %q, want %q", c.src, got, c.want)
		}
	}
}

func TestArithmeticPrecedenceAndEmbedding(t *testing.T) {
	got, _ := run(t, "2+3*4;")
	if got != "14" {
		t.Fatalf("2+3*4 => %q, want 14", got)
	}
}

func TestIntDivisionAndModulo(t *testing.T) {
	if got, _ := run(t, "7/2;"); got != "3" {
		t.Fatalf("7/2 => %q, want 3", got)
	}
	if got, _ := run(t, "(0-7)%2;"); got != "-1" {
		t.Fatalf("(0-7)%%2 => %q, want -1 (truncated, sign follows dividend)", got)
	}
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	p := parser.New(lexer.New("1/0;"), "1/0;", "")
	prog := p.ParseProgram()
	e := emitter.New("1/0;", "")
	out, _ := e.Emit(prog)
	vm := New(out.Words, out.Floats, out.Strings, nil)
	if _, err := vm.Run(); err == nil {
		t.Fatalf("expected a division-by-zero VM error")
	}
}

func TestFloatArithmeticIsHeapAllocated(t *testing.T) {
	got, _ := run(t, "1.5+2.5;")
	if got != "4" {
		t.Fatalf("1.5+2.5 => %q, want 4", got)
	}
}

func TestPowerPromotesToFloat(t *testing.T) {
	got, _ := run(t, "2^10;")
	if got != "1024" {
		t.Fatalf("2^10 => %q, want 1024", got)
	}
}

func TestStringEqualityByContent(t *testing.T) {
	if got, _ := run(t, `"hi"=="hi";`); got != "true" {
		t.Fatalf(`"hi"=="hi" => %q, want true`, got)
	}
	if got, _ := run(t, `"hi"=="bye";`); got != "false" {
		t.Fatalf(`"hi"=="bye" => %q, want false`, got)
	}
}

func TestVarDeclAndReassignmentPersistAcrossStatements(t *testing.T) {
	got, _ := run(t, "var x = 3; x = x + 1; x;")
	if got != "4" {
		t.Fatalf("var x = 3; x = x + 1; x; => %q, want 4", got)
	}
}

func TestScopeTrailingExpressionIsValue(t *testing.T) {
	got, _ := run(t, "{ var x = 10; x * 2 };")
	if got != "20" {
		t.Fatalf("scope result => %q, want 20", got)
	}
}

func TestOptionWrapAndUnwrap(t *testing.T) {
	if got, _ := run(t, "2?;"); got != "2?" {
		t.Fatalf("2? => %q, want 2?", got)
	}
	if got, _ := run(t, "2?!;"); got != "2" {
		t.Fatalf("2?! => %q, want 2", got)
	}
}

func TestUnwrapOfNoneIsRuntimeError(t *testing.T) {
	p := parser.New(lexer.New("no!;"), "no!;", "")
	prog := p.ParseProgram()
	e := emitter.New("no!;", "")
	out, _ := e.Emit(prog)
	vm := New(out.Words, out.Floats, out.Strings, nil)
	if _, err := vm.Run(); err == nil {
		t.Fatalf("expected an unwrap-of-none VM error")
	}
}

func TestTableLiteralWithDefaultKey(t *testing.T) {
	got, _ := run(t, `[1: "a", _: "z"];`)
	if got != `[1:a, _:z]` {
		t.Fatalf(`table literal => %q, want "[1:a, _:z]"`, got)
	}
}

func TestNotOperator(t *testing.T) {
	if got, _ := run(t, "not true;"); got != "false" {
		t.Fatalf("not true => %q, want false", got)
	}
	if got, _ := run(t, "not false;"); got != "true" {
		t.Fatalf("not false => %q, want true", got)
	}
}
