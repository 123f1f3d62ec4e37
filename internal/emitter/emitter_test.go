package emitter

import (
	"testing"

	"github.com/wordscript/lword/internal/lexer"
	"github.com/wordscript/lword/internal/parser"
	"github.com/wordscript/lword/internal/word"
)

func compile(t *testing.T, src string) Output {
	t.Helper()
	p := parser.New(lexer.New(src), src, "")
	prog := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors for %q: %v", src, p.Errors())
	}
	e := New(src, "")
	out, errs := e.Emit(prog)
	if len(errs) > 0 {
		t.Fatalf("emit errors for %q: %v", src, errs)
	}
	return out
}

func opcodes(out Output) []word.OpCode {
	ops := make([]word.OpCode, len(out.Words))
	for i, w := range out.Words {
		ops[i] = w.OpCode()
	}
	return ops
}

func TestEmitIntLiteralIsPureValue(t *testing.T) {
	out := compile(t, "3;")
	if len(out.Words) != 2 {
		t.Fatalf("expected Value+Stop, got %v", opcodes(out))
	}
	if out.Words[0].OpCode() != word.Value || out.Words[0].Int() != 3 {
		t.Fatalf("expected Value(3), got %v", out.Words[0])
	}
	if out.Words[1].OpCode() != word.Stop {
		t.Fatalf("expected trailing Stop, got %v", out.Words[1])
	}
}

func TestEmitBinaryEmbedsRightOperand(t *testing.T) {
	out := compile(t, "2+3*4;")
	// 2 + (3*4): inner binary returns MultiplyThis(4) embedded, not appended;
	// outer binary's right side (the inner BinaryExpr) is not itself a pure
	// value, so it is realized (appended) and the outer op is plain Add.
	got := opcodes(out)
	want := []word.OpCode{word.Value, word.Value, word.MultiplyThis, word.Add, word.Stop}
	if len(got) != len(want) {
		t.Fatalf("opcodes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("opcodes = %v, want %v", got, want)
		}
	}
}

func TestEmitVarDeclAndReassign(t *testing.T) {
	out := compile(t, "var x = 3; x = 4; x;")
	got := opcodes(out)
	want := []word.OpCode{word.SetLocalThis, word.SetLocalThis, word.GetLocal, word.Stop}
	if len(got) != len(want) {
		t.Fatalf("opcodes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("opcodes = %v, want %v", got, want)
		}
	}
	if out.Words[0].Aux() != out.Words[1].Aux() {
		t.Fatalf("reassignment should target the same local slot: %d vs %d", out.Words[0].Aux(), out.Words[1].Aux())
	}
	if out.Words[2].Aux() != out.Words[0].Aux() {
		t.Fatalf("GetLocal should reference the declared slot")
	}
	if out.LocalCount != 1 {
		t.Fatalf("LocalCount = %d, want 1", out.LocalCount)
	}
}

func TestEmitIfTrueProducesSomeAtRuntimeShape(t *testing.T) {
	out := compile(t, "if true {2};")
	got := opcodes(out)
	want := []word.OpCode{
		word.Value,       // true
		word.JumpIfFalse, // -> false path
		word.Value,       // 2
		word.WrapInOption,
		word.Jump, // -> join
		word.Value, // None (false path)
		word.Stop,
	}
	if len(got) != len(want) {
		t.Fatalf("opcodes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("opcodes[%d] = %v, want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestEmitIfElseDesugarsIntoElseJumps(t *testing.T) {
	out := compile(t, "if true {2} else {3};")
	got := opcodes(out)
	want := []word.OpCode{
		word.Value,       // true
		word.JumpIfFalse, // -> L1 (false path of the If)
		word.Value,       // 2
		word.WrapInOption,
		word.Jump, // -> join of If
		word.Value, // None (If's false path)
		// Else wrapping the whole If:
		word.JumpIfNo, // -> fallback
		word.UnwrapOption,
		word.Jump, // -> join of Else
		word.Value, // 3 (fallback)
		word.Stop,
	}
	if len(got) != len(want) {
		t.Fatalf("opcodes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("opcodes[%d] = %v, want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestEmitFloatAndStringUseConstantPools(t *testing.T) {
	out := compile(t, `1.5; "hi";`)
	if len(out.Floats) != 1 || out.Floats[0] != 1.5 {
		t.Fatalf("Floats = %v, want [1.5]", out.Floats)
	}
	if len(out.Strings) != 1 || out.Strings[0] != "hi" {
		t.Fatalf("Strings = %v, want [hi]", out.Strings)
	}
	got := opcodes(out)
	want := []word.OpCode{word.ReadFromMap, word.ReadFromMap, word.Stop}
	if len(got) != len(want) {
		t.Fatalf("opcodes = %v, want %v", got, want)
	}
}

func TestEmitScopeTrailingExpressionIsResult(t *testing.T) {
	out := compile(t, "{ var x = 1; x };")
	got := opcodes(out)
	want := []word.OpCode{word.SetLocalThis, word.GetLocal, word.Stop}
	if len(got) != len(want) {
		t.Fatalf("opcodes = %v, want %v", got, want)
	}
}

func TestEmitIdentifierNotInScopeIsEmitError(t *testing.T) {
	p := parser.New(lexer.New("y;"), "y;", "")
	prog := p.ParseProgram()
	e := New("y;", "")
	_, errs := e.Emit(prog)
	if len(errs) == 0 {
		t.Fatalf("expected an emit error for unresolved identifier")
	}
}
