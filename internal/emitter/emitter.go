// Package emitter walks L's abstract syntax tree and produces a linear
// sequence of word.Word instructions plus the float/string constant pools
// the VM materializes via ReadFromMap (spec.md §4.3).
package emitter

import (
	"fmt"

	"github.com/wordscript/lword/internal/ast"
	"github.com/wordscript/lword/internal/diag"
	"github.com/wordscript/lword/internal/token"
	"github.com/wordscript/lword/internal/word"
)

// Output is everything the serializer/VM need to run a compiled program.
type Output struct {
	Words      []word.Word
	Floats     []float64
	Strings    []string
	LocalCount int
}

type local struct {
	name  string
	scope int
	index uint32
}

// Emitter holds the state of one tree-walk: the instruction stream under
// construction, the two constant pools, and the local-variable table.
type Emitter struct {
	words   []word.Word
	floats  []float64
	strings []string

	locals     []local
	scopeDepth int

	source, file string
	errors       diag.List
}

// New creates an Emitter for a single compilation unit. source and file
// are carried only for diagnostic formatting (diag.NewAt).
func New(source, file string) *Emitter {
	return &Emitter{source: source, file: file}
}

// Emit compiles prog to a linear Word stream. Diagnostics are returned as
// the second result and stay available via Errors(); Emit itself never
// returns early on a single bad node, matching the parser's
// collect-and-continue style.
func (e *Emitter) Emit(prog *ast.Program) (Output, diag.List) {
	for _, stmt := range prog.Statements {
		e.emitStatement(stmt)
	}
	e.append(word.New(word.Int, word.Stop, 0, 0))
	return Output{
		Words:      e.words,
		Floats:     e.floats,
		Strings:    e.strings,
		LocalCount: len(e.locals),
	}, e.errors
}

// Errors returns diagnostics accumulated so far.
func (e *Emitter) Errors() diag.List { return e.errors }

func (e *Emitter) errorf(pos token.Position, format string, args ...any) {
	e.errors = append(e.errors, diag.NewAt(diag.Emit, pos, e.source, e.file, fmt.Sprintf(format, args...)))
}

// ---- bytecode stream helpers ----

func (e *Emitter) append(w word.Word) int {
	e.words = append(e.words, w)
	return len(e.words) - 1
}

// reserve appends a zero-value placeholder, to be overwritten once the
// jump target is known.
func (e *Emitter) reserve() int {
	return e.append(word.Word(0))
}

func (e *Emitter) patch(idx int, w word.Word) {
	e.words[idx] = w
}

// here returns the index the next appended Word will occupy.
func (e *Emitter) here() int { return len(e.words) }

// relJump computes the JumpIfFalse/JumpIfNo/Jump payload for an instruction
// at index from to land on index to: the VM adds payload to ip *after* ip
// has already advanced past `from` (spec.md §4.5 "ip += current.payload").
func relJump(from, to int) uint32 {
	return uint32(to - from - 1)
}

func (e *Emitter) addFloat(v float64) uint32 {
	e.floats = append(e.floats, v)
	return uint32(len(e.floats) - 1)
}

func (e *Emitter) addString(s string) uint32 {
	e.strings = append(e.strings, s)
	return uint32(len(e.strings) - 1)
}

// ---- locals table ----

func (e *Emitter) declareLocal(name string, pos token.Position) uint32 {
	for _, l := range e.locals {
		if l.scope == e.scopeDepth && l.name == name {
			e.errorf(pos, "duplicate local %q in this scope", name)
			break
		}
	}
	idx := uint32(len(e.locals))
	e.locals = append(e.locals, local{name: name, scope: e.scopeDepth, index: idx})
	return idx
}

func (e *Emitter) lookupLocal(name string) (uint32, bool) {
	for i := len(e.locals) - 1; i >= 0; i-- {
		if e.locals[i].name == name {
			return e.locals[i].index, true
		}
	}
	return 0, false
}

func (e *Emitter) enterScope() { e.scopeDepth++ }

// exitScope drops the names declared at the departing depth from lookup;
// their slots remain live in the VM's locals frame (spec.md §4.1 "Local
// slots ... not released in this specification"), so indices already
// emitted elsewhere stay valid.
func (e *Emitter) exitScope() {
	depth := e.scopeDepth
	i := len(e.locals)
	for i > 0 && e.locals[i-1].scope == depth {
		i--
	}
	e.locals = e.locals[:i]
	e.scopeDepth--
}

// ---- statements ----

func (e *Emitter) emitStatement(stmt ast.Statement) {
	switch n := stmt.(type) {
	case *ast.VarDecl:
		e.emitVarDecl(n)
	case *ast.Assignment:
		e.emitAssignment(n)
	case *ast.ExpressionStatement:
		e.emitRealized(n.Expression)
	default:
		e.errorf(stmt.Pos(), "unimplemented statement kind %T", stmt)
	}
}

func (e *Emitter) emitVarDecl(n *ast.VarDecl) {
	idx := e.declareLocal(n.Name.Value, n.Pos())
	w, pending := e.emit(n.Value)
	if pending && w.IsPureValue() {
		e.append(word.New(w.Tag(), word.SetLocalThis, idx, w.Payload()))
		return
	}
	e.realize(w, pending)
	e.append(word.New(word.Int, word.SetLocal, idx, 0))
}

// emitAssignment reassigns an already-declared local: same SetLocal[This]
// encoding as VarDecl, targeting the existing slot instead of a fresh one
// (SPEC_FULL.md §4's supplement to the grammar).
func (e *Emitter) emitAssignment(n *ast.Assignment) {
	idx, ok := e.lookupLocal(n.Name.Value)
	if !ok {
		e.errorf(n.Pos(), "identifier %q not in scope", n.Name.Value)
		idx = 0
	}
	w, pending := e.emit(n.Value)
	if pending && w.IsPureValue() {
		e.append(word.New(w.Tag(), word.SetLocalThis, idx, w.Payload()))
		return
	}
	e.realize(w, pending)
	e.append(word.New(word.Int, word.SetLocal, idx, 0))
}

// realize appends w if it hasn't already been appended (pending); a
// compound node (If/Else/Scope) reports pending=false because it has
// already appended its own final instruction.
func (e *Emitter) realize(w word.Word, pending bool) {
	if pending {
		e.append(w)
	}
}

// emitRealized emits n and, if its result isn't already on the instruction
// stream, appends it: used wherever a node's value is consumed directly
// rather than threaded into an enclosing operator (statement position,
// branch bodies, table-pair operands, binary operands).
func (e *Emitter) emitRealized(n ast.Expression) {
	w, pending := e.emit(n)
	e.realize(w, pending)
}

// ---- expressions ----
//
// emit returns (w, pending). pending=true means w is a fully-formed,
// not-yet-appended instruction: the caller may append it verbatim, fold it
// into an enclosing operator's embedded-operand ("This") form if
// w.IsPureValue(), or discard it in favor of some other encoding (VarDecl's
// SetLocalThis rewrite). pending=false means the node already appended
// everything needed to leave its value on the stack (If/Else/Scope, whose
// result is the product of a jump, not a single instruction) and w is the
// zero Word, meaningless.
func (e *Emitter) emit(n ast.Expression) (word.Word, bool) {
	switch expr := n.(type) {
	case *ast.IntLiteral:
		return word.NewInt(expr.Value), true
	case *ast.BoolLiteral:
		return word.NewBool(expr.Value), true
	case *ast.CharLiteral:
		return word.NewChar(expr.Value), true
	case *ast.NoLiteral:
		return word.NewNone(), true
	case *ast.DefaultKey:
		return word.NewDefaultKey(), true
	case *ast.FloatLiteral:
		idx := e.addFloat(expr.Value)
		return word.NewHeapRef(word.FloatPtr, idx), true
	case *ast.StrLiteral:
		idx := e.addString(expr.Value)
		return word.NewHeapRef(word.StrPtr, idx), true
	case *ast.Identifier:
		idx, ok := e.lookupLocal(expr.Value)
		if !ok {
			e.errorf(expr.Pos(), "identifier %q not in scope", expr.Value)
			return word.Word(0), true
		}
		return word.New(word.Int, word.GetLocal, idx, 0), true
	case *ast.Grouping:
		return e.emit(expr.Inner)
	case *ast.TableLiteral:
		return e.emitTableLiteral(expr), true
	case *ast.BinaryExpr:
		return e.emitBinary(expr), true
	case *ast.UnaryExpr:
		return e.emitUnary(expr), true
	case *ast.OptionWrap:
		return e.emitThisable(expr.Inner, word.WrapInOption, word.OptionPtr), true
	case *ast.OptionUnwrap:
		return e.emitThisable(expr.Inner, word.UnwrapOption, word.OptionPtr), true
	case *ast.Print:
		return e.emitThisable(expr.Inner, word.Print, word.Int), true
	case *ast.If:
		e.emitIf(expr)
		return word.Word(0), false
	case *ast.Else:
		e.emitElse(expr)
		return word.Word(0), false
	case *ast.Scope:
		e.emitScope(expr)
		return word.Word(0), false
	default:
		e.errorf(n.Pos(), "unimplemented expression kind %T", n)
		return word.Word(0), true
	}
}

func (e *Emitter) emitTableLiteral(n *ast.TableLiteral) word.Word {
	for _, pair := range n.Pairs {
		e.emitRealized(pair.Key)
		e.emitRealized(pair.Value)
	}
	return word.New(word.TablePtr, word.ReadFromMap, 0, uint32(len(n.Pairs)))
}

// binOpcodes maps BinaryExpr.Operator tokens to their plain opcode; the
// This variant is derived via word.ThisVariant.
var binOpcodes = map[string]word.OpCode{
	"+": word.Add, "-": word.Subtract, "*": word.Multiply, "/": word.Divide,
	"%": word.Modulo, "^": word.Power,
	"and": word.LogicalAnd, "or": word.LogicalOr, "xor": word.LogicalXor,
	"==": word.Equals, "!=": word.NotEquals,
	">": word.GreaterThan, "<": word.LessThan,
	">=": word.GreaterThanEq, "<=": word.LessThanEq,
}

// emitBinary implements spec.md §4.3's "Binary arithmetic/logic/compare"
// rule: the left operand is always pushed; the right operand is embedded
// via the op's This variant when it is a pure value, otherwise it too is
// pushed and the plain Op is returned.
func (e *Emitter) emitBinary(n *ast.BinaryExpr) word.Word {
	op, ok := binOpcodes[n.Operator]
	if !ok {
		e.errorf(n.Pos(), "unknown binary operator %q", n.Operator)
		op = word.Add
	}
	e.emitRealized(n.Left)

	rw, pending := e.emit(n.Right)
	if pending && rw.IsPureValue() {
		return rw.AsThis(op)
	}
	e.realize(rw, pending)
	return word.New(word.Int, op, 0, 0)
}

// emitUnary implements the single arithmetic-group unary operator `not`
// (spec.md's VM dispatch describes Negate/NegateThis as computing logical
// negation, the only unary form the grammar's unop production needs besides
// the separately-modeled `$` print prefix).
func (e *Emitter) emitUnary(n *ast.UnaryExpr) word.Word {
	if n.Operator != "not" {
		e.errorf(n.Pos(), "unknown unary operator %q", n.Operator)
	}
	return e.emitThisable(n.Operand, word.Negate, word.Bool)
}

// emitThisable is the shared shape of every unary "wrap the operand in one
// instruction" node (not, ?, !, $): push/realize the operand, then either
// embed it as op's This variant (pure value) or emit plain op.
func (e *Emitter) emitThisable(operand ast.Expression, op word.OpCode, placeholderTag word.Tag) word.Word {
	w, pending := e.emit(operand)
	if pending && w.IsPureValue() {
		return w.AsThis(op)
	}
	e.realize(w, pending)
	return word.New(placeholderTag, op, 0, 0)
}

// emitIf compiles `if cond branch` into a self-contained Option-producing
// sequence (resolved from first principles per spec.md §9's explicit
// invitation, since the VM dispatch pseudocode under-specifies jump
// offsets):
//
//	<cond>
//	JumpIfFalse -> L1
//	<branch>, wrapped in WrapInOption[This]
//	Jump -> L2
//	L1: Value(None)
//	L2:
func (e *Emitter) emitIf(n *ast.If) {
	e.emitRealized(n.Condition)

	jumpIfFalse := e.reserve()
	branchWord := e.emitThisable(n.Branch, word.WrapInOption, word.OptionPtr)
	e.append(branchWord)

	jump := e.reserve()

	falseStart := e.here()
	e.patch(jumpIfFalse, word.New(word.Int, word.JumpIfFalse, 0, relJump(jumpIfFalse, falseStart)))
	e.append(word.NewNone())

	joinStart := e.here()
	e.patch(jump, word.New(word.Int, word.Jump, 0, relJump(jump, joinStart)))
}

// emitElse compiles `optionExpr else fallback`:
//
//	<optionExpr>
//	JumpIfNo -> L1
//	UnwrapOption        (Some path: unwrap and push the inner value)
//	Jump -> L2
//	L1: <fallback>
//	L2:
func (e *Emitter) emitElse(n *ast.Else) {
	e.emitRealized(n.Option)

	jumpIfNo := e.reserve()
	e.append(word.New(word.OptionPtr, word.UnwrapOption, 0, 0))
	jump := e.reserve()

	fallbackStart := e.here()
	e.patch(jumpIfNo, word.New(word.Int, word.JumpIfNo, 0, relJump(jumpIfNo, fallbackStart)))
	e.emitRealized(n.Fallback)

	joinStart := e.here()
	e.patch(jump, word.New(word.Int, word.Jump, 0, relJump(jump, joinStart)))
}

// emitScope compiles `{ statement; ...; [result] }`: each statement in
// program order, then the trailing expression's value (or None, if the
// block has none) left on the stack.
func (e *Emitter) emitScope(n *ast.Scope) {
	e.enterScope()
	for _, stmt := range n.Statements {
		e.emitStatement(stmt)
	}
	if n.Result != nil {
		e.emitRealized(n.Result)
	} else {
		e.append(word.NewNone())
	}
	e.exitScope()
}
