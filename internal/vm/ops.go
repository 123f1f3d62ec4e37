package vm

import (
	"fmt"
	"math"

	"github.com/wordscript/lword/internal/heap"
	"github.com/wordscript/lword/internal/word"
)

// thisToPlain reverses word.ThisVariant for the binary/comparison group;
// execBinary uses it to dispatch on the operator regardless of which form
// (Op or OpThis) appears in the stream.
var thisToPlain = map[word.OpCode]word.OpCode{
	word.AddThis: word.Add, word.SubtractThis: word.Subtract,
	word.MultiplyThis: word.Multiply, word.DivideThis: word.Divide,
	word.ModuloThis: word.Modulo, word.PowerThis: word.Power,
	word.LogicalAndThis: word.LogicalAnd, word.LogicalOrThis: word.LogicalOr, word.LogicalXorThis: word.LogicalXor,
	word.EqualsThis: word.Equals, word.NotEqualsThis: word.NotEquals,
	word.GreaterThanThis: word.GreaterThan, word.LessThanThis: word.LessThan,
	word.GreaterThanEqThis: word.GreaterThanEq, word.LessThanEqThis: word.LessThanEq,
}

// execBinary implements the generic "Op: pop RHS, update top" / "OpThis:
// update top with embedded RHS" dispatch shared by arithmetic, logic, and
// comparison (spec.md §4.5).
func (vm *VM) execBinary(current word.Word) error {
	op := current.OpCode()
	base, isThis := thisToPlain[op]
	if !isThis {
		base = op
	}

	var rhs word.Word
	var err error
	if op.IsThis() {
		rhs, err = vm.materializeEmbedded(current)
	} else {
		rhs, err = vm.pop()
	}
	if err != nil {
		return err
	}

	lhs, err := vm.peek()
	if err != nil {
		return err
	}

	result, err := vm.computeBinary(base, lhs, rhs)
	if err != nil {
		return err
	}
	return vm.setTop(result)
}

func (vm *VM) computeBinary(op word.OpCode, lhs, rhs word.Word) (word.Word, error) {
	switch op {
	case word.Add, word.Subtract, word.Multiply, word.Divide, word.Modulo:
		return vm.computeArith(op, lhs, rhs)
	case word.Power:
		return vm.computePower(lhs, rhs)
	case word.LogicalAnd, word.LogicalOr, word.LogicalXor:
		return vm.computeLogic(op, lhs, rhs)
	case word.Equals, word.NotEquals:
		eq, err := vm.valuesEqual(lhs, rhs)
		if err != nil {
			return word.Word(0), err
		}
		if op == word.NotEquals {
			eq = !eq
		}
		return word.NewBool(eq), nil
	case word.GreaterThan, word.LessThan, word.GreaterThanEq, word.LessThanEq:
		return vm.computeOrder(op, lhs, rhs)
	default:
		return word.Word(0), runtimeErr("unimplemented binary opcode %s", op)
	}
}

// computeArith implements spec.md §4.2's typing rules: Int×Int -> Int,
// Float×Float -> Float (heap-allocated), division/modulo by zero is a VM
// error, modulo is truncated (result sign follows the dividend).
func (vm *VM) computeArith(op word.OpCode, lhs, rhs word.Word) (word.Word, error) {
	if lhs.Tag() == word.Int && rhs.Tag() == word.Int {
		a, b := lhs.Int(), rhs.Int()
		switch op {
		case word.Add:
			return word.NewInt(a + b), nil
		case word.Subtract:
			return word.NewInt(a - b), nil
		case word.Multiply:
			return word.NewInt(a * b), nil
		case word.Divide:
			if b == 0 {
				return word.Word(0), runtimeErr("division by zero")
			}
			return word.NewInt(a / b), nil
		case word.Modulo:
			if b == 0 {
				return word.Word(0), runtimeErr("modulo by zero")
			}
			return word.NewInt(a % b), nil // Go's % is already truncated (sign follows dividend)
		}
	}
	if lhs.Tag() == word.FloatPtr && rhs.Tag() == word.FloatPtr {
		a, err := vm.derefFloat(lhs)
		if err != nil {
			return word.Word(0), err
		}
		b, err := vm.derefFloat(rhs)
		if err != nil {
			return word.Word(0), err
		}
		var r float64
		switch op {
		case word.Add:
			r = a + b
		case word.Subtract:
			r = a - b
		case word.Multiply:
			r = a * b
		case word.Divide:
			if b == 0 {
				return word.Word(0), runtimeErr("division by zero")
			}
			r = a / b
		case word.Modulo:
			if b == 0 {
				return word.Word(0), runtimeErr("modulo by zero")
			}
			r = math.Mod(a, b)
		}
		return vm.allocFloat(r), nil
	}
	return word.Word(0), runtimeErr("tag mismatch: %s %s %s", lhs.Tag(), op, rhs.Tag())
}

// computePower promotes either operand to Float (spec.md §4.2 "Power
// promotes integer bases with any operand to Float").
func (vm *VM) computePower(lhs, rhs word.Word) (word.Word, error) {
	a, err := vm.toFloat(lhs)
	if err != nil {
		return word.Word(0), err
	}
	b, err := vm.toFloat(rhs)
	if err != nil {
		return word.Word(0), err
	}
	return vm.allocFloat(math.Pow(a, b)), nil
}

func (vm *VM) computeLogic(op word.OpCode, lhs, rhs word.Word) (word.Word, error) {
	if lhs.Tag() != word.Bool || rhs.Tag() != word.Bool {
		return word.Word(0), runtimeErr("tag mismatch: %s %s %s", lhs.Tag(), op, rhs.Tag())
	}
	a, b := lhs.Bool(), rhs.Bool()
	switch op {
	case word.LogicalAnd:
		return word.NewBool(a && b), nil
	case word.LogicalOr:
		return word.NewBool(a || b), nil
	case word.LogicalXor:
		return word.NewBool(a != b), nil
	default:
		return word.Word(0), runtimeErr("unimplemented logic opcode %s", op)
	}
}

func (vm *VM) computeOrder(op word.OpCode, lhs, rhs word.Word) (word.Word, error) {
	var a, b float64
	var err error
	switch {
	case lhs.Tag() == word.Int && rhs.Tag() == word.Int:
		a, b = float64(lhs.Int()), float64(rhs.Int())
	case lhs.Tag() == word.FloatPtr && rhs.Tag() == word.FloatPtr:
		a, err = vm.derefFloat(lhs)
		if err != nil {
			return word.Word(0), err
		}
		b, err = vm.derefFloat(rhs)
		if err != nil {
			return word.Word(0), err
		}
	case lhs.Tag() == word.Char && rhs.Tag() == word.Char:
		a, b = float64(lhs.Char()), float64(rhs.Char())
	default:
		return word.Word(0), runtimeErr("tag mismatch: %s %s %s", lhs.Tag(), op, rhs.Tag())
	}
	switch op {
	case word.GreaterThan:
		return word.NewBool(a > b), nil
	case word.LessThan:
		return word.NewBool(a < b), nil
	case word.GreaterThanEq:
		return word.NewBool(a >= b), nil
	case word.LessThanEq:
		return word.NewBool(a <= b), nil
	default:
		return word.Word(0), runtimeErr("unimplemented ordering opcode %s", op)
	}
}

// valuesEqual implements spec.md §4.2's "Equality between heap-tagged Words
// dereferences; floats compare by bit-exact IEEE equality (no epsilon);
// strings by byte content." Words of differing tags are simply unequal
// rather than a dispatch error, matching a dynamically-typed "==".
func (vm *VM) valuesEqual(lhs, rhs word.Word) (bool, error) {
	if lhs.Tag() != rhs.Tag() {
		return false, nil
	}
	switch lhs.Tag() {
	case word.Int:
		return lhs.Int() == rhs.Int(), nil
	case word.Bool:
		return lhs.Bool() == rhs.Bool(), nil
	case word.Char:
		return lhs.Char() == rhs.Char(), nil
	case word.FloatPtr:
		a, err := vm.derefFloat(lhs)
		if err != nil {
			return false, err
		}
		b, err := vm.derefFloat(rhs)
		if err != nil {
			return false, err
		}
		return a == b, nil
	case word.StrPtr:
		a, err := vm.derefStr(lhs)
		if err != nil {
			return false, err
		}
		b, err := vm.derefStr(rhs)
		if err != nil {
			return false, err
		}
		return a == b, nil
	case word.OptionPtr:
		return vm.optionsEqual(lhs, rhs)
	default:
		return false, runtimeErr("equality unsupported for tag %s", lhs.Tag())
	}
}

func (vm *VM) optionsEqual(lhs, rhs word.Word) (bool, error) {
	if lhs.IsNone() || rhs.IsNone() {
		return lhs.IsNone() && rhs.IsNone(), nil
	}
	innerL, err := vm.unbox(lhs)
	if err != nil {
		return false, err
	}
	innerR, err := vm.unbox(rhs)
	if err != nil {
		return false, err
	}
	return vm.valuesEqual(innerL, innerR)
}

// ---- dereference helpers ----

func (vm *VM) derefFloat(w word.Word) (float64, error) {
	if w.Tag() != word.FloatPtr {
		return 0, runtimeErr("expected FloatPtr, got %s", w.Tag())
	}
	return vm.heap.Get(w.Payload()).Float64, nil
}

func (vm *VM) derefStr(w word.Word) (string, error) {
	if w.Tag() != word.StrPtr {
		return "", runtimeErr("expected StrPtr, got %s", w.Tag())
	}
	return vm.heap.Get(w.Payload()).Str, nil
}

func (vm *VM) toFloat(w word.Word) (float64, error) {
	switch w.Tag() {
	case word.Int:
		return float64(w.Int()), nil
	case word.FloatPtr:
		return vm.derefFloat(w)
	default:
		return 0, runtimeErr("expected a numeric operand, got tag %s", w.Tag())
	}
}

func (vm *VM) allocFloat(v float64) word.Word {
	addr := vm.heap.Alloc(heap.Object{Float64: v})
	return word.New(word.FloatPtr, word.Value, 0, addr)
}

// ---- unary ----

// execNegate implements spec.md §4.5's "Negate/NegateThis: push
// bool(¬operand)" — the Arithmetic-group Negate opcode realizes the
// grammar's `not` prefix operator (the grammar has no numeric unary minus).
func (vm *VM) execNegate(current word.Word) error {
	var operand word.Word
	var err error
	if current.OpCode().IsThis() {
		operand, err = vm.materializeEmbedded(current)
	} else {
		operand, err = vm.pop()
	}
	if err != nil {
		return err
	}
	if operand.Tag() != word.Bool {
		return runtimeErr("not: expected Bool, got %s", operand.Tag())
	}
	vm.push(word.NewBool(!operand.Bool()))
	return nil
}

// ---- option ----

// execWrapInOption implements "pop (or take current) X; push Some(X)
// unless X has the reserved 'no' sentinel tag, then push None."
func (vm *VM) execWrapInOption(current word.Word) error {
	var x word.Word
	var err error
	if current.OpCode().IsThis() {
		x, err = vm.materializeEmbedded(current)
	} else {
		x, err = vm.pop()
	}
	if err != nil {
		return err
	}
	if x.IsNone() {
		vm.push(word.NewNone())
		return nil
	}
	addr := vm.heap.Alloc(heap.Object{Boxed: uint64(x)})
	vm.push(word.New(word.OptionPtr, word.Value, 0, addr))
	return nil
}

// execUnwrapOption implements "inner must be present, else VM error; push
// inner." Plain UnwrapOption pops the option off the stack; UnwrapOptionThis
// resolves the embedded option the same way any other This operand would.
func (vm *VM) execUnwrapOption(current word.Word) error {
	var opt word.Word
	var err error
	if current.OpCode().IsThis() {
		opt, err = vm.materializeEmbedded(current)
	} else {
		opt, err = vm.pop()
	}
	if err != nil {
		return err
	}
	inner, err := vm.unbox(opt)
	if err != nil {
		return err
	}
	vm.push(inner)
	return nil
}

func (vm *VM) unbox(opt word.Word) (word.Word, error) {
	if opt.Tag() != word.OptionPtr {
		return word.Word(0), runtimeErr("expected Option, got %s", opt.Tag())
	}
	if opt.IsNone() {
		return word.Word(0), runtimeErr("unwrap of none")
	}
	return word.Word(vm.heap.Get(opt.Payload()).Boxed), nil
}

// buildTable pops pairCount (key, value) pairs off the stack (pushed in
// source order, so the last pair pushed is the first to pop) and
// allocates the resulting table object (spec.md §4.3 "the VM will pop that
// many pairs from the stack at execution").
func (vm *VM) buildTable(pairCount uint32) (word.Word, error) {
	pairs := make([]heap.TablePair, pairCount)
	for i := int(pairCount) - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return word.Word(0), err
		}
		k, err := vm.pop()
		if err != nil {
			return word.Word(0), err
		}
		pairs[i] = heap.TablePair{Key: uint64(k), Value: uint64(v)}
	}
	addr := vm.heap.Alloc(heap.Object{Table: pairs})
	return word.New(word.TablePtr, word.Value, 0, addr), nil
}

// ---- table ----

// execIndexGet implements "pop key, pop table, push table[key] or
// table[default_key] wrapped in option." Not reachable from this build's
// grammar (spec.md §6 has no indexing expression), but implemented for
// completeness of the opcode set (spec.md §4.2).
func (vm *VM) execIndexGet(current word.Word) error {
	var key word.Word
	var err error
	if current.OpCode().IsThis() {
		key, err = vm.materializeEmbedded(current)
	} else {
		key, err = vm.pop()
	}
	if err != nil {
		return err
	}
	table, err := vm.pop()
	if err != nil {
		return err
	}
	if table.Tag() != word.TablePtr {
		return runtimeErr("IndexGet: expected TablePtr, got %s", table.Tag())
	}
	obj := vm.heap.Get(table.Payload())
	var found *heap.TablePair
	var defaultPair *heap.TablePair
	for i := range obj.Table {
		pair := &obj.Table[i]
		if word.Word(pair.Key).IsDefaultKey() {
			defaultPair = pair
			continue
		}
		eq, err := vm.valuesEqual(word.Word(pair.Key), key)
		if err != nil {
			return err
		}
		if eq {
			found = pair
			break
		}
	}
	if found == nil {
		found = defaultPair
	}
	if found == nil {
		vm.push(word.NewNone())
		return nil
	}
	addr := vm.heap.Alloc(heap.Object{Boxed: found.Value})
	vm.push(word.New(word.OptionPtr, word.Value, 0, addr))
	return nil
}

// ---- print ----

// execPrint implements "format top or embedded value to the configured
// output stream." Plain Print formats (and leaves) the current top of
// stack, so `$expr` evaluates to expr's own value rather than consuming
// it; PrintThis formats the embedded value and pushes it, giving the same
// one-value stack effect regardless of which form the emitter chose.
func (vm *VM) execPrint(current word.Word) error {
	var v word.Word
	var err error
	push := current.OpCode().IsThis()
	if push {
		v, err = vm.materializeEmbedded(current)
	} else {
		v, err = vm.peek()
	}
	if err != nil {
		return err
	}
	s, err := vm.format(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(vm.out, s)
	if push {
		vm.push(v)
	}
	return nil
}
