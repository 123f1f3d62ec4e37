// Package vm implements the stack-based interpreter that executes a Word
// stream produced by internal/emitter (spec.md §4.5).
package vm

import (
	"fmt"
	"io"

	"github.com/wordscript/lword/internal/diag"
	"github.com/wordscript/lword/internal/heap"
	"github.com/wordscript/lword/internal/word"
)

// VM is a single, synchronous execution of one bytecode stream (spec.md
// §5: single-threaded, no shared state across instances).
type VM struct {
	words   []word.Word
	floats  []float64
	strings []string

	floatTaken  []bool
	stringTaken []bool

	stack  []word.Word
	locals []word.Word
	heap   *heap.Heap

	out io.Writer
	ip  int
}

// New creates a VM ready to run words against the given constant pools.
// out receives Print output; a nil out discards it.
func New(words []word.Word, floats []float64, strings []string, out io.Writer) *VM {
	if out == nil {
		out = io.Discard
	}
	return &VM{
		words:       words,
		floats:      floats,
		strings:     strings,
		floatTaken:  make([]bool, len(floats)),
		stringTaken: make([]bool, len(strings)),
		heap:        heap.New(),
		out:         out,
	}
}

func runtimeErr(format string, args ...any) error {
	return diag.New(diag.Runtime, fmt.Sprintf(format, args...))
}

// Run executes the bytecode stream to Stop (or to the first VM error) and
// returns the finalized top-of-stack Word.
func (vm *VM) Run() (word.Word, error) {
	for {
		if vm.ip >= len(vm.words) {
			return word.Word(0), runtimeErr("ran off the end of the bytecode stream without Stop")
		}
		current := vm.words[vm.ip]
		vm.ip++

		switch current.OpCode() {
		case word.Stop:
			return vm.finalize()

		case word.Value:
			vm.push(current)

		case word.ReadFromMap:
			if current.Tag() == word.TablePtr {
				w, err := vm.buildTable(current.Payload())
				if err != nil {
					return word.Word(0), err
				}
				vm.push(w)
				break
			}
			w, err := vm.materializePoolRef(current.Tag(), current.Payload())
			if err != nil {
				return word.Word(0), err
			}
			vm.push(w)

		case word.Jump:
			vm.ip += int(current.Payload())

		case word.JumpIfFalse:
			cond, err := vm.pop()
			if err != nil {
				return word.Word(0), err
			}
			if !cond.Bool() {
				vm.ip += int(current.Payload())
			}

		case word.JumpIfNo:
			opt, err := vm.pop()
			if err != nil {
				return word.Word(0), err
			}
			if opt.IsNone() {
				vm.ip += int(current.Payload())
			} else {
				// A Some option stays on the stack for the UnwrapOption that follows.
				vm.push(opt)
			}

		case word.SetLocal:
			top, err := vm.peek()
			if err != nil {
				return word.Word(0), err
			}
			vm.setLocal(current.Aux(), top)

		case word.SetLocalThis:
			v, err := vm.materializeEmbedded(current)
			if err != nil {
				return word.Word(0), err
			}
			vm.push(v)
			vm.setLocal(current.Aux(), v)

		case word.GetLocal:
			v, err := vm.getLocal(current.Aux())
			if err != nil {
				return word.Word(0), err
			}
			vm.push(v)

		case word.WrapInOption, word.WrapInOptionThis:
			if err := vm.execWrapInOption(current); err != nil {
				return word.Word(0), err
			}

		case word.UnwrapOption, word.UnwrapOptionThis:
			if err := vm.execUnwrapOption(current); err != nil {
				return word.Word(0), err
			}

		case word.IndexGet, word.IndexGetThis:
			if err := vm.execIndexGet(current); err != nil {
				return word.Word(0), err
			}

		case word.Print, word.PrintThis:
			if err := vm.execPrint(current); err != nil {
				return word.Word(0), err
			}

		case word.Negate, word.NegateThis:
			if err := vm.execNegate(current); err != nil {
				return word.Word(0), err
			}

		case word.Cast:
			// Reserved (spec.md §4.2 "Other: ... Cast (reserved)"): no source
			// construct in this build's grammar emits it.
			return word.Word(0), runtimeErr("Cast is reserved and unimplemented")

		default:
			if err := vm.execBinary(current); err != nil {
				return word.Word(0), err
			}
		}
	}
}

func (vm *VM) finalize() (word.Word, error) {
	if len(vm.stack) == 0 {
		return word.Word(0), runtimeErr("stack underflow: finalize on empty stack")
	}
	return vm.stack[len(vm.stack)-1], nil
}

// ---- stack ----

func (vm *VM) push(w word.Word) { vm.stack = append(vm.stack, w) }

func (vm *VM) pop() (word.Word, error) {
	if len(vm.stack) == 0 {
		return word.Word(0), runtimeErr("stack underflow")
	}
	w := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return w, nil
}

func (vm *VM) peek() (word.Word, error) {
	if len(vm.stack) == 0 {
		return word.Word(0), runtimeErr("stack underflow")
	}
	return vm.stack[len(vm.stack)-1], nil
}

// setTop replaces the current top of stack in place (the "OpThis: in-place
// update top" / "Op: ... update top" dispatch shape).
func (vm *VM) setTop(w word.Word) error {
	if len(vm.stack) == 0 {
		return runtimeErr("stack underflow")
	}
	vm.stack[len(vm.stack)-1] = w
	return nil
}

// ---- locals ----

func (vm *VM) setLocal(idx uint32, w word.Word) {
	for uint32(len(vm.locals)) <= idx {
		vm.locals = append(vm.locals, word.Word(0))
	}
	vm.locals[idx] = w
}

func (vm *VM) getLocal(idx uint32) (word.Word, error) {
	if int(idx) >= len(vm.locals) {
		return word.Word(0), runtimeErr("local slot %d never set", idx)
	}
	return vm.locals[idx], nil
}

// ---- constant pools ----

// materializePoolRef takes pool entry idx (tagged FloatPtr or StrPtr),
// marks it taken (spec.md §4.5 "may happen at most once per entry"), heap-
// allocates the value, and returns a live heap-resident Word.
func (vm *VM) materializePoolRef(tag word.Tag, idx uint32) (word.Word, error) {
	switch tag {
	case word.FloatPtr:
		if int(idx) >= len(vm.floats) {
			return word.Word(0), runtimeErr("float pool index %d out of range", idx)
		}
		if vm.floatTaken[idx] {
			return word.Word(0), runtimeErr("float pool entry %d already taken", idx)
		}
		vm.floatTaken[idx] = true
		addr := vm.heap.Alloc(heap.Object{Float64: vm.floats[idx]})
		return word.NewHeapWord(word.FloatPtr, addr), nil
	case word.StrPtr:
		if int(idx) >= len(vm.strings) {
			return word.Word(0), runtimeErr("string pool index %d out of range", idx)
		}
		if vm.stringTaken[idx] {
			return word.Word(0), runtimeErr("string pool entry %d already taken", idx)
		}
		vm.stringTaken[idx] = true
		addr := vm.heap.Alloc(heap.Object{Str: vm.strings[idx]})
		return word.NewHeapWord(word.StrPtr, addr), nil
	default:
		return word.Word(0), runtimeErr("ReadFromMap on non-poolable tag %s", tag)
	}
}

// materializeEmbedded resolves the right-hand operand of a "This"
// instruction. Stack immediates (Int/Bool/Char/OptionPtr-None/Special) are
// already the runtime value; FloatPtr/StrPtr carry an untaken pool index and
// TablePtr carries a pair count, resolved exactly as a standalone
// ReadFromMap of the same Word would be.
func (vm *VM) materializeEmbedded(current word.Word) (word.Word, error) {
	switch current.Tag() {
	case word.FloatPtr, word.StrPtr:
		return vm.materializePoolRef(current.Tag(), current.Payload())
	case word.TablePtr:
		return vm.buildTable(current.Payload())
	default:
		return current.WithOpCode(word.Value), nil
	}
}
