// Package disasm implements human-readable disassembly of an L Word stream,
// mirroring the teacher's chunk disassembler but adapted to L's single
// flat instruction stream plus two side pools (spec.md §4.4/§4.5) instead
// of a per-function chunk with one mixed constant pool.
package disasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/wordscript/lword/internal/word"
)

// Disassembler prints a human-readable rendering of a Word stream and its
// float/string constant pools.
type Disassembler struct {
	writer  io.Writer
	words   []word.Word
	floats  []float64
	strings []string
}

// New creates a disassembler for the given Word stream and constant pools.
func New(words []word.Word, floats []float64, strings []string, writer io.Writer) *Disassembler {
	return &Disassembler{writer: writer, words: words, floats: floats, strings: strings}
}

// Disassemble prints the full listing: pool contents followed by every
// instruction in stream order.
func (d *Disassembler) Disassemble() {
	fmt.Fprintf(d.writer, "== program ==\n")
	fmt.Fprintf(d.writer, "Words: %d, Floats: %d, Strings: %d\n\n",
		len(d.words), len(d.floats), len(d.strings))

	if len(d.floats) > 0 {
		fmt.Fprintf(d.writer, "Float Pool:\n")
		for i, f := range d.floats {
			fmt.Fprintf(d.writer, "  [%04d] %g\n", i, f)
		}
		fmt.Fprintf(d.writer, "\n")
	}

	if len(d.strings) > 0 {
		fmt.Fprintf(d.writer, "String Pool:\n")
		for i, s := range d.strings {
			fmt.Fprintf(d.writer, "  [%04d] %q\n", i, s)
		}
		fmt.Fprintf(d.writer, "\n")
	}

	fmt.Fprintf(d.writer, "Bytecode:\n")
	for offset := range d.words {
		d.DisassembleInstruction(offset)
	}
}

// DisassembleInstruction prints a single Word at the given offset.
func (d *Disassembler) DisassembleInstruction(offset int) {
	if offset < 0 || offset >= len(d.words) {
		fmt.Fprintf(d.writer, "Invalid offset: %d\n", offset)
		return
	}

	w := d.words[offset]
	op := w.OpCode()

	fmt.Fprintf(d.writer, "%04d ", offset)

	switch {
	case op == word.Stop:
		d.simpleInstruction(op)
	case op == word.Jump || op == word.JumpIfFalse || op == word.JumpIfNo:
		d.jumpInstruction(w, offset)
	case op == word.SetLocal || op == word.GetLocal:
		d.localInstruction(w)
	case op == word.SetLocalThis:
		d.localThisInstruction(w)
	case op == word.Value:
		d.valueInstruction(w)
	case op == word.ReadFromMap:
		d.poolRefInstruction(w)
	case op.IsThis():
		d.thisInstruction(w)
	default:
		d.simpleInstruction(op)
	}
}

func (d *Disassembler) simpleInstruction(op word.OpCode) {
	fmt.Fprintf(d.writer, "%s\n", op)
}

func (d *Disassembler) jumpInstruction(w word.Word, offset int) {
	delta := int(w.Payload())
	target := offset + 1 + delta
	fmt.Fprintf(d.writer, "%-16s %4d -> %04d\n", w.OpCode(), delta, target)
}

func (d *Disassembler) localInstruction(w word.Word) {
	fmt.Fprintf(d.writer, "%-16s slot=%d\n", w.OpCode(), w.Aux())
}

func (d *Disassembler) localThisInstruction(w word.Word) {
	fmt.Fprintf(d.writer, "%-16s slot=%d  %s\n", w.OpCode(), w.Aux(), d.renderOperand(w))
}

func (d *Disassembler) valueInstruction(w word.Word) {
	fmt.Fprintf(d.writer, "%-16s %s\n", w.OpCode(), d.renderOperand(w))
}

func (d *Disassembler) poolRefInstruction(w word.Word) {
	fmt.Fprintf(d.writer, "%-16s %s\n", w.OpCode(), d.renderOperand(w))
}

func (d *Disassembler) thisInstruction(w word.Word) {
	fmt.Fprintf(d.writer, "%-16s %s\n", w.OpCode(), d.renderOperand(w))
}

// renderOperand formats a Word's tag-appropriate payload for display,
// without taking any constant-pool entry (disassembly is read-only and
// must not disturb the VM's take-once accounting).
func (d *Disassembler) renderOperand(w word.Word) string {
	switch w.Tag() {
	case word.Int:
		return fmt.Sprintf("Int(%d)", w.Int())
	case word.Bool:
		return fmt.Sprintf("Bool(%t)", w.Bool())
	case word.Char:
		return fmt.Sprintf("Char(%q)", w.Char())
	case word.FloatPtr:
		idx := w.Payload()
		if int(idx) < len(d.floats) {
			return fmt.Sprintf("FloatPtr(#%d=%g)", idx, d.floats[idx])
		}
		return fmt.Sprintf("FloatPtr(#%d)", idx)
	case word.StrPtr:
		idx := w.Payload()
		if int(idx) < len(d.strings) {
			return fmt.Sprintf("StrPtr(#%d=%q)", idx, d.strings[idx])
		}
		return fmt.Sprintf("StrPtr(#%d)", idx)
	case word.TablePtr:
		return fmt.Sprintf("TablePtr(pairs=%d)", w.Payload())
	case word.OptionPtr:
		if w.IsNone() {
			return "OptionPtr(no)"
		}
		return fmt.Sprintf("OptionPtr(addr=%d)", w.Payload())
	case word.Special:
		if w.IsDefaultKey() {
			return "Special(DefaultKey)"
		}
		return fmt.Sprintf("Special(aux=%d)", w.Aux())
	default:
		return fmt.Sprintf("%s(payload=%d)", w.Tag(), w.Payload())
	}
}

// ToString renders the full disassembly as a string, for golden-file tests.
func ToString(words []word.Word, floats []float64, strings []string) string {
	var sb strings.Builder
	New(words, floats, strings, &sb).Disassemble()
	return sb.String()
}
