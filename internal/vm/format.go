package vm

import (
	"fmt"
	"strings"

	"github.com/wordscript/lword/internal/word"
)

// Format renders a runtime Word the way Print and the REPL's finalized
// top-of-stack both display it: no surrounding type annotation, strings and
// chars without quotes, a Some option as its inner value followed by "?",
// and None as "no".
func (vm *VM) Format(w word.Word) (string, error) {
	return vm.format(w)
}

func (vm *VM) format(w word.Word) (string, error) {
	switch w.Tag() {
	case word.Int:
		return fmt.Sprintf("%d", w.Int()), nil
	case word.Bool:
		return fmt.Sprintf("%t", w.Bool()), nil
	case word.Char:
		return fmt.Sprintf("%c", w.Char()), nil
	case word.FloatPtr:
		v, err := vm.derefFloat(w)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%g", v), nil
	case word.StrPtr:
		s, err := vm.derefStr(w)
		if err != nil {
			return "", err
		}
		return s, nil
	case word.OptionPtr:
		if w.IsNone() {
			return "no", nil
		}
		inner, err := vm.unbox(w)
		if err != nil {
			return "", err
		}
		s, err := vm.format(inner)
		if err != nil {
			return "", err
		}
		return s + "?", nil
	case word.TablePtr:
		obj := vm.heap.Get(w.Payload())
		parts := make([]string, len(obj.Table))
		for i, pair := range obj.Table {
			key := "_"
			if kw := word.Word(pair.Key); !kw.IsDefaultKey() {
				ks, err := vm.format(kw)
				if err != nil {
					return "", err
				}
				key = ks
			}
			vs, err := vm.format(word.Word(pair.Value))
			if err != nil {
				return "", err
			}
			parts[i] = key + ":" + vs
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	default:
		return "", runtimeErr("cannot format tag %s", w.Tag())
	}
}
