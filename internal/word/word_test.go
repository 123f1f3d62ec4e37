package word

import "testing"

func TestFieldIndependence(t *testing.T) {
	w := New(Int, Add, 12345, 0xABCD1234)

	wt := w.WithTag(FloatPtr)
	if wt.Tag() != FloatPtr {
		t.Fatalf("WithTag did not change tag")
	}
	if wt.OpCode() != w.OpCode() || wt.Aux() != w.Aux() || wt.Payload() != w.Payload() {
		t.Fatalf("WithTag changed other fields: %+v vs original %+v", wt, w)
	}

	wo := w.WithOpCode(Subtract)
	if wo.OpCode() != Subtract {
		t.Fatalf("WithOpCode did not change opcode")
	}
	if wo.Tag() != w.Tag() || wo.Aux() != w.Aux() || wo.Payload() != w.Payload() {
		t.Fatalf("WithOpCode changed other fields")
	}

	wa := w.WithAux(99)
	if wa.Aux() != 99 {
		t.Fatalf("WithAux did not change aux")
	}
	if wa.Tag() != w.Tag() || wa.OpCode() != w.OpCode() || wa.Payload() != w.Payload() {
		t.Fatalf("WithAux changed other fields")
	}

	wp := w.WithPayload(7)
	if wp.Payload() != 7 {
		t.Fatalf("WithPayload did not change payload")
	}
	if wp.Tag() != w.Tag() || wp.OpCode() != w.OpCode() || wp.Aux() != w.Aux() {
		t.Fatalf("WithPayload changed other fields")
	}
}

func TestIntRoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 2147483647, -2147483648, 42} {
		w := NewInt(v)
		if w.Tag() != Int || w.OpCode() != Value {
			t.Fatalf("NewInt(%d) has wrong tag/opcode: %+v", v, w)
		}
		if got := w.Int(); got != v {
			t.Fatalf("NewInt(%d).Int() = %d", v, got)
		}
	}
}

func TestBoolRoundTrip(t *testing.T) {
	if !NewBool(true).Bool() {
		t.Fatal("NewBool(true).Bool() = false")
	}
	if NewBool(false).Bool() {
		t.Fatal("NewBool(false).Bool() = true")
	}
}

func TestAsThisPreservesOperand(t *testing.T) {
	v := NewInt(4)
	embedded := v.AsThis(Multiply)
	if embedded.OpCode() != MultiplyThis {
		t.Fatalf("AsThis opcode = %s, want MultiplyThis", embedded.OpCode())
	}
	if embedded.Tag() != Int || embedded.Int() != 4 {
		t.Fatalf("AsThis did not preserve operand: %+v", embedded)
	}
}

func TestNoneSentinelHasNoHeapEntry(t *testing.T) {
	n := NewNone()
	if !n.IsNone() {
		t.Fatal("NewNone() is not recognized as None")
	}
	if n.Tag() != OptionPtr {
		t.Fatalf("NewNone() tag = %s, want OptionPtr", n.Tag())
	}
}

func TestDefaultKeySentinel(t *testing.T) {
	dk := NewDefaultKey()
	if !dk.IsDefaultKey() {
		t.Fatal("NewDefaultKey() not recognized as default key")
	}
	// A normal Special-tagged value never collides, since user source never
	// produces tag=Special directly.
	other := New(Special, Value, 0, 0)
	if other.IsDefaultKey() {
		t.Fatal("ordinary Special word misidentified as DefaultKey")
	}
}

func TestHeapTagged(t *testing.T) {
	heapTags := []Tag{FnPtr, FloatPtr, StrPtr, TablePtr, OptionPtr}
	for _, tag := range heapTags {
		if !tag.HeapTagged() {
			t.Fatalf("%s should be heap-tagged", tag)
		}
	}
	for _, tag := range []Tag{Int, Bool, Char, Special} {
		if tag.HeapTagged() {
			t.Fatalf("%s should not be heap-tagged", tag)
		}
	}
}

func TestThisVariantCoversAllOperators(t *testing.T) {
	ops := []OpCode{
		Add, Subtract, Multiply, Divide, Modulo, Power, Negate,
		LogicalAnd, LogicalOr, LogicalXor,
		Equals, NotEquals, GreaterThan, LessThan, GreaterThanEq, LessThanEq,
		WrapInOption, UnwrapOption, IndexGet, Print,
	}
	for _, op := range ops {
		this := ThisVariant(op)
		if !this.IsThis() {
			t.Fatalf("ThisVariant(%s) = %s is not recognized as a This opcode", op, this)
		}
	}
}
