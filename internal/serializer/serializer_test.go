package serializer

import (
	"testing"

	"github.com/wordscript/lword/internal/word"
)

func sampleProgram() Program {
	return Program{
		Words: []word.Word{
			word.NewInt(2),
			word.NewInt(3).AsThis(word.Multiply),
			word.New(word.Int, word.Add, 0, 0),
			word.New(word.Int, word.Stop, 0, 0),
		},
		Floats:     []float64{1.5, -2.25},
		Strings:    []string{"hi", ""},
		LocalCount: 3,
	}
}

// TestRoundTrip verifies spec.md §8 property 1: load(serialize(B, P))
// reproduces (B, P) structurally.
func TestRoundTrip(t *testing.T) {
	p := sampleProgram()
	data := Serialize(p)
	got, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Words) != len(p.Words) {
		t.Fatalf("Words length = %d, want %d", len(got.Words), len(p.Words))
	}
	for i := range p.Words {
		if got.Words[i] != p.Words[i] {
			t.Fatalf("Words[%d] = %v, want %v", i, got.Words[i], p.Words[i])
		}
	}
	if len(got.Floats) != len(p.Floats) {
		t.Fatalf("Floats length = %d, want %d", len(got.Floats), len(p.Floats))
	}
	for i := range p.Floats {
		if got.Floats[i] != p.Floats[i] {
			t.Fatalf("Floats[%d] = %v, want %v", i, got.Floats[i], p.Floats[i])
		}
	}
	if len(got.Strings) != len(p.Strings) {
		t.Fatalf("Strings = %v, want %v", got.Strings, p.Strings)
	}
	for i := range p.Strings {
		if got.Strings[i] != p.Strings[i] {
			t.Fatalf("Strings[%d] = %q, want %q", i, got.Strings[i], p.Strings[i])
		}
	}
	if got.LocalCount != p.LocalCount {
		t.Fatalf("LocalCount = %d, want %d", got.LocalCount, p.LocalCount)
	}
}

func TestLoadRejectsBadMarker(t *testing.T) {
	data := Serialize(sampleProgram())
	data[0] = 0x99
	if _, err := Load(data); err == nil {
		t.Fatalf("expected a bad-marker load error")
	}
}

func TestLoadRejectsTruncatedStream(t *testing.T) {
	data := Serialize(sampleProgram())
	if _, err := Load(data[:len(data)-2]); err == nil {
		t.Fatalf("expected a truncated-stream load error")
	}
}

func TestLoadRejectsInvalidUTF8(t *testing.T) {
	p := Program{Strings: []string{"ok"}}
	data := Serialize(p)
	// Corrupt the single string byte to an invalid UTF-8 continuation byte.
	for i, b := range data {
		if b == 'o' {
			data[i] = 0x80
			break
		}
	}
	if _, err := Load(data); err == nil {
		t.Fatalf("expected an invalid-UTF-8 load error")
	}
}

func TestLoadRejectsOversizedSection(t *testing.T) {
	data := Serialize(Program{})
	data[1] = 0xFF
	data[2] = 0xFF
	data[3] = 0xFF
	data[4] = 0xFF
	if _, err := Load(data); err == nil {
		t.Fatalf("expected an oversized-section load error")
	}
}
