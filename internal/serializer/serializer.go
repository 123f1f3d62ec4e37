// Package serializer implements L's section-framed binary artifact format
// (spec.md §4.4): a little-endian encoding of a Word stream plus its float
// and string constant pools and declared local-variable count.
package serializer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/wordscript/lword/internal/diag"
	"github.com/wordscript/lword/internal/word"
)

const (
	markerWords      byte = 0x01
	markerFloats     byte = 0x02
	markerStrings    byte = 0x03
	markerLocalCount byte = 0x04
)

// maxSectionCount caps a section's declared element count against the
// implausible end of a corrupt or adversarial stream (spec.md §7's "Load:
// ... oversized section").
const maxSectionCount = 1 << 28

// Program is everything the serializer round-trips: a Word stream plus its
// side tables (internal/emitter.Output without the package dependency, so
// the loader doesn't need to import the emitter).
type Program struct {
	Words      []word.Word
	Floats     []float64
	Strings    []string
	LocalCount int
}

func loadErr(format string, args ...any) error {
	return diag.New(diag.Load, fmt.Sprintf(format, args...))
}

// Serialize encodes p as the four length-prefixed sections, in order:
// words, floats, strings, local count.
func Serialize(p Program) []byte {
	var buf bytes.Buffer

	buf.WriteByte(markerWords)
	writeU32(&buf, uint32(len(p.Words)))
	for _, w := range p.Words {
		writeU64(&buf, uint64(w))
	}

	buf.WriteByte(markerFloats)
	writeU32(&buf, uint32(len(p.Floats)))
	for _, f := range p.Floats {
		writeU64(&buf, math.Float64bits(f))
	}

	buf.WriteByte(markerStrings)
	writeU32(&buf, uint32(len(p.Strings)))
	for _, s := range p.Strings {
		writeU32(&buf, uint32(len(s)))
		buf.WriteString(s)
	}

	buf.WriteByte(markerLocalCount)
	writeU32(&buf, uint32(p.LocalCount))

	return buf.Bytes()
}

// Load decodes a Program from the section-framed format Serialize produces.
// Sections must appear in the exact order words, floats, strings,
// local-count; any other marker byte, or running out of bytes mid-section,
// is a load error (spec.md §7).
func Load(data []byte) (Program, error) {
	r := &reader{data: data}

	if err := r.expectMarker(markerWords); err != nil {
		return Program{}, err
	}
	n, err := r.readCount()
	if err != nil {
		return Program{}, err
	}
	words := make([]word.Word, n)
	for i := range words {
		v, err := r.readU64()
		if err != nil {
			return Program{}, err
		}
		words[i] = word.Word(v)
	}

	if err := r.expectMarker(markerFloats); err != nil {
		return Program{}, err
	}
	n, err = r.readCount()
	if err != nil {
		return Program{}, err
	}
	floats := make([]float64, n)
	for i := range floats {
		v, err := r.readU64()
		if err != nil {
			return Program{}, err
		}
		floats[i] = math.Float64frombits(v)
	}

	if err := r.expectMarker(markerStrings); err != nil {
		return Program{}, err
	}
	n, err = r.readCount()
	if err != nil {
		return Program{}, err
	}
	strs := make([]string, n)
	for i := range strs {
		slen, err := r.readCount()
		if err != nil {
			return Program{}, err
		}
		b, err := r.readBytes(slen)
		if err != nil {
			return Program{}, err
		}
		if !utf8.Valid(b) {
			return Program{}, loadErr("string section entry %d is not valid UTF-8", i)
		}
		strs[i] = string(b)
	}

	if err := r.expectMarker(markerLocalCount); err != nil {
		return Program{}, err
	}
	localCount, err := r.readCount()
	if err != nil {
		return Program{}, err
	}

	if !r.atEOF() {
		return Program{}, loadErr("trailing bytes after local-count section")
	}

	return Program{Words: words, Floats: floats, Strings: strs, LocalCount: localCount}, nil
}

// ---- low-level reader ----

type reader struct {
	data []byte
	pos  int
}

func (r *reader) atEOF() bool { return r.pos >= len(r.data) }

func (r *reader) expectMarker(want byte) error {
	if r.pos >= len(r.data) {
		return loadErr("truncated stream: expected section marker 0x%02x", want)
	}
	got := r.data[r.pos]
	r.pos++
	if got != want {
		return loadErr("bad section marker: expected 0x%02x, got 0x%02x", want, got)
	}
	return nil
}

func (r *reader) readCount() (int, error) {
	v, err := r.readU32()
	if err != nil {
		return 0, err
	}
	if v > maxSectionCount {
		return 0, loadErr("oversized section: declared count %d exceeds limit", v)
	}
	return int(v), nil
}

func (r *reader) readU32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, loadErr("truncated stream: expected a u32")
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) readU64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, loadErr("truncated stream: expected a u64")
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, loadErr("truncated stream: expected %d bytes", n)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
