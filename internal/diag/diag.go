// Package diag provides diagnostic formatting for the L toolchain.
// It renders errors with source context, line/column information, and a
// caret pointing at the offending byte, the same shape the rest of this
// toolchain's pipeline stages use to report failures.
package diag

import (
	"fmt"
	"strings"

	"github.com/wordscript/lword/internal/token"
)

// Kind classifies a Diagnostic by the pipeline stage that raised it.
type Kind int

const (
	Lexical Kind = iota
	Parse
	Typecheck
	Emit
	Load
	Runtime
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical error"
	case Parse:
		return "parse error"
	case Typecheck:
		return "type error"
	case Emit:
		return "emit error"
	case Load:
		return "load error"
	case Runtime:
		return "runtime error"
	default:
		return "error"
	}
}

// Diagnostic is a single pipeline failure with optional source context.
type Diagnostic struct {
	Kind    Kind
	Message string
	Source  string
	File    string
	Pos     token.Position
	HasPos  bool
}

// New creates a Diagnostic with no source position attached (e.g. a VM
// runtime error, which has no byte range into the original source).
func New(kind Kind, message string) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: message}
}

// NewAt creates a Diagnostic anchored to a source position.
func NewAt(kind Kind, pos token.Position, source, file, message string) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: message, Source: source, File: file, Pos: pos, HasPos: true}
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	return d.Format(false)
}

// Format renders the diagnostic, optionally with ANSI color, including the
// offending source line and a caret when a position is available.
func (d *Diagnostic) Format(color bool) string {
	var sb strings.Builder

	if !d.HasPos {
		sb.WriteString(fmt.Sprintf("%s: %s", d.Kind, d.Message))
		return sb.String()
	}

	if d.File != "" {
		sb.WriteString(fmt.Sprintf("%s in %s:%d:%d\n", d.Kind, d.File, d.Pos.Line, d.Pos.Column))
	} else {
		sb.WriteString(fmt.Sprintf("%s at %d:%d\n", d.Kind, d.Pos.Line, d.Pos.Column))
	}

	if line := d.sourceLine(d.Pos.Line); line != "" {
		lineNumStr := fmt.Sprintf("%4d | ", d.Pos.Line)
		sb.WriteString(lineNumStr)
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", len(lineNumStr)+d.Pos.Column-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(d.Message)
	if color {
		sb.WriteString("\033[0m")
	}
	return sb.String()
}

func (d *Diagnostic) sourceLine(lineNum int) string {
	if d.Source == "" {
		return ""
	}
	lines := strings.Split(d.Source, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// List is a collection of diagnostics, used by the parser which may recover
// and continue after a malformed production.
type List []*Diagnostic

func (l List) Error() string {
	var sb strings.Builder
	for i, d := range l {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(d.Format(false))
	}
	return sb.String()
}
