// Package diff computes reviewable change representations using the
// sergi/go-diff library. The engine is stateless: it knows nothing about
// files, conversations, or approval.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op classifies a span of text in a computed diff.
type Op int

const (
	Equal Op = iota
	Insert
	Delete
)

// String returns the op name used in rendered output.
func (o Op) String() string {
	switch o {
	case Insert:
		return "added"
	case Delete:
		return "removed"
	default:
		return "unchanged"
	}
}

// Span is a tagged run of text. Concatenating Equal+Insert spans in order
// reproduces the modified text; Equal+Delete reproduces the original.
type Span struct {
	Op   Op
	Text string
}

// LineSpan is one line of the line-level view, without its trailing newline.
type LineSpan struct {
	Op   Op
	Text string
}

// Engine wraps a diff-match-patch instance tuned for code diffs.
type Engine struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewEngine creates a diff engine. The timeout is disabled so identical
// inputs always produce identical output.
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp}
}

// Compute returns the fine-grained span sequence between two full texts.
func (e *Engine) Compute(original, modified string) []Span {
	diffs := e.dmp.DiffMain(original, modified, false)
	diffs = e.dmp.DiffCleanupSemantic(diffs)

	spans := make([]Span, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		spans = append(spans, Span{Op: opFor(d.Type), Text: d.Text})
	}
	return spans
}

// Lines returns a line-level view of the change. Each line is classified
// as unchanged, added, or removed. Purely blank added/removed lines are
// suppressed to reduce visual noise; unchanged blank lines are kept.
func (e *Engine) Lines(original, modified string) []LineSpan {
	a, b, lineArray := e.dmp.DiffLinesToChars(original, modified)
	diffs := e.dmp.DiffMain(a, b, false)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)

	var out []LineSpan
	for _, d := range diffs {
		op := opFor(d.Type)
		for _, line := range splitLines(d.Text) {
			if op != Equal && strings.TrimSpace(line) == "" {
				continue
			}
			out = append(out, LineSpan{Op: op, Text: line})
		}
	}
	return out
}

// Original reconstructs the original text from a span sequence.
func Original(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		if s.Op == Equal || s.Op == Delete {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

// Modified reconstructs the modified text from a span sequence.
func Modified(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		if s.Op == Equal || s.Op == Insert {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

func opFor(t diffmatchpatch.Operation) Op {
	switch t {
	case diffmatchpatch.DiffInsert:
		return Insert
	case diffmatchpatch.DiffDelete:
		return Delete
	default:
		return Equal
	}
}

// splitLines splits a diff chunk into lines, dropping the empty remainder
// a trailing newline leaves behind.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
