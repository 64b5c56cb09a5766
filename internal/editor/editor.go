// Package editor abstracts the document read/write surface the core
// depends on. The core never touches the filesystem directly; file
// mutation flows through this interface so approval stays the only gate.
package editor

import (
	"fmt"

	"codemate/internal/attach"
)

// Editor is the document collaborator consumed by the orchestrator.
type Editor interface {
	// ReadFile returns the full contents of a document.
	ReadFile(uri string) ([]byte, error)
	// WriteFile replaces the full contents of a document.
	WriteFile(uri string, data []byte) error
	// ApplyRangeEdit replaces the text inside a line/character range.
	ApplyRangeEdit(uri string, r attach.Range, text string) error
}

// FilePicker is the optional file-selection surface. Interactive frontends
// implement it; headless callers pass explicit paths instead.
type FilePicker interface {
	PickFiles() ([]string, error)
}

// IOError reports a failed editor operation. During approval the workflow
// stays pending on an IOError so the user can retry.
type IOError struct {
	Op  string
	URI string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("editor %s failed for %s: %v", e.Op, e.URI, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
