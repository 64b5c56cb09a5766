// Package attach owns the mutually exclusive "attached context" state:
// either a single editor selection, a set of uploaded files, or nothing.
// Exclusivity is enforced by the Context sum type; attaching one kind
// always clears the other.
package attach

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"codemate/internal/logging"
)

// Kind discriminates the context union.
type Kind int

const (
	None Kind = iota
	Selection
	FileSet
)

// Range is a line/character span inside a document.
type Range struct {
	StartLine int
	StartChar int
	EndLine   int
	EndChar   int
}

// SelectionContext is an ephemeral editor selection. It is consumed by a
// single instruction and cleared afterwards.
type SelectionContext struct {
	URI   string
	Range Range
	Text  string
}

// FileEntry is one uploaded file. FileName is the identity key and must
// be unique within the set.
type FileEntry struct {
	URI      string
	FileName string
	Content  string
}

// Context is the tagged union exposed to callers. Zero value means no
// context is attached.
type Context struct {
	kind      Kind
	selection *SelectionContext
	files     []FileEntry
}

// Kind reports which variant is populated.
func (c Context) Kind() Kind { return c.kind }

// Selection returns the selection variant, or nil.
func (c Context) Selection() *SelectionContext {
	if c.kind != Selection {
		return nil
	}
	sel := *c.selection
	return &sel
}

// Files returns a copy of the file set in attachment order.
func (c Context) Files() []FileEntry {
	if c.kind != FileSet {
		return nil
	}
	out := make([]FileEntry, len(c.files))
	copy(out, c.files)
	return out
}

// FileNames returns the file names in attachment order.
func (c Context) FileNames() []string {
	names := make([]string, 0, len(c.files))
	for _, f := range c.files {
		names = append(names, f.FileName)
	}
	return names
}

// FindFile resolves a file by exact name match. Matching is by name only,
// never by content.
func (c Context) FindFile(fileName string) (FileEntry, bool) {
	for _, f := range c.files {
		if f.FileName == fileName {
			return f, true
		}
	}
	return FileEntry{}, false
}

// Notifier receives context state changes so the presentation layer can
// mirror them without owning any state.
type Notifier interface {
	ContextAttached(summary string)
	FileContextChanged(fileNames []string)
	ContextCleared()
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) ContextAttached(string)      {}
func (NopNotifier) FileContextChanged([]string) {}
func (NopNotifier) ContextCleared()             {}

// Manager guards the attached context. All mutations go through it.
type Manager struct {
	mu       sync.Mutex
	ctx      Context
	notifier Notifier
	logger   *zap.Logger
}

// NewManager creates a context manager. A nil notifier is replaced by a
// no-op one.
func NewManager(notifier Notifier) *Manager {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Manager{
		notifier: notifier,
		logger:   logging.Named("attach"),
	}
}

// Current returns the attached context.
func (m *Manager) Current() Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx
}

// SetSelection attaches an editor selection, clearing any file set.
func (m *Manager) SetSelection(sel SelectionContext) {
	m.mu.Lock()
	m.ctx = Context{kind: Selection, selection: &sel}
	m.mu.Unlock()

	m.logger.Debug("selection attached",
		zap.String("uri", sel.URI),
		zap.Int("start_line", sel.Range.StartLine),
		zap.Int("end_line", sel.Range.EndLine))
	m.notifier.ContextAttached(fmt.Sprintf("Your instruction will be applied to the selected code in %s.", sel.URI))
}

// AddFiles adds entries to the active file set, clearing any selection.
// An entry whose FileName is already present replaces the existing one.
func (m *Manager) AddFiles(entries ...FileEntry) {
	if len(entries) == 0 {
		return
	}

	m.mu.Lock()
	if m.ctx.kind != FileSet {
		m.ctx = Context{kind: FileSet}
	}
	for _, e := range entries {
		replaced := false
		for i, existing := range m.ctx.files {
			if existing.FileName == e.FileName {
				m.ctx.files[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			m.ctx.files = append(m.ctx.files, e)
		}
	}
	names := m.ctx.FileNames()
	m.mu.Unlock()

	m.logger.Debug("files attached", zap.Strings("files", names))
	m.notifier.FileContextChanged(names)
}

// RemoveFile removes one file by name. Removing the last file transitions
// to the no-context state. Returns false if the name was not attached.
func (m *Manager) RemoveFile(fileName string) bool {
	m.mu.Lock()
	if m.ctx.kind != FileSet {
		m.mu.Unlock()
		return false
	}
	idx := -1
	for i, f := range m.ctx.files {
		if f.FileName == fileName {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return false
	}
	m.ctx.files = append(m.ctx.files[:idx], m.ctx.files[idx+1:]...)
	cleared := len(m.ctx.files) == 0
	if cleared {
		m.ctx = Context{}
	}
	names := m.ctx.FileNames()
	m.mu.Unlock()

	m.logger.Debug("file removed", zap.String("file", fileName), zap.Bool("cleared", cleared))
	if cleared {
		m.notifier.ContextCleared()
	} else {
		m.notifier.FileContextChanged(names)
	}
	return true
}

// Clear drops any attached context and notifies.
func (m *Manager) Clear() {
	m.clear(true)
}

// ClearSilently drops any attached context without notifying. Used when
// the presentation layer already reflects the transition (for example
// after a selection was consumed by its one instruction).
func (m *Manager) ClearSilently() {
	m.clear(false)
}

func (m *Manager) clear(notify bool) {
	m.mu.Lock()
	wasAttached := m.ctx.kind != None
	m.ctx = Context{}
	m.mu.Unlock()

	if wasAttached {
		m.logger.Debug("context cleared")
	}
	if notify {
		m.notifier.ContextCleared()
	}
}
