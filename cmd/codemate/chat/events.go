package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"codemate/internal/conversation"
	"codemate/internal/orchestrator"
)

// Messages delivered to the bubbletea model from the core.
type (
	responseMsg       string
	contextAttachedMsg string
	fileContextMsg    []string
	contextClearedMsg struct{}
	historyMsg        []conversation.Summary
	loadedMsg         []conversation.Message
	diffReadyMsg      orchestrator.DiffView
	changeAppliedMsg  struct{}
	errorMsg          struct {
		kind    orchestrator.ErrorKind
		message string
	}
	fileChangedOnDiskMsg string
	taskDoneMsg          struct{ err error }
)

// Sink adapts the orchestrator's outbound protocol and the context
// manager's notifier to bubbletea messages. Events are buffered so the
// core never blocks on the UI.
type Sink struct {
	ch chan tea.Msg
}

// NewSink creates an event sink.
func NewSink() *Sink {
	return &Sink{ch: make(chan tea.Msg, 64)}
}

// Wait returns a command that delivers the next core event.
func (s *Sink) Wait() tea.Cmd {
	return func() tea.Msg { return <-s.ch }
}

func (s *Sink) send(msg tea.Msg) {
	select {
	case s.ch <- msg:
	default:
		// UI has fallen far behind; drop rather than deadlock the core.
	}
}

// orchestrator.Events

func (s *Sink) Response(md string)                            { s.send(responseMsg(md)) }
func (s *Sink) HistoryList(sums []conversation.Summary)       { s.send(historyMsg(sums)) }
func (s *Sink) ConversationLoaded(msgs []conversation.Message) { s.send(loadedMsg(msgs)) }
func (s *Sink) DiffReady(v orchestrator.DiffView)             { s.send(diffReadyMsg(v)) }
func (s *Sink) ChangeApplied()                                { s.send(changeAppliedMsg{}) }
func (s *Sink) Error(kind orchestrator.ErrorKind, message string) {
	s.send(errorMsg{kind: kind, message: message})
}

// attach.Notifier

func (s *Sink) ContextAttached(summary string)      { s.send(contextAttachedMsg(summary)) }
func (s *Sink) FileContextChanged(names []string)   { s.send(fileContextMsg(names)) }
func (s *Sink) ContextCleared()                     { s.send(contextClearedMsg{}) }

// FileChangedOnDisk forwards watcher warnings.
func (s *Sink) FileChangedOnDisk(fileName string) { s.send(fileChangedOnDiskMsg(fileName)) }
