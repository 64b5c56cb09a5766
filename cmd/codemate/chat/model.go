// Package chat provides the interactive TUI for codemate. The package is
// split across files:
//   - model.go: Types, Init, Update loop (this file)
//   - commands.go: /command handling
//   - view.go: Rendering functions
//   - events.go: Bridge from the core's event protocol to tea messages
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"codemate/internal/conversation"
	"codemate/internal/orchestrator"
)

// entry is one rendered line group in the transcript.
type entry struct {
	role    conversation.Role
	content string
}

// Model is the bubbletea model for the chat session.
type Model struct {
	orch *orchestrator.Orchestrator
	sink *Sink

	input    textinput.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	styles   styles

	entries      []entry
	summaries    []conversation.Summary
	status       string
	contextLine  string
	pendingDiff  *orchestrator.DiffView
	busy         bool
	ready        bool
	width        int
	height       int
	providerName string
	track        func(paths map[string]string)
}

// Options configures the chat model.
type Options struct {
	// ProviderName is shown in the status line.
	ProviderName string
	// Track, when set, registers attached file paths (keyed to their
	// display names) with a filesystem watcher.
	Track func(paths map[string]string)
}

// New builds the chat model. The sink must be the same one registered as
// the orchestrator's events and the context manager's notifier.
func New(orch *orchestrator.Orchestrator, sink *Sink, opts Options) Model {
	input := textinput.New()
	input.Placeholder = "Ask, or /help for commands"
	input.Focus()
	input.CharLimit = 0

	return Model{
		orch:         orch,
		sink:         sink,
		input:        input,
		styles:       defaultStyles(),
		providerName: opts.ProviderName,
		track:        opts.Track,
		status:       "ready",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.sink.Wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case responseMsg:
		m.entries = append(m.entries, entry{role: conversation.RoleAssistant, content: string(msg)})
		m.refreshTranscript()
		return m, m.sink.Wait()

	case loadedMsg:
		m.entries = m.entries[:0]
		for _, message := range msg {
			m.entries = append(m.entries, entry{role: message.Role, content: message.Content})
		}
		m.pendingDiff = nil
		m.refreshTranscript()
		return m, m.sink.Wait()

	case historyMsg:
		m.summaries = msg
		m.entries = append(m.entries, entry{role: conversation.RoleSystem, content: renderHistoryList(msg)})
		m.refreshTranscript()
		return m, m.sink.Wait()

	case diffReadyMsg:
		view := orchestrator.DiffView(msg)
		m.pendingDiff = &view
		m.status = "proposed change awaiting /approve or /reject"
		m.refreshTranscript()
		return m, m.sink.Wait()

	case changeAppliedMsg:
		m.pendingDiff = nil
		m.status = "change applied"
		m.refreshTranscript()
		return m, m.sink.Wait()

	case errorMsg:
		m.status = fmt.Sprintf("%s error: %s", msg.kind, msg.message)
		if msg.kind != orchestrator.KindBusy {
			m.entries = append(m.entries, entry{role: conversation.RoleSystem, content: msg.message})
		}
		m.refreshTranscript()
		return m, m.sink.Wait()

	case contextAttachedMsg:
		m.contextLine = string(msg)
		return m, m.sink.Wait()

	case fileContextMsg:
		if len(msg) == 0 {
			m.contextLine = ""
		} else {
			m.contextLine = "files: " + strings.Join(msg, ", ")
		}
		return m, m.sink.Wait()

	case contextClearedMsg:
		m.contextLine = ""
		return m, m.sink.Wait()

	case fileChangedOnDiskMsg:
		m.status = fmt.Sprintf("warning: %s changed on disk since it was attached", string(msg))
		return m, m.sink.Wait()

	case taskDoneMsg:
		m.busy = false
		if m.status == "thinking..." {
			m.status = "ready"
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()

	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}

	m.entries = append(m.entries, entry{role: conversation.RoleUser, content: text})
	m.busy = true
	m.status = "thinking..."
	m.refreshTranscript()
	orch := m.orch
	return m, tea.Batch(func() tea.Msg {
		return taskDoneMsg{err: orch.Ask(context.Background(), text)}
	}, m.sink.Wait())
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	chatHeight := msg.Height - 5
	if chatHeight < 3 {
		chatHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(msg.Width, chatHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = chatHeight
	}
	m.input.Width = msg.Width - 4
	m.renderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(msg.Width-4),
	)
	m.refreshTranscript()
	return m
}

func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// Run starts the TUI and blocks until the user quits.
func Run(orch *orchestrator.Orchestrator, sink *Sink, opts Options) error {
	program := tea.NewProgram(New(orch, sink, opts), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
