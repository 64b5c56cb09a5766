package chat

import (
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"codemate/internal/conversation"
)

const helpText = `Commands:
  /new                 start a new conversation
  /history             list conversations (most recent first)
  /switch <n>          switch to conversation n from /history
  /delete <n>          delete conversation n from /history
  /attach <path>...    attach files as context
  /remove <name>       detach one file by name
  /clear               detach all context
  /approve             apply the proposed change
  /reject              discard the proposed change
  /quit                exit`

// command is a parsed slash command.
type command struct {
	name string
	args []string
}

func parseCommand(text string) command {
	fields := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(fields) == 0 {
		return command{}
	}
	return command{name: strings.ToLower(fields[0]), args: fields[1:]}
}

func (m Model) runCommand(text string) (tea.Model, tea.Cmd) {
	cmd := parseCommand(text)
	orch := m.orch

	switch cmd.name {
	case "help":
		m.entries = append(m.entries, entry{role: conversation.RoleSystem, content: helpText})
		m.refreshTranscript()
		return m, nil

	case "quit", "exit":
		return m, tea.Quit

	case "new":
		return m.dispatch(func() error { return orch.NewConversation() })

	case "history":
		orch.RequestHistory()
		return m, nil

	case "switch", "delete":
		sum, ok := m.summaryArg(cmd.args)
		if !ok {
			m.status = "usage: /" + cmd.name + " <n>  (run /history first)"
			return m, nil
		}
		if cmd.name == "switch" {
			return m.dispatch(func() error { return orch.SwitchConversation(sum.ID) })
		}
		return m.dispatch(func() error { return orch.DeleteConversation(sum.ID) })

	case "attach":
		if len(cmd.args) == 0 {
			m.status = "usage: /attach <path>..."
			return m, nil
		}
		paths := cmd.args
		track := m.track
		return m.dispatch(func() error {
			if err := orch.AttachFiles(paths); err != nil {
				return err
			}
			if track != nil {
				tracked := make(map[string]string, len(paths))
				for _, p := range paths {
					tracked[p] = filepath.Base(p)
				}
				track(tracked)
			}
			return nil
		})

	case "remove":
		if len(cmd.args) != 1 {
			m.status = "usage: /remove <name>"
			return m, nil
		}
		return m.dispatch(func() error { return orch.RemoveFile(cmd.args[0]) })

	case "clear":
		return m.dispatch(func() error { return orch.ClearContext() })

	case "approve":
		return m.dispatch(func() error { return orch.Approve() })

	case "reject":
		return m.dispatch(func() error { return orch.Reject() })

	default:
		m.status = "unknown command /" + cmd.name + " (try /help)"
		return m, nil
	}
}

// dispatch runs an orchestrator operation off the UI goroutine and keeps
// listening for the events it emits.
func (m Model) dispatch(op func() error) (tea.Model, tea.Cmd) {
	m.busy = true
	return m, tea.Batch(func() tea.Msg {
		return taskDoneMsg{err: op()}
	}, m.sink.Wait())
}

// summaryArg resolves a 1-based index from the last /history listing.
func (m Model) summaryArg(args []string) (conversation.Summary, bool) {
	if len(args) != 1 {
		return conversation.Summary{}, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(m.summaries) {
		return conversation.Summary{}, false
	}
	return m.summaries[n-1], true
}
