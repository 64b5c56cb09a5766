package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"codemate/internal/conversation"
	"codemate/internal/diff"
	"codemate/internal/orchestrator"
)

type styles struct {
	user      lipgloss.Style
	assistant lipgloss.Style
	system    lipgloss.Style
	status    lipgloss.Style
	context   lipgloss.Style
	added     lipgloss.Style
	removed   lipgloss.Style
	unchanged lipgloss.Style
	diffFrame lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		system:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		status:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		context:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		added:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		removed:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		unchanged: lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		diffFrame: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}
	var sb strings.Builder
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	if m.contextLine != "" {
		sb.WriteString(m.styles.context.Render("[context] "+m.contextLine) + "\n")
	}
	sb.WriteString(m.styles.status.Render(m.providerName+" | "+m.status) + "\n")
	sb.WriteString(m.input.View())
	return sb.String()
}

func (m Model) renderTranscript() string {
	var sb strings.Builder
	for _, e := range m.entries {
		switch e.role {
		case conversation.RoleUser:
			sb.WriteString(m.styles.user.Render("You") + "\n")
			sb.WriteString(e.content + "\n\n")
		case conversation.RoleSystem:
			sb.WriteString(m.styles.system.Render(e.content) + "\n\n")
		default:
			sb.WriteString(m.styles.assistant.Render("codemate") + "\n")
			sb.WriteString(m.safeRenderMarkdown(e.content) + "\n")
		}
	}
	if m.pendingDiff != nil {
		sb.WriteString(m.renderDiff(*m.pendingDiff))
		sb.WriteString("\n")
	}
	return sb.String()
}

// safeRenderMarkdown falls back to the raw text when glamour is
// unavailable (no terminal size yet) or panics on malformed input.
func (m Model) safeRenderMarkdown(md string) (out string) {
	if m.renderer == nil {
		return md
	}
	defer func() {
		if recover() != nil {
			out = md
		}
	}()
	rendered, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return rendered
}

func (m Model) renderDiff(view orchestrator.DiffView) string {
	target := "selection"
	if view.IsFile {
		target = view.URI
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("proposed change to %s:\n", target))
	for _, line := range view.Lines {
		switch line.Op {
		case diff.Insert:
			sb.WriteString(m.styles.added.Render("+ " + line.Text))
		case diff.Delete:
			sb.WriteString(m.styles.removed.Render("- " + line.Text))
		default:
			sb.WriteString(m.styles.unchanged.Render("  " + line.Text))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(m.styles.system.Render("/approve to apply, /reject to discard"))
	return m.styles.diffFrame.Render(sb.String())
}

func renderHistoryList(sums []conversation.Summary) string {
	if len(sums) == 0 {
		return "no conversations yet"
	}
	var sb strings.Builder
	sb.WriteString("Conversations:\n")
	for i, s := range sums {
		sb.WriteString(fmt.Sprintf("  %d. %s (%s)\n", i+1, s.Title, s.CreatedAt.Format("2006-01-02 15:04")))
	}
	sb.WriteString("use /switch <n> or /delete <n>")
	return sb.String()
}
