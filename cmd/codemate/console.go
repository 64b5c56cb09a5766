package main

import (
	"fmt"
	"os"

	"codemate/internal/conversation"
	"codemate/internal/diff"
	"codemate/internal/orchestrator"
)

// consoleEvents renders the outbound protocol for one-shot commands.
// A proposed change is printed as a unified-style diff and then applied
// or discarded according to the --apply flag.
type consoleEvents struct {
	orch  *orchestrator.Orchestrator
	apply bool
}

func (c *consoleEvents) Response(md string) {
	fmt.Println(md)
}

func (c *consoleEvents) HistoryList([]conversation.Summary) {}

func (c *consoleEvents) ConversationLoaded([]conversation.Message) {}

func (c *consoleEvents) DiffReady(view orchestrator.DiffView) {
	target := "selection"
	if view.IsFile {
		target = view.URI
	}
	fmt.Printf("proposed change to %s:\n", target)
	for _, line := range view.Lines {
		switch line.Op {
		case diff.Insert:
			fmt.Println("+ " + line.Text)
		case diff.Delete:
			fmt.Println("- " + line.Text)
		default:
			fmt.Println("  " + line.Text)
		}
	}

	if c.orch == nil {
		return
	}
	if c.apply {
		if err := c.orch.Approve(); err != nil {
			fmt.Fprintln(os.Stderr, "apply failed:", err)
		}
		return
	}
	fmt.Println("discarded (re-run with --apply to write the change)")
	_ = c.orch.Reject()
}

func (c *consoleEvents) ChangeApplied() {
	fmt.Println("change applied")
}

func (c *consoleEvents) Error(kind orchestrator.ErrorKind, message string) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", kind, message)
}
