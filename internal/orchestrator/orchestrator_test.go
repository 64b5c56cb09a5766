package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codemate/internal/attach"
	"codemate/internal/conversation"
)

func TestModifyScenario(t *testing.T) {
	p := &scripted{
		generate: []stub{
			{text: classifyJSON("modify", "a.py", "Renaming x to y.")},
			{text: "```python\ny=1\n```"},
		},
		chat: []stub{{text: "Renamed `x` to `y`."}},
	}
	h := newHarness(map[string]string{"/src/a.py": "x=1"}, p)

	require.NoError(t, h.orch.AttachFiles([]string{"/src/a.py"}))
	require.NoError(t, h.orch.Ask(context.Background(), "rename x to y"))

	// All three calls happened and the diff is parked for approval.
	gen, chat := p.calls()
	assert.Equal(t, 2, gen)
	assert.Equal(t, 1, chat)
	require.Len(t, h.events.diffs, 1)
	assert.True(t, h.events.diffs[0].IsFile)
	assert.Equal(t, PendingApproval, h.orch.State())

	// Nothing is written before approval.
	assert.Equal(t, "x=1", h.editor.content("/src/a.py"))

	require.NoError(t, h.orch.Approve())
	assert.Equal(t, "y=1", h.editor.content("/src/a.py"))
	assert.Equal(t, Idle, h.orch.State())
	assert.Equal(t, 1, h.events.applied)
	_, pending := h.orch.Pending()
	assert.False(t, pending)
}

func TestAnswerScenario(t *testing.T) {
	p := &scripted{
		generate: []stub{{text: classifyJSON("answer", "", "Assigns 1 to x.")}},
	}
	h := newHarness(map[string]string{"/src/a.py": "x=1"}, p)

	require.NoError(t, h.orch.AttachFiles([]string{"/src/a.py"}))
	require.NoError(t, h.orch.Ask(context.Background(), "what does this do?"))

	// Intent gating: no modify or explain call, no pending diff.
	gen, chat := p.calls()
	assert.Equal(t, 1, gen)
	assert.Equal(t, 0, chat)
	assert.Empty(t, h.events.diffs)
	assert.Equal(t, Idle, h.orch.State())

	require.Len(t, h.events.responses, 1)
	assert.Equal(t, "Assigns 1 to x.", h.events.responses[0])

	// File unchanged, context still attached for follow-up questions.
	assert.Equal(t, "x=1", h.editor.content("/src/a.py"))
	assert.Equal(t, attach.FileSet, h.attached.Current().Kind())
}

func TestContextMismatchSafety(t *testing.T) {
	p := &scripted{
		generate: []stub{{text: classifyJSON("modify", "b.py", "Changing b.py.")}},
	}
	h := newHarness(map[string]string{"/src/a.py": "x=1"}, p)

	require.NoError(t, h.orch.AttachFiles([]string{"/src/a.py"}))
	err := h.orch.Ask(context.Background(), "change b.py")
	require.Error(t, err)
	var merr *ContextMismatchError
	assert.ErrorAs(t, err, &merr)

	// No further model calls, no mutation, no pending diff.
	gen, _ := p.calls()
	assert.Equal(t, 1, gen)
	assert.Equal(t, "x=1", h.editor.content("/src/a.py"))
	assert.Equal(t, Idle, h.orch.State())

	last, ok := h.events.lastError()
	require.True(t, ok)
	assert.Equal(t, KindContextMismatch, last.kind)

	// The turn stays in history: user message plus the surfaced error.
	msgs := h.store.Active().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, conversation.RoleAssistant, msgs[1].Role)
}

func TestMismatchOnMissingTargetFileName(t *testing.T) {
	p := &scripted{
		generate: []stub{{text: classifyJSON("modify", "", "Changing something.")}},
	}
	h := newHarness(map[string]string{"/src/a.py": "x=1"}, p)
	require.NoError(t, h.orch.AttachFiles([]string{"/src/a.py"}))

	err := h.orch.Ask(context.Background(), "change it")
	var merr *ContextMismatchError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "x=1", h.editor.content("/src/a.py"))
}

func TestRollbackOnProviderErrorPlainChat(t *testing.T) {
	p := &scripted{
		chat: []stub{{err: errors.New("connection refused")}},
	}
	h := newHarness(nil, p)
	require.NoError(t, h.store.AddMessage(conversation.RoleUser, "earlier"))
	before := len(h.store.Active().Messages)

	err := h.orch.Ask(context.Background(), "hello?")
	require.Error(t, err)
	assert.Equal(t, before, len(h.store.Active().Messages))

	// The conversation remains usable for a retry.
	p.mu.Lock()
	p.chat = []stub{{text: "hi"}}
	p.mu.Unlock()
	require.NoError(t, h.orch.Ask(context.Background(), "hello?"))
	assert.Equal(t, before+2, len(h.store.Active().Messages))
}

func TestRollbackOnProviderErrorDuringClassify(t *testing.T) {
	p := &scripted{
		generate: []stub{{err: errors.New("boom")}},
	}
	h := newHarness(map[string]string{"/src/a.py": "x=1"}, p)
	require.NoError(t, h.orch.AttachFiles([]string{"/src/a.py"}))
	before := len(h.store.Active().Messages)

	require.Error(t, h.orch.Ask(context.Background(), "rename x"))
	assert.Equal(t, before, len(h.store.Active().Messages))
}

func TestRollbackOnProviderErrorDuringModify(t *testing.T) {
	p := &scripted{
		generate: []stub{
			{text: classifyJSON("modify", "a.py", "Renaming.")},
			{err: errors.New("boom")},
		},
	}
	h := newHarness(map[string]string{"/src/a.py": "x=1"}, p)
	require.NoError(t, h.orch.AttachFiles([]string{"/src/a.py"}))
	before := len(h.store.Active().Messages)

	require.Error(t, h.orch.Ask(context.Background(), "rename x"))
	assert.Equal(t, before, len(h.store.Active().Messages))
	assert.Equal(t, "x=1", h.editor.content("/src/a.py"))
	assert.Equal(t, Idle, h.orch.State())
}

func TestFormatErrorFailsClosed(t *testing.T) {
	p := &scripted{
		generate: []stub{{text: "sure, I can help with that!"}},
	}
	h := newHarness(map[string]string{"/src/a.py": "x=1"}, p)
	require.NoError(t, h.orch.AttachFiles([]string{"/src/a.py"}))
	before := len(h.store.Active().Messages)

	err := h.orch.Ask(context.Background(), "rename x")
	require.Error(t, err)
	assert.Equal(t, before, len(h.store.Active().Messages))
	assert.Equal(t, "x=1", h.editor.content("/src/a.py"))
	assert.Empty(t, h.events.diffs)

	last, ok := h.events.lastError()
	require.True(t, ok)
	assert.Equal(t, KindFormat, last.kind)
}

func TestSelectionPipeline(t *testing.T) {
	p := &scripted{
		generate: []stub{{text: "y = 2"}},
		chat:     []stub{{text: "Replaced the assignment."}},
	}
	h := newHarness(map[string]string{"/src/a.py": "x = 1\nprint(x)\n"}, p)

	r := attach.Range{StartLine: 0, StartChar: 0, EndLine: 0, EndChar: 5}
	require.NoError(t, h.orch.AttachSelection("/src/a.py", r))
	require.NoError(t, h.orch.Ask(context.Background(), "bump the value"))

	// Classification is skipped: one modify call, one explain call.
	gen, chat := p.calls()
	assert.Equal(t, 1, gen)
	assert.Equal(t, 1, chat)

	// Selection context is consumed regardless of outcome.
	assert.Equal(t, attach.None, h.attached.Current().Kind())

	require.Len(t, h.events.diffs, 1)
	assert.False(t, h.events.diffs[0].IsFile)

	require.NoError(t, h.orch.Approve())
	assert.Equal(t, "y = 2\nprint(x)\n", h.editor.content("/src/a.py"))
}

func TestSelectionClearedEvenOnFailure(t *testing.T) {
	p := &scripted{
		generate: []stub{{err: errors.New("boom")}},
	}
	h := newHarness(map[string]string{"/src/a.py": "x = 1\n"}, p)
	r := attach.Range{StartLine: 0, StartChar: 0, EndLine: 0, EndChar: 5}
	require.NoError(t, h.orch.AttachSelection("/src/a.py", r))

	require.Error(t, h.orch.Ask(context.Background(), "improve"))
	assert.Equal(t, attach.None, h.attached.Current().Kind())
}

func TestPlainChatSendsTrimmedWindow(t *testing.T) {
	p := &scripted{chat: []stub{{text: "reply"}}}
	h := newHarness(nil, p)
	for i := 0; i < 4; i++ {
		require.NoError(t, h.store.AddMessage(conversation.RoleUser, "old q"))
		require.NoError(t, h.store.AddMessage(conversation.RoleAssistant, "old a"))
	}

	require.NoError(t, h.orch.Ask(context.Background(), "newest"))

	// HistoryLimit is 2: two pairs plus the newest user message.
	require.Len(t, p.lastChat, 5)
	assert.Equal(t, "newest", p.lastChat[4].Content)
}

func TestBusyGuardRejectsConcurrentInstruction(t *testing.T) {
	p := &scripted{}
	h := newHarness(nil, p)

	require.NoError(t, h.orch.begin())
	err := h.orch.Ask(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrBusy)
	h.orch.end()
}

func TestFixErrorPipeline(t *testing.T) {
	p := &scripted{
		generate: []stub{{text: "```python\nprint(1)\n```"}},
		chat:     []stub{{text: "Removed the undefined variable."}},
	}
	h := newHarness(map[string]string{"/src/a.py": "print(z)\n"}, p)

	require.NoError(t, h.orch.FixError(context.Background(), "/src/a.py", "NameError: name 'z' is not defined", 1))
	require.Len(t, h.events.diffs, 1)
	assert.Equal(t, PendingApproval, h.orch.State())

	require.NoError(t, h.orch.Approve())
	assert.Equal(t, "print(1)\n", h.editor.content("/src/a.py"))
}

func TestNewConversationClearsContext(t *testing.T) {
	p := &scripted{}
	h := newHarness(map[string]string{"/src/a.py": "x=1"}, p)
	require.NoError(t, h.orch.AttachFiles([]string{"/src/a.py"}))

	require.NoError(t, h.orch.NewConversation())
	assert.Equal(t, attach.None, h.attached.Current().Kind())
	assert.NotEmpty(t, h.events.loaded)
	assert.NotEmpty(t, h.events.histories)
}

func TestSwitchConversationHidesSystemMessages(t *testing.T) {
	store, err := conversation.NewStore(conversation.NopPersister{}, "be helpful")
	require.NoError(t, err)
	p := &scripted{}
	events := &recordingEvents{}
	h := &harness{
		orch:     New(harnessConfig(), p, store, attach.NewManager(nil), newMemEditor(nil), events),
		store:    store,
		events:   events,
		attached: attach.NewManager(nil),
	}
	require.NoError(t, store.AddMessage(conversation.RoleUser, "q"))
	id := store.Active().ID

	require.NoError(t, h.orch.SwitchConversation(id))
	require.Len(t, events.loaded, 1)
	for _, m := range events.loaded[0] {
		assert.NotEqual(t, conversation.RoleSystem, m.Role)
	}
}

func TestRemoveFileAndClearContext(t *testing.T) {
	p := &scripted{}
	h := newHarness(map[string]string{"/src/a.py": "x=1", "/src/b.py": "y=2"}, p)
	require.NoError(t, h.orch.AttachFiles([]string{"/src/a.py", "/src/b.py"}))

	require.NoError(t, h.orch.RemoveFile("a.py"))
	assert.Equal(t, []string{"b.py"}, h.attached.Current().FileNames())

	assert.Error(t, h.orch.RemoveFile("nope.py"))

	require.NoError(t, h.orch.ClearContext())
	assert.Equal(t, attach.None, h.attached.Current().Kind())
}

func TestAttachFilesReadFailureSurfacesIOError(t *testing.T) {
	p := &scripted{}
	h := newHarness(nil, p)

	err := h.orch.AttachFiles([]string{"/missing.py"})
	require.Error(t, err)
	last, ok := h.events.lastError()
	require.True(t, ok)
	assert.Equal(t, KindIO, last.kind)
	assert.Equal(t, attach.None, h.attached.Current().Kind())
}
