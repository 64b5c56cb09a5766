package orchestrator

import (
	"context"
	"errors"
	"sync"

	"codemate/internal/attach"
	"codemate/internal/config"
	"codemate/internal/conversation"
	"codemate/internal/editor"
)

// scripted is a provider whose responses are queued per operation.
type scripted struct {
	mu        sync.Mutex
	generate  []stub
	chat      []stub
	genCalls  int
	chatCalls int
	lastChat  []conversation.Message
}

type stub struct {
	text string
	err  error
}

func (s *scripted) Name() string { return "fake" }

func (s *scripted) GenerateContent(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.genCalls++
	if len(s.generate) == 0 {
		return "", errors.New("scripted provider: unexpected GenerateContent call")
	}
	next := s.generate[0]
	s.generate = s.generate[1:]
	return next.text, next.err
}

func (s *scripted) GenerateChatContent(_ context.Context, msgs []conversation.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatCalls++
	s.lastChat = msgs
	if len(s.chat) == 0 {
		return "", errors.New("scripted provider: unexpected GenerateChatContent call")
	}
	next := s.chat[0]
	s.chat = s.chat[1:]
	return next.text, next.err
}

func (s *scripted) CheckConnection(context.Context) bool { return true }

func (s *scripted) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.genCalls, s.chatCalls
}

// memEditor is an in-memory document surface.
type memEditor struct {
	mu        sync.Mutex
	files     map[string]string
	failWrite error
}

func newMemEditor(files map[string]string) *memEditor {
	if files == nil {
		files = make(map[string]string)
	}
	return &memEditor{files: files}
}

func (m *memEditor) ReadFile(uri string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[uri]
	if !ok {
		return nil, &editor.IOError{Op: "read", URI: uri, Err: errors.New("no such file")}
	}
	return []byte(content), nil
}

func (m *memEditor) WriteFile(uri string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return &editor.IOError{Op: "write", URI: uri, Err: m.failWrite}
	}
	m.files[uri] = string(data)
	return nil
}

func (m *memEditor) ApplyRangeEdit(uri string, r attach.Range, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return &editor.IOError{Op: "edit", URI: uri, Err: m.failWrite}
	}
	content, ok := m.files[uri]
	if !ok {
		return &editor.IOError{Op: "edit", URI: uri, Err: errors.New("no such file")}
	}
	updated, err := editor.ReplaceRange(content, r, text)
	if err != nil {
		return &editor.IOError{Op: "edit", URI: uri, Err: err}
	}
	m.files[uri] = updated
	return nil
}

func (m *memEditor) content(uri string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[uri]
}

func (m *memEditor) setFailWrite(err error) {
	m.mu.Lock()
	m.failWrite = err
	m.mu.Unlock()
}

// recordingEvents captures the outbound protocol.
type recordingEvents struct {
	mu        sync.Mutex
	responses []string
	histories [][]conversation.Summary
	loaded    [][]conversation.Message
	diffs     []DiffView
	applied   int
	errors    []recordedError
}

type recordedError struct {
	kind    ErrorKind
	message string
}

func (r *recordingEvents) Response(md string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, md)
}

func (r *recordingEvents) HistoryList(s []conversation.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histories = append(r.histories, s)
}

func (r *recordingEvents) ConversationLoaded(m []conversation.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = append(r.loaded, m)
}

func (r *recordingEvents) DiffReady(v DiffView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diffs = append(r.diffs, v)
}

func (r *recordingEvents) ChangeApplied() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied++
}

func (r *recordingEvents) Error(kind ErrorKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, recordedError{kind: kind, message: message})
}

func (r *recordingEvents) lastError() (recordedError, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errors) == 0 {
		return recordedError{}, false
	}
	return r.errors[len(r.errors)-1], true
}

// harness bundles a fully wired orchestrator over fakes.
type harness struct {
	orch     *Orchestrator
	provider *scripted
	editor   *memEditor
	events   *recordingEvents
	store    *conversation.Store
	attached *attach.Manager
}

func newHarness(files map[string]string, p *scripted) *harness {
	store, _ := conversation.NewStore(conversation.NopPersister{}, "")
	attached := attach.NewManager(nil)
	ed := newMemEditor(files)
	events := &recordingEvents{}
	cfg := config.Config{Provider: "fake", HistoryLimit: 2}
	return &harness{
		orch:     New(cfg, p, store, attached, ed, events),
		provider: p,
		editor:   ed,
		events:   events,
		store:    store,
		attached: attached,
	}
}

func harnessConfig() config.Config {
	return config.Config{Provider: "fake", HistoryLimit: 2}
}

func classifyJSON(intent, target, explanation string) string {
	return "```json\n{\"intent\": \"" + intent + "\", \"targetFileName\": \"" + target + "\", \"explanation\": \"" + explanation + "\"}\n```"
}
