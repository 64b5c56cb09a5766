// Package orchestrator drives the interaction protocol: it classifies
// user intent against the attached context, sequences the
// classify/modify/explain model calls, computes reviewable diffs, and
// gates every file mutation behind the approval workflow.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codemate/internal/attach"
	"codemate/internal/config"
	"codemate/internal/conversation"
	"codemate/internal/diff"
	"codemate/internal/editor"
	"codemate/internal/logging"
	"codemate/internal/prompt"
	"codemate/internal/provider"
)

// ErrorKind labels user-visible failures for the presentation layer.
type ErrorKind string

const (
	KindConfiguration   ErrorKind = "configuration"
	KindProvider        ErrorKind = "provider"
	KindFormat          ErrorKind = "format"
	KindContextMismatch ErrorKind = "context_mismatch"
	KindIO              ErrorKind = "io"
	KindBusy            ErrorKind = "busy"
	KindInternal        ErrorKind = "internal"
)

// Guard errors returned when an operation arrives at the wrong time.
var (
	ErrBusy            = errors.New("an instruction is already in flight")
	ErrPendingApproval = errors.New("a change is awaiting approval; approve or reject it first")
	ErrNoPendingDiff   = errors.New("no change is awaiting approval")
)

// ContextMismatchError reports a classified target file that is not part
// of the attached set. No content mutation was attempted.
type ContextMismatchError struct {
	TargetFileName string
}

func (e *ContextMismatchError) Error() string {
	if e.TargetFileName == "" {
		return "model did not name a target file"
	}
	return fmt.Sprintf("model targeted file %q which is not attached", e.TargetFileName)
}

// Events is the outbound half of the presentation protocol. Context state
// changes travel separately through attach.Notifier.
type Events interface {
	Response(markdown string)
	HistoryList(summaries []conversation.Summary)
	ConversationLoaded(messages []conversation.Message)
	DiffReady(view DiffView)
	ChangeApplied()
	Error(kind ErrorKind, message string)
}

// NopEvents discards all events.
type NopEvents struct{}

func (NopEvents) Response(string)                          {}
func (NopEvents) HistoryList([]conversation.Summary)       {}
func (NopEvents) ConversationLoaded([]conversation.Message) {}
func (NopEvents) DiffReady(DiffView)                       {}
func (NopEvents) ChangeApplied()                           {}
func (NopEvents) Error(ErrorKind, string)                  {}

// Orchestrator owns the busy-guard, the approval state machine, and the
// single pending diff slot. One instruction is processed at a time.
type Orchestrator struct {
	mu      sync.Mutex
	busy    bool
	state   ApprovalState
	pending *PendingDiff

	applyMu sync.Mutex // serializes approve/reject

	cfg      config.Config
	client   provider.Client
	store    *conversation.Store
	attached *attach.Manager
	ed       editor.Editor
	differ   *diff.Engine
	events   Events
	logger   *zap.Logger
}

// New wires the orchestrator. A nil events sink is replaced by a no-op.
func New(cfg config.Config, client provider.Client, store *conversation.Store, attached *attach.Manager, ed editor.Editor, events Events) *Orchestrator {
	if events == nil {
		events = NopEvents{}
	}
	return &Orchestrator{
		cfg:      cfg,
		client:   client,
		store:    store,
		attached: attached,
		ed:       ed,
		differ:   diff.NewEngine(),
		events:   events,
		logger:   logging.Named("orchestrator"),
	}
}

// begin acquires the single-instruction guard. While a change is pending
// approval every new instruction is rejected, never queued.
func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == PendingApproval {
		return ErrPendingApproval
	}
	if o.busy {
		return ErrBusy
	}
	o.busy = true
	return nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.busy = false
	o.mu.Unlock()
}

// guard rejects an operation that arrived at the wrong time and surfaces
// the rejection to the user.
func (o *Orchestrator) guard() error {
	if err := o.begin(); err != nil {
		o.events.Error(KindBusy, err.Error())
		return err
	}
	return nil
}

// Ask dispatches a user instruction against the current context:
// file set first, then selection, then plain chat.
func (o *Orchestrator) Ask(ctx context.Context, text string) error {
	if err := o.guard(); err != nil {
		return err
	}
	defer o.end()

	current := o.attached.Current()
	o.logger.Info("instruction received",
		zap.Int("context_kind", int(current.Kind())),
		zap.Int("length", len(text)))

	switch current.Kind() {
	case attach.FileSet:
		return o.fileInteraction(ctx, text, current)
	case attach.Selection:
		return o.selectionModification(ctx, text, *current.Selection())
	default:
		return o.plainChat(ctx, text)
	}
}

// plainChat appends the instruction and sends the trimmed rolling window.
func (o *Orchestrator) plainChat(ctx context.Context, text string) error {
	if err := o.store.AddMessage(conversation.RoleUser, text); err != nil {
		return o.surface(err)
	}

	reply, err := o.client.GenerateChatContent(ctx, o.store.Window(o.cfg.HistoryLimit))
	if err != nil {
		return o.rollbackAndSurface(err)
	}

	if err := o.store.AddMessage(conversation.RoleAssistant, reply); err != nil {
		return o.surface(err)
	}
	o.events.Response(reply)
	return nil
}

// NewConversation starts a fresh conversation and drops any attached
// context.
func (o *Orchestrator) NewConversation() error {
	if err := o.guard(); err != nil {
		return err
	}
	defer o.end()

	if _, err := o.store.New(); err != nil {
		return o.surface(err)
	}
	o.attached.Clear()
	o.events.ConversationLoaded(nil)
	o.events.HistoryList(o.store.Summaries())
	return nil
}

// SwitchConversation activates another conversation and replays its
// transcript (system messages excluded from display).
func (o *Orchestrator) SwitchConversation(id uuid.UUID) error {
	if err := o.guard(); err != nil {
		return err
	}
	defer o.end()

	c, err := o.store.Switch(id)
	if err != nil {
		return o.surface(err)
	}
	o.events.ConversationLoaded(displayMessages(c.Messages))
	return nil
}

// DeleteConversation removes a conversation and reports the new state.
func (o *Orchestrator) DeleteConversation(id uuid.UUID) error {
	if err := o.guard(); err != nil {
		return err
	}
	defer o.end()

	if err := o.store.Delete(id); err != nil {
		return o.surface(err)
	}
	o.events.HistoryList(o.store.Summaries())
	o.events.ConversationLoaded(displayMessages(o.store.Active().Messages))
	return nil
}

// RequestHistory reports all conversation summaries, most recent first.
func (o *Orchestrator) RequestHistory() {
	o.events.HistoryList(o.store.Summaries())
}

// AttachFiles reads the given documents and adds them to the file set.
// File names must be unique; the base name is the identity key.
func (o *Orchestrator) AttachFiles(uris []string) error {
	if err := o.guard(); err != nil {
		return err
	}
	defer o.end()

	entries := make([]attach.FileEntry, 0, len(uris))
	for _, uri := range uris {
		data, err := o.ed.ReadFile(uri)
		if err != nil {
			return o.surface(err)
		}
		entries = append(entries, attach.FileEntry{
			URI:      uri,
			FileName: filepath.Base(uri),
			Content:  string(data),
		})
	}
	o.attached.AddFiles(entries...)
	return nil
}

// AttachSelection captures a range of a document as the selection context.
func (o *Orchestrator) AttachSelection(uri string, r attach.Range) error {
	if err := o.guard(); err != nil {
		return err
	}
	defer o.end()

	data, err := o.ed.ReadFile(uri)
	if err != nil {
		return o.surface(err)
	}
	text, err := editor.ReadRange(string(data), r)
	if err != nil {
		return o.surface(&editor.IOError{Op: "select", URI: uri, Err: err})
	}
	o.attached.SetSelection(attach.SelectionContext{URI: uri, Range: r, Text: text})
	return nil
}

// RemoveFile drops one file from the attached set.
func (o *Orchestrator) RemoveFile(fileName string) error {
	if err := o.guard(); err != nil {
		return err
	}
	defer o.end()

	if !o.attached.RemoveFile(fileName) {
		err := fmt.Errorf("file %q is not attached", fileName)
		o.events.Error(KindInternal, err.Error())
		return err
	}
	return nil
}

// ClearContext drops any attached context.
func (o *Orchestrator) ClearContext() error {
	if err := o.guard(); err != nil {
		return err
	}
	defer o.end()

	o.attached.Clear()
	return nil
}

// rollbackAndSurface undoes the just-added user message so a failed model
// call leaves history exactly as it was, then surfaces the error.
func (o *Orchestrator) rollbackAndSurface(err error) error {
	if rbErr := o.store.RemoveLastMessage(); rbErr != nil {
		o.logger.Error("rollback failed", zap.Error(rbErr))
	}
	return o.surface(err)
}

// surface converts an internal error to a user-visible event and returns it.
func (o *Orchestrator) surface(err error) error {
	var (
		perr *provider.Error
		ferr *prompt.FormatError
		merr *ContextMismatchError
		ioe  *editor.IOError
		cerr *config.ConfigurationError
	)
	switch {
	case errors.As(err, &perr):
		o.logger.Warn("provider call failed", zap.String("provider", perr.Provider), zap.Error(perr.Err))
		o.events.Error(KindProvider, perr.UserMessage())
	case errors.As(err, &ferr):
		o.logger.Warn("malformed model response", zap.Error(err))
		o.events.Error(KindFormat, "**Error:** The model response did not match the expected format. Please try again.")
	case errors.As(err, &merr):
		o.events.Error(KindContextMismatch, "**Error:** "+merr.Error()+".")
	case errors.As(err, &ioe):
		o.logger.Error("editor operation failed", zap.Error(err))
		o.events.Error(KindIO, "**Error:** "+ioe.Error())
	case errors.As(err, &cerr):
		o.events.Error(KindConfiguration, cerr.Error())
	default:
		o.logger.Error("unexpected failure", zap.Error(err))
		o.events.Error(KindInternal, err.Error())
	}
	return err
}

// displayMessages filters the transcript for presentation: system
// messages never appear in the displayed history.
func displayMessages(msgs []conversation.Message) []conversation.Message {
	out := make([]conversation.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == conversation.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}
