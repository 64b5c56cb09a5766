package orchestrator

import (
	"go.uber.org/zap"

	"codemate/internal/attach"
	"codemate/internal/diff"
)

// ApprovalState is the approval workflow state machine. The pending diff
// slot being occupied is exactly the PendingApproval state.
type ApprovalState int

const (
	Idle ApprovalState = iota
	PendingApproval
)

// TargetKind says what a pending diff applies to.
type TargetKind int

const (
	TargetFile TargetKind = iota
	TargetSelection
)

// Target identifies where an approved change is written.
type Target struct {
	Kind  TargetKind
	URI   string
	Range attach.Range // selection targets only
}

// PendingDiff is a computed, not-yet-applied change. At most one exists
// system-wide.
type PendingDiff struct {
	Original string
	Modified string
	Target   Target
}

// DiffView is the renderable form of a pending diff handed to the
// presentation layer.
type DiffView struct {
	Spans  []diff.Span
	Lines  []diff.LineSpan
	URI    string
	IsFile bool
}

// State returns the current approval state.
func (o *Orchestrator) State() ApprovalState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Pending returns a copy of the pending diff, if any.
func (o *Orchestrator) Pending() (PendingDiff, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return PendingDiff{}, false
	}
	return *o.pending, true
}

// stageDiff parks a computed change in the single pending slot and enters
// PendingApproval.
func (o *Orchestrator) stageDiff(original, modified string, target Target) {
	pd := &PendingDiff{Original: original, Modified: modified, Target: target}

	o.mu.Lock()
	o.pending = pd
	o.state = PendingApproval
	o.mu.Unlock()

	o.logger.Info("change staged for approval",
		zap.String("uri", target.URI),
		zap.Bool("is_file", target.Kind == TargetFile))

	o.events.DiffReady(DiffView{
		Spans:  o.differ.Compute(original, modified),
		Lines:  o.differ.Lines(original, modified),
		URI:    target.URI,
		IsFile: target.Kind == TargetFile,
	})
}

// Approve applies the pending change: a whole-text overwrite for file
// targets, a range replacement for selection targets. On an IO failure
// the workflow stays in PendingApproval so approval can be retried
// without recomputing the diff.
func (o *Orchestrator) Approve() error {
	o.applyMu.Lock()
	defer o.applyMu.Unlock()

	o.mu.Lock()
	if o.state != PendingApproval || o.pending == nil {
		o.mu.Unlock()
		o.events.Error(KindBusy, ErrNoPendingDiff.Error())
		return ErrNoPendingDiff
	}
	pd := *o.pending
	o.mu.Unlock()

	var err error
	switch pd.Target.Kind {
	case TargetSelection:
		err = o.ed.ApplyRangeEdit(pd.Target.URI, pd.Target.Range, pd.Modified)
	default:
		err = o.ed.WriteFile(pd.Target.URI, []byte(pd.Modified))
	}
	if err != nil {
		// Remain pending for retry.
		return o.surface(err)
	}

	o.mu.Lock()
	o.pending = nil
	o.state = Idle
	o.mu.Unlock()

	o.attached.Clear()
	o.logger.Info("change applied", zap.String("uri", pd.Target.URI))
	o.events.ChangeApplied()
	return nil
}

// Reject discards the pending change without touching any file.
func (o *Orchestrator) Reject() error {
	o.applyMu.Lock()
	defer o.applyMu.Unlock()

	o.mu.Lock()
	if o.state != PendingApproval || o.pending == nil {
		o.mu.Unlock()
		o.events.Error(KindBusy, ErrNoPendingDiff.Error())
		return ErrNoPendingDiff
	}
	uri := o.pending.Target.URI
	o.pending = nil
	o.state = Idle
	o.mu.Unlock()

	o.attached.Clear()
	o.logger.Info("change rejected", zap.String("uri", uri))
	return nil
}
