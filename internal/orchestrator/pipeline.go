package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"codemate/internal/attach"
	"codemate/internal/conversation"
	"codemate/internal/prompt"
)

// fileInteraction runs the three-call protocol against the attached file
// set: classify, then (for modify intent) modify and explain. The file
// context stays attached after an answer so follow-up questions keep
// working; it is only cleared explicitly or by the approval workflow.
func (o *Orchestrator) fileInteraction(ctx context.Context, instruction string, current attach.Context) error {
	if err := o.store.AddMessage(conversation.RoleUser, instruction); err != nil {
		return o.surface(err)
	}

	files := current.Files()
	promptFiles := make([]prompt.FileContext, 0, len(files))
	for _, f := range files {
		promptFiles = append(promptFiles, prompt.FileContext{FileName: f.FileName, Content: f.Content})
	}

	raw, err := o.client.GenerateContent(ctx, prompt.Classification(promptFiles, instruction))
	if err != nil {
		return o.rollbackAndSurface(err)
	}

	result, err := prompt.ParseIntentResult(raw)
	if err != nil {
		// Fail closed: a malformed classification can never lead to a
		// file write.
		return o.rollbackAndSurface(err)
	}

	o.logger.Info("instruction classified",
		zap.String("intent", string(result.Intent)),
		zap.String("target", result.TargetFileName))

	if result.Intent == prompt.IntentAnswer {
		if err := o.store.AddMessage(conversation.RoleAssistant, result.Explanation); err != nil {
			return o.surface(err)
		}
		o.events.Response(result.Explanation)
		return nil
	}

	target, ok := current.FindFile(result.TargetFileName)
	if !ok {
		// The user message stays: nothing was mutated, and the transcript
		// should show what went wrong.
		merr := &ContextMismatchError{TargetFileName: result.TargetFileName}
		if err := o.store.AddMessage(conversation.RoleAssistant, "**Error:** "+merr.Error()+"."); err != nil {
			return o.surface(err)
		}
		return o.surface(merr)
	}

	modifiedRaw, err := o.client.GenerateContent(ctx, prompt.Modification(instruction, target.Content))
	if err != nil {
		return o.rollbackAndSurface(err)
	}
	result.ModifiedContent = prompt.CleanCodeBlock(modifiedRaw)

	explanation, err := o.client.GenerateChatContent(ctx, []conversation.Message{
		{Role: conversation.RoleUser, Content: prompt.Explanation(target.Content, result.ModifiedContent)},
	})
	if err != nil {
		return o.rollbackAndSurface(err)
	}

	if err := o.store.AddMessage(conversation.RoleAssistant, explanation); err != nil {
		return o.surface(err)
	}
	o.events.Response(explanation)

	o.stageDiff(target.Content, result.ModifiedContent, Target{Kind: TargetFile, URI: target.URI})
	return nil
}

// selectionModification runs the modify pipeline directly: a selection
// implies an edit request, so classification is skipped. The selection is
// consumed by this one instruction and cleared regardless of outcome.
func (o *Orchestrator) selectionModification(ctx context.Context, instruction string, sel attach.SelectionContext) error {
	defer o.attached.Clear()

	if err := o.store.AddMessage(conversation.RoleUser, instruction); err != nil {
		return o.surface(err)
	}

	modifiedRaw, err := o.client.GenerateContent(ctx, prompt.Modification(instruction, sel.Text))
	if err != nil {
		return o.rollbackAndSurface(err)
	}
	modified := prompt.CleanCodeBlock(modifiedRaw)

	explanation, err := o.client.GenerateChatContent(ctx, []conversation.Message{
		{Role: conversation.RoleUser, Content: prompt.Explanation(sel.Text, modified)},
	})
	if err != nil {
		return o.rollbackAndSurface(err)
	}

	if err := o.store.AddMessage(conversation.RoleAssistant, explanation); err != nil {
		return o.surface(err)
	}
	o.events.Response(explanation)

	o.stageDiff(sel.Text, modified, Target{Kind: TargetSelection, URI: sel.URI, Range: sel.Range})
	return nil
}

// FixError runs the modify pipeline on a whole file to correct a reported
// diagnostic, then stages the change for approval.
func (o *Orchestrator) FixError(ctx context.Context, uri, errorMessage string, line int) error {
	if err := o.guard(); err != nil {
		return err
	}
	defer o.end()

	data, err := o.ed.ReadFile(uri)
	if err != nil {
		return o.surface(err)
	}
	original := string(data)

	if err := o.store.AddMessage(conversation.RoleUser, "Fix the error: "+errorMessage); err != nil {
		return o.surface(err)
	}

	fixedRaw, err := o.client.GenerateContent(ctx, prompt.FixError(errorMessage, line, original))
	if err != nil {
		return o.rollbackAndSurface(err)
	}
	fixed := prompt.CleanCodeBlock(fixedRaw)

	explanation, err := o.client.GenerateChatContent(ctx, []conversation.Message{
		{Role: conversation.RoleUser, Content: prompt.Explanation(original, fixed)},
	})
	if err != nil {
		return o.rollbackAndSurface(err)
	}

	if err := o.store.AddMessage(conversation.RoleAssistant, explanation); err != nil {
		return o.surface(err)
	}
	o.events.Response(explanation)

	o.stageDiff(original, fixed, Target{Kind: TargetFile, URI: uri})
	return nil
}
