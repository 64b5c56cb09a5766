// Package prompt builds the prompts for the classify/modify/explain
// protocol and parses the structured classification response.
package prompt

import (
	"fmt"
	"strings"
)

// FileContext is one attached file as presented to the model.
type FileContext struct {
	FileName string
	Content  string
}

// Classification builds the intent-analysis prompt for a set of attached
// files. The model must answer with a fenced JSON object carrying intent,
// targetFileName, and explanation.
func Classification(files []FileContext, instruction string) string {
	var sb strings.Builder
	sb.WriteString(`You are an expert software development assistant. Analyze the user's instruction against the attached files.

YOUR TASK:
1. Determine the user's intent:
   - If the user asks a question, wants an explanation, an analysis, or wants something located ("what does this do?", "find the bug", "summarize"), the intent is "answer".
   - If the user explicitly wants the file changed, fixed, extended, or refactored ("fix", "add", "change", "refactor"), the intent is "modify".

2. Respond ONLY with a JSON object in the following format. Do not add any other text.

` + "```json" + `
{
  "intent": "answer" | "modify",
  "targetFileName": "If intent is 'modify', the exact name of the single attached file to change. Otherwise an empty string.",
  "explanation": "Markdown text shown to the user: your answer, or a description of the change you will make."
}
` + "```" + `

USER INSTRUCTION: "` + instruction + `"

ATTACHED FILES:
`)
	for _, f := range files {
		fmt.Fprintf(&sb, "\n--- %s ---\n%s\n", f.FileName, f.Content)
	}
	return sb.String()
}

// Modification builds the prompt that asks for full replacement text.
// The model must answer with the rewritten code only.
func Modification(instruction, code string) string {
	return fmt.Sprintf(`You are an expert software developer. Modify the following code according to the instruction. Respond with nothing but the complete modified code; do not add any explanation or commentary.

INSTRUCTION: %q

CODE TO MODIFY:
---
%s
---`, instruction, code)
}

// Explanation builds the prompt that asks for a Markdown summary of a
// change, given the original and modified text.
func Explanation(original, modified string) string {
	return fmt.Sprintf(`You are an expert software developer. Briefly explain, in Markdown, what changed between the original and the modified code below and why it addresses the request. Address the user directly.

ORIGINAL CODE:
---
%s
---

MODIFIED CODE:
---
%s
---`, original, modified)
}

// FixError builds the prompt that asks for a whole-file fix of a reported
// diagnostic. The model must answer with the corrected code only.
func FixError(errorMessage string, line int, code string) string {
	return fmt.Sprintf(`Fix the error described below in the following code. Respond with nothing but the complete corrected code; do not add any explanation or commentary.

ERROR:
- Message: %q
- Line: %d

FULL CODE:
---
%s
---`, errorMessage, line, code)
}
