package prompt

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Intent classifies a user instruction.
type Intent string

const (
	IntentAnswer Intent = "answer"
	IntentModify Intent = "modify"
)

// IntentResult is the parsed classification response. TargetFileName and
// ModifiedContent are populated only when Intent is IntentModify;
// ModifiedContent is filled in by the pipeline after the modify call.
type IntentResult struct {
	Intent          Intent `json:"intent"`
	TargetFileName  string `json:"targetFileName"`
	Explanation     string `json:"explanation"`
	ModifiedContent string `json:"-"`
}

// FormatError reports a classification response that is missing required
// fields or is not parseable. Parsing fails closed: no file mutation can
// proceed from a malformed response.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "malformed model response: " + e.Reason
}

var (
	codeFenceRe = regexp.MustCompile("(?s)^```[a-zA-Z0-9]*\\s*\\n(.*?)\\n?```\\s*$")
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
)

// CleanCodeBlock strips a surrounding Markdown code fence from a model
// response, returning the inner text trimmed.
func CleanCodeBlock(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// CleanJSONBlock extracts the contents of a ```json fence if present,
// otherwise returns the trimmed input.
func CleanJSONBlock(raw string) string {
	if m := jsonFenceRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// ParseIntentResult decodes a classification response. It returns a
// *FormatError when the JSON cannot be decoded, the intent is missing or
// unknown, or the explanation is empty.
func ParseIntentResult(raw string) (*IntentResult, error) {
	cleaned := CleanJSONBlock(raw)

	var result IntentResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, &FormatError{Reason: "response is not valid JSON: " + err.Error()}
	}

	switch result.Intent {
	case IntentAnswer, IntentModify:
	case "":
		return nil, &FormatError{Reason: "missing required field \"intent\""}
	default:
		return nil, &FormatError{Reason: "unknown intent " + string(result.Intent)}
	}

	if strings.TrimSpace(result.Explanation) == "" {
		return nil, &FormatError{Reason: "missing required field \"explanation\""}
	}

	result.TargetFileName = strings.TrimSpace(result.TargetFileName)
	return &result, nil
}
