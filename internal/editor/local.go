package editor

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"codemate/internal/attach"
	"codemate/internal/logging"
)

// Local is the filesystem-backed editor used by the CLI. URIs are plain
// file paths.
type Local struct {
	logger *zap.Logger
}

// NewLocal creates a filesystem editor.
func NewLocal() *Local {
	return &Local{logger: logging.Named("editor")}
}

// ReadFile implements Editor.
func (l *Local) ReadFile(uri string) ([]byte, error) {
	data, err := os.ReadFile(uri)
	if err != nil {
		return nil, &IOError{Op: "read", URI: uri, Err: err}
	}
	return data, nil
}

// WriteFile implements Editor. The write preserves the file mode when the
// file exists and creates it 0644 otherwise.
func (l *Local) WriteFile(uri string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(uri); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(uri, data, mode); err != nil {
		return &IOError{Op: "write", URI: uri, Err: err}
	}
	l.logger.Info("file written", zap.String("uri", uri), zap.Int("bytes", len(data)))
	return nil
}

// ApplyRangeEdit implements Editor.
func (l *Local) ApplyRangeEdit(uri string, r attach.Range, text string) error {
	data, err := os.ReadFile(uri)
	if err != nil {
		return &IOError{Op: "edit", URI: uri, Err: err}
	}
	updated, err := ReplaceRange(string(data), r, text)
	if err != nil {
		return &IOError{Op: "edit", URI: uri, Err: err}
	}
	if err := os.WriteFile(uri, []byte(updated), 0644); err != nil {
		return &IOError{Op: "edit", URI: uri, Err: err}
	}
	l.logger.Info("range edit applied",
		zap.String("uri", uri),
		zap.Int("start_line", r.StartLine),
		zap.Int("end_line", r.EndLine))
	return nil
}

// ReadRange extracts the text inside a line/character range.
func ReadRange(content string, r attach.Range) (string, error) {
	start, end, err := rangeOffsets(content, r)
	if err != nil {
		return "", err
	}
	return content[start:end], nil
}

// ReplaceRange substitutes the text inside a line/character range and
// returns the updated document.
func ReplaceRange(content string, r attach.Range, text string) (string, error) {
	start, end, err := rangeOffsets(content, r)
	if err != nil {
		return "", err
	}
	return content[:start] + text + content[end:], nil
}

// rangeOffsets converts a line/character range to byte offsets.
func rangeOffsets(content string, r attach.Range) (int, int, error) {
	if r.StartLine < 0 || r.EndLine < r.StartLine {
		return 0, 0, fmt.Errorf("invalid range %+v", r)
	}
	lines := strings.Split(content, "\n")
	if r.EndLine >= len(lines) {
		return 0, 0, fmt.Errorf("range end line %d beyond document (%d lines)", r.EndLine, len(lines))
	}

	start, err := offsetOf(lines, r.StartLine, r.StartChar)
	if err != nil {
		return 0, 0, err
	}
	end, err := offsetOf(lines, r.EndLine, r.EndChar)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("range end before start: %+v", r)
	}
	return start, end, nil
}

func offsetOf(lines []string, line, char int) (int, error) {
	if char < 0 || char > len(lines[line]) {
		return 0, fmt.Errorf("character %d beyond line %d (length %d)", char, line, len(lines[line]))
	}
	offset := 0
	for i := 0; i < line; i++ {
		offset += len(lines[i]) + 1 // +1 for the newline
	}
	return offset + char, nil
}
