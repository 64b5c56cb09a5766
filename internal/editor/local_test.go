package editor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codemate/internal/attach"
)

func TestReplaceRange(t *testing.T) {
	content := "def f():\n    x = 1\n    return x\n"

	cases := []struct {
		name string
		r    attach.Range
		text string
		want string
	}{
		{
			"single line",
			attach.Range{StartLine: 1, StartChar: 4, EndLine: 1, EndChar: 9},
			"y = 2",
			"def f():\n    y = 2\n    return x\n",
		},
		{
			"multi line",
			attach.Range{StartLine: 1, StartChar: 4, EndLine: 2, EndChar: 12},
			"return 1",
			"def f():\n    return 1\n",
		},
		{
			"empty replacement deletes",
			attach.Range{StartLine: 1, StartChar: 0, EndLine: 2, EndChar: 0},
			"",
			"def f():\n    return x\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReplaceRange(content, tc.r, tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReplaceRangeInvalid(t *testing.T) {
	content := "one\ntwo\n"
	cases := []attach.Range{
		{StartLine: -1},
		{StartLine: 0, EndLine: 99},
		{StartLine: 0, StartChar: 50, EndLine: 0, EndChar: 50},
		{StartLine: 1, StartChar: 2, EndLine: 1, EndChar: 0},
	}
	for _, r := range cases {
		_, err := ReplaceRange(content, r, "x")
		assert.Errorf(t, err, "range %+v should be rejected", r)
	}
}

func TestReadRange(t *testing.T) {
	content := "alpha\nbeta\ngamma\n"
	got, err := ReadRange(content, attach.Range{StartLine: 1, StartChar: 0, EndLine: 1, EndChar: 4})
	require.NoError(t, err)
	assert.Equal(t, "beta", got)
}

func TestLocalReadWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))

	l := NewLocal()
	data, err := l.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(data))

	require.NoError(t, l.WriteFile(path, []byte("y = 1\n")))
	data, err = l.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "y = 1\n", string(data))
}

func TestLocalReadMissingFileIsIOError(t *testing.T) {
	l := NewLocal()
	_, err := l.ReadFile(filepath.Join(t.TempDir(), "missing.py"))
	require.Error(t, err)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
}

func TestLocalApplyRangeEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\nprint(x)\n"), 0644))

	l := NewLocal()
	err := l.ApplyRangeEdit(path, attach.Range{StartLine: 0, StartChar: 0, EndLine: 0, EndChar: 5}, "y = 2")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "y = 2\nprint(x)\n", string(data))
}

func TestLocalApplyRangeEditMissingFileIsIOError(t *testing.T) {
	l := NewLocal()
	err := l.ApplyRangeEdit(filepath.Join(t.TempDir(), "missing.py"), attach.Range{}, "x")
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
}
