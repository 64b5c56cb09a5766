package diff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestComputeRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		original string
		modified string
	}{
		{"simple rename", "x = 1\nprint(x)\n", "y = 1\nprint(y)\n"},
		{"addition", "line1\nline2\n", "line1\nline1.5\nline2\n"},
		{"deletion", "a\nb\nc\n", "a\nc\n"},
		{"identical", "same\n", "same\n"},
		{"empty original", "", "new content\n"},
		{"empty modified", "old content\n", ""},
		{"both empty", "", ""},
		{"no trailing newline", "x=1", "y=1"},
	}

	engine := NewEngine()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spans := engine.Compute(tc.original, tc.modified)
			if got := Original(spans); got != tc.original {
				t.Errorf("original round trip failed:\ngot  %q\nwant %q", got, tc.original)
			}
			if got := Modified(spans); got != tc.modified {
				t.Errorf("modified round trip failed:\ngot  %q\nwant %q", got, tc.modified)
			}
		})
	}
}

func TestComputeDeterministic(t *testing.T) {
	engine := NewEngine()
	original := "def f(a):\n    return a + 1\n\nprint(f(1))\n"
	modified := "def f(a, b):\n    return a + b\n\nprint(f(1, 2))\n"

	first := engine.Compute(original, modified)
	for i := 0; i < 10; i++ {
		again := engine.Compute(original, modified)
		if d := cmp.Diff(first, again); d != "" {
			t.Fatalf("output differs between runs (-first +again):\n%s", d)
		}
	}
}

func TestComputeIdenticalInputsSingleEqualSpan(t *testing.T) {
	engine := NewEngine()
	spans := engine.Compute("abc\n", "abc\n")
	if len(spans) != 1 || spans[0].Op != Equal {
		t.Fatalf("expected single unchanged span, got %+v", spans)
	}
}

func TestLinesClassification(t *testing.T) {
	engine := NewEngine()
	lines := engine.Lines("keep\nremove me\n", "keep\nadd me\n")

	var added, removed, unchanged int
	for _, l := range lines {
		switch l.Op {
		case Insert:
			added++
			if l.Text != "add me" {
				t.Errorf("unexpected added line %q", l.Text)
			}
		case Delete:
			removed++
			if l.Text != "remove me" {
				t.Errorf("unexpected removed line %q", l.Text)
			}
		default:
			unchanged++
		}
	}
	if added != 1 || removed != 1 || unchanged != 1 {
		t.Errorf("expected 1 added, 1 removed, 1 unchanged; got %d/%d/%d", added, removed, unchanged)
	}
}

func TestLinesSuppressesBlankChanges(t *testing.T) {
	engine := NewEngine()

	// A purely blank added line is noise and is dropped.
	lines := engine.Lines("a\nb\n", "a\n\nb\n")
	for _, l := range lines {
		if l.Op == Insert {
			t.Errorf("blank added line should be suppressed, got %+v", l)
		}
	}

	// Unchanged blank lines are always kept.
	lines = engine.Lines("a\n\nb\n", "a\n\nc\n")
	foundBlank := false
	for _, l := range lines {
		if l.Op == Equal && l.Text == "" {
			foundBlank = true
		}
	}
	if !foundBlank {
		t.Error("expected unchanged blank line to be kept")
	}
}

func TestOpString(t *testing.T) {
	if Equal.String() != "unchanged" || Insert.String() != "added" || Delete.String() != "removed" {
		t.Error("unexpected op names")
	}
}
