package enrich

import (
	"strings"
	"testing"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "hello world", "hello world"},
		{"tags removed", "<p>hello <b>world</b></p>", "hello world"},
		{"whitespace collapsed", "hello\n\n   world\t", "hello world"},
		{"nested markup", "<div><a href='#'>link</a> and <em>emphasis</em></div>", "link and emphasis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.input); got != tt.expected {
				t.Errorf("stripHTML(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCleanAndTruncate(t *testing.T) {
	long := strings.Repeat("字", 50)

	got := cleanAndTruncate(long, 10)
	if got != strings.Repeat("字", 10)+"..." {
		t.Errorf("Expected rune-safe truncation, got %q", got)
	}

	short := "short text"
	if got := cleanAndTruncate(short, 100); got != short {
		t.Errorf("Expected short text unchanged, got %q", got)
	}
}
