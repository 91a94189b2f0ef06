package conv

import (
	"strings"
	"testing"
)

func TestMarkdownToText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:  "empty input",
			input: "",
		},
		{
			name:     "plain text",
			input:    "Hello world",
			contains: []string{"Hello world"},
		},
		{
			name:     "bold flattened",
			input:    "**bold**",
			contains: []string{"bold"},
			excludes: []string{"<strong>", "**"},
		},
		{
			name:     "inline code flattened",
			input:    "run `go version` first",
			contains: []string{"go version"},
			excludes: []string{"`", "<code>"},
		},
		{
			name:     "header text kept",
			input:    "# Summary\n\nAll good.",
			contains: []string{"Summary", "All good."},
			excludes: []string{"#", "<h1>"},
		},
		{
			name:     "link target kept",
			input:    "[docs](https://example.com)",
			contains: []string{"https://example.com"},
			excludes: []string{"]("},
		},
		{
			name:     "script content dropped",
			input:    "<script>alert('xss')</script>ok",
			contains: []string{"ok"},
			excludes: []string{"alert"},
		},
		{
			name:     "list items on separate lines",
			input:    "- first\n- second",
			contains: []string{"first", "second"},
			excludes: []string{"<li>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MarkdownToText(tt.input)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("MarkdownToText(%q) = %q, missing %q", tt.input, got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("MarkdownToText(%q) = %q, should not contain %q", tt.input, got, bad)
				}
			}
		})
	}
}
