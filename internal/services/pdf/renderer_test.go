package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestRenderMarkdownProducesValidPDF(t *testing.T) {
	r := NewRenderer(arbor.NewLogger())
	out := filepath.Join(t.TempDir(), "resume.pdf")

	markdown := `# Jane Doe

**Senior Engineer** at Acme

## Experience

- Built billing services in Go
- Reduced deploy time

---

References available on request.`

	require.NoError(t, r.RenderMarkdown(markdown, "Jane Doe Resume", out))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(500))
}

func TestStripFrontmatter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no frontmatter", "# Hello", "# Hello"},
		{"with frontmatter", "---\nmodel: x\n---\n# Hello", "# Hello"},
		{"unclosed", "---\nmodel: x\n# Hello", "---\nmodel: x\n# Hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFrontmatter(tt.in))
		})
	}
}
