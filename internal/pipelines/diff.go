package pipelines

import (
	"fmt"
	"html"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// diffContextLines bounds the unchanged lines shown around each change so
// long resumes stay readable in the stream fragment.
const diffContextLines = 2

// diffFragment renders a line-level original-vs-tailored diff as an HTML
// fragment. Removed lines render as <del>, added lines as <ins>, long
// unchanged runs collapse to a gap marker. Returns "" when the texts match.
func diffFragment(original, tailored string) string {
	a := difflib.SplitLines(original)
	b := difflib.SplitLines(tailored)
	opcodes := difflib.NewMatcher(a, b).GetOpCodes()

	changed := false
	var body strings.Builder
	for _, op := range opcodes {
		switch op.Tag {
		case 'e':
			writeDiffContext(&body, a[op.I1:op.I2])
		case 'd':
			changed = true
			writeDiffLines(&body, "del", a[op.I1:op.I2])
		case 'i':
			changed = true
			writeDiffLines(&body, "ins", b[op.J1:op.J2])
		case 'r':
			changed = true
			writeDiffLines(&body, "del", a[op.I1:op.I2])
			writeDiffLines(&body, "ins", b[op.J1:op.J2])
		}
	}
	if !changed {
		return ""
	}

	return fmt.Sprintf(`<details open class="resume-diff"><summary>Changes</summary><pre>%s</pre></details>`,
		body.String())
}

func writeDiffContext(b *strings.Builder, lines []string) {
	if len(lines) > diffContextLines*2+1 {
		writeDiffLines(b, "", lines[:diffContextLines])
		b.WriteString("<span class=\"diff-gap\">...</span>\n")
		writeDiffLines(b, "", lines[len(lines)-diffContextLines:])
		return
	}
	writeDiffLines(b, "", lines)
}

func writeDiffLines(b *strings.Builder, tag string, lines []string) {
	for _, line := range lines {
		text := html.EscapeString(strings.TrimRight(line, "\n"))
		switch tag {
		case "del":
			fmt.Fprintf(b, "<del>- %s</del>\n", text)
		case "ins":
			fmt.Fprintf(b, "<ins>+ %s</ins>\n", text)
		default:
			fmt.Fprintf(b, "  %s\n", text)
		}
	}
}
