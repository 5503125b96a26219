package lexer

import (
	"bytes"
	"fmt"
	"strings"
)

// Excerpt formats line of src with up to two lines before it. When col is
// known a caret under the line marks it.
func Excerpt(src []byte, line, col int) string {
	lines := strings.Split(strings.TrimSuffix(string(src), "\n"), "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	var result bytes.Buffer
	for i := max(line-2, 1); i <= line; i++ {
		text := strings.TrimRight(lines[i-1], "\r")
		if i != line {
			fmt.Fprintf(&result, "     %3d | %s\n", i, text)
			continue
		}
		margin := fmt.Sprintf("  >  %3d | ", i)
		fmt.Fprintf(&result, "%s%s\n", margin, text)
		if col >= 1 && col-1 <= len(text) {
			result.WriteString(blank(margin + text[:col-1]))
			result.WriteString("^\n")
		}
	}
	return result.String()
}

// blank replaces everything but tabs with spaces so that a caret printed
// after it lines up with the text above.
func blank(s string) string {
	var buf bytes.Buffer
	for _, c := range s {
		if c == '\t' {
			buf.WriteRune('\t')
		} else {
			buf.WriteRune(' ')
		}
	}
	return buf.String()
}
