package feedback

import (
	"html"
	"strings"
)

// Marker decorates the text of one item for plain-text output.
type Marker func(text string, status Status) string

// Brackets marks missing words as "[+word]" and superfluous ones as
// "[-word]".
func Brackets(text string, status Status) string {
	switch status {
	case StatusAdded:
		return "[+" + text + "]"
	case StatusRemoved:
		return "[-" + text + "]"
	default:
		return text
	}
}

// ANSI colours missing words green and superfluous ones red with a
// strike-through, for terminals.
func ANSI(text string, status Status) string {
	switch status {
	case StatusAdded:
		return "\x1b[32m" + text + "\x1b[0m"
	case StatusRemoved:
		return "\x1b[31;9m" + text + "\x1b[0m"
	default:
		return text
	}
}

// Text renders fb as one line of space-separated, marked items. A nil mark
// uses [Brackets].
func Text(fb Feedback, mark Marker) string {
	if fb.Empty {
		return ""
	}
	if mark == nil {
		mark = Brackets
	}
	parts := make([]string, len(fb.Items))
	for i, it := range fb.Items {
		parts[i] = mark(it.Text, it.Status)
	}
	return strings.Join(parts, " ")
}

var htmlClass = map[Status]string{
	StatusAdded:   "transcript-add",
	StatusRemoved: "transcript-remove",
	StatusCorrect: "transcript-correct",
}

// HTML renders fb as an unordered list whose items carry the classes
// "transcript-element" and one of "transcript-add", "transcript-remove" or
// "transcript-correct". An empty transcript renders as an empty paragraph.
func HTML(fb Feedback) string {
	if fb.Empty {
		return "<p></p>"
	}
	var b strings.Builder
	b.WriteString("<ul>")
	for _, it := range fb.Items {
		b.WriteString(`<li class="transcript-element `)
		b.WriteString(htmlClass[it.Status])
		b.WriteByte('"')
		if it.Hint != nil {
			b.WriteString(` title="`)
			b.WriteString(html.EscapeString(it.Hint.Expected))
			b.WriteByte('"')
		}
		b.WriteByte('>')
		b.WriteString(html.EscapeString(it.Text))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}
