package telegram

import (
	"strings"
	"unicode/utf8"
)

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// escapeMarkdown makes user supplied text safe inside a legacy Markdown
// message.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// codeSpan makes text safe inside a `code` span, where escapes are not
// honoured.
func codeSpan(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}

// truncate cuts text to at most maxLen runes, marking the cut.
func truncate(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	const marker = "\n\n... (truncated)"
	keep := maxLen - utf8.RuneCountInString(marker)
	if keep < 0 {
		keep = 0
	}
	return string([]rune(text)[:keep]) + marker
}
