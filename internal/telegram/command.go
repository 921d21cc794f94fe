package telegram

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Report command grammar: a prefix character directly attached to the report
// keyword, then the target id. Full-width variants come from QQ-style input
// habits.
var commandPrefixes = []string{"!", "！", ".", "。"}
var commandKeywords = []string{"report", "举报"}

// ParseReportCommand extracts the target id from a report command, returning
// ok=false when the text is not one.
func ParseReportCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)

	var rest string
	matched := false
	for _, p := range commandPrefixes {
		if strings.HasPrefix(text, p) {
			rest = text[len(p):]
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}

	matched = false
	for _, kw := range commandKeywords {
		if strings.HasPrefix(rest, kw) {
			rest = rest[len(kw):]
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}

	// the keyword must be followed by whitespace, not glued to the argument
	r, _ := utf8.DecodeRuneInString(rest)
	if rest == "" || !unicode.IsSpace(r) {
		return "", false
	}

	target := strings.TrimSpace(rest)
	if target == "" {
		return "", false
	}
	return target, true
}
