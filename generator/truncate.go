package generator

import (
	"regexp"
	"strings"
)

// Ellipsis is the single-character marker used by per-message truncation.
const Ellipsis = "…"

var newlineRuns = regexp.MustCompile(`[\r\n]+`)

// Truncate collapses internal whitespace (including newlines) to single
// spaces, trims, and cuts the result to at most n runes. When a cut happens
// the result is exactly n runes long and ends with the ellipsis character.
// Non-empty input never truncates to an empty string.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n < 1 {
		n = 1
	}
	return string(r[:n-1]) + Ellipsis
}

// TruncateToLimit enforces a platform post-length limit: when the composed
// text exceeds limit runes it is cut to limit-3 and a three-character "..."
// marker is appended, so the result is exactly limit runes. Text within the
// limit is returned unchanged (no whitespace collapsing at this stage; the
// digest layout is multi-line on purpose).
func TruncateToLimit(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return "..."[:limit]
	}
	return string(r[:limit-3]) + "..."
}

// flattenLine marks message-internal line breaks with " / " so a multi-line
// chat message survives as a single digest bullet.
func flattenLine(s string) string {
	return newlineRuns.ReplaceAllString(s, " / ")
}
