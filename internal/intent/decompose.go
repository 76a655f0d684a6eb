// File path: internal/intent/decompose.go
package intent

import (
	"regexp"
	"strings"
)

// listItemPattern matches a bullet glyph, a dash or asterisk, or "N." / "N)"
// at the start of a trimmed line and captures the marker and the remainder.
var listItemPattern = regexp.MustCompile(`^([•◦▪‣●·\-*]\s*|\d+[.)]\s*)(\S.*)$`)

// minFragmentLen is the shortest question-mark fragment kept when splitting.
const minFragmentLen = 4

// listItems returns the prefix-stripped remainder of every list line.
func listItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		m := listItemPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || isDecimal(m[1], m[2]) {
			continue
		}
		if item := strings.TrimSpace(m[2]); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// isDecimal reports a number such as "1.5" read as marker "1." and item "5".
func isDecimal(marker, rest string) bool {
	return strings.HasSuffix(marker, ".") && rest[0] >= '0' && rest[0] <= '9'
}

// Decompose splits a compound question into its parts. List items win over
// question marks; the result is never empty.
func Decompose(text string) []string {
	trimmed := strings.TrimSpace(text)
	if items := listItems(trimmed); len(items) >= 2 {
		return items
	}
	if strings.Count(trimmed, "?") >= 2 {
		var parts []string
		for _, fragment := range strings.Split(trimmed, "?") {
			fragment = strings.TrimSpace(fragment)
			if len([]rune(fragment)) < minFragmentLen {
				continue
			}
			parts = append(parts, fragment+"?")
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return []string{trimmed}
}
