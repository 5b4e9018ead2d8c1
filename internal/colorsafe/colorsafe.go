// Package colorsafe validates user-supplied color strings before they are
// written into a style property.
package colorsafe

import (
	"regexp"
	"strings"
)

var patterns = []*regexp.Regexp{
	regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`),
	regexp.MustCompile(`^rgba?\(\s*\d{1,3}%?\s*,\s*\d{1,3}%?\s*,\s*\d{1,3}%?\s*(?:,\s*(?:0|1|0?\.\d+|\d{1,3}%)\s*)?\)$`),
	regexp.MustCompile(`^hsla?\(\s*\d{1,3}(?:deg)?\s*,\s*\d{1,3}%\s*,\s*\d{1,3}%\s*(?:,\s*(?:0|1|0?\.\d+|\d{1,3}%)\s*)?\)$`),
	regexp.MustCompile(`^var\(\s*--[a-zA-Z0-9_-]+\s*\)$`),
}

// IsSafe reports whether color is a hex, rgb(a), hsl(a) or CSS variable
// expression. Anything else, including empty input, is rejected.
func IsSafe(color string) bool {
	c := strings.TrimSpace(color)
	if c == "" || len(c) > 64 {
		return false
	}
	for _, p := range patterns {
		if p.MatchString(c) {
			return true
		}
	}
	return false
}

// Sanitize returns the trimmed color when safe and "" otherwise.
func Sanitize(color string) string {
	if !IsSafe(color) {
		return ""
	}
	return strings.TrimSpace(color)
}
