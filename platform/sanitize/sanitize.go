// Package sanitize cleans user-supplied text before it is stored on a lead
// or a grant, so redacted views never carry markup.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Text strips tags, including ones hidden behind HTML entities.
func Text(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(html.UnescapeString(s), "")
	return strings.TrimSpace(s)
}

// Line is Text with every whitespace run collapsed to one space.
func Line(s string) string {
	return whitespaceRe.ReplaceAllString(Text(s), " ")
}

func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	out := Text(*s)
	return &out
}

// Truncate keeps at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
