package htmlutil

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRuns = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText normalizes scraped display text: collapses whitespace runs
// (goquery text output splits words across newlines and tabs) to a
// single space, then strips the remaining non-printable runes and
// trims. Whitespace has to collapse first, stripping would fuse words
// separated only by newlines.
func CleanText(s string) string {
	s = whitespaceRuns.ReplaceAllString(s, " ")
	s = removeNonPrintable(s)
	return strings.Trim(s, " ")
}
