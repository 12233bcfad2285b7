package formatter

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type caser struct {
	tag language.Tag
}

func newCaser(tag language.Tag) caser { return caser{tag: tag} }

// cases.Caser keeps state between calls, so a fresh one is made per call.
func (c caser) upper(s string) string { return cases.Upper(c.tag).String(s) }
func (c caser) lower(s string) string { return cases.Lower(c.tag).String(s) }

// capitalize upper-cases the first rune and leaves the rest untouched.
func (c caser) capitalize(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	return c.upper(s[:size]) + s[size:]
}

var newlines = strings.NewReplacer("\r\n", "<br>", "\r", "<br>", "\n", "<br>")

// NewlinesToBreaks replaces each line break with <br>.
func NewlinesToBreaks(s string) string { return newlines.Replace(s) }

var linebreakRun = regexp.MustCompile(`[\r\n]+`)

// StripLinebreaks collapses every run of line breaks into one space.
func StripLinebreaks(s string) string { return linebreakRun.ReplaceAllString(s, " ") }
