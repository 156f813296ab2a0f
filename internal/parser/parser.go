// Package parser extracts wikilinks from note content and rewrites note headings.
package parser

import (
	"regexp"
	"strings"
)

var (
	// A link name is one or more characters other than ']'.
	wikilinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	headingRe  = regexp.MustCompile(`(?m)^#\s+.*$`)
)

// Links returns every wikilink target in text, left to right, duplicates
// included. Unterminated "[[" spans yield nothing.
func Links(text string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m[1]
	}
	return out
}

// Stub returns the content of an auto-created note: a single heading.
func Stub(name string) string {
	return "# " + name
}

// Retitle rewrites the first "# ..." heading line of content to "# name".
// Content without a heading is returned unchanged.
func Retitle(content, name string) string {
	loc := headingRe.FindStringIndex(content)
	if loc == nil {
		return content
	}
	return content[:loc[0]] + Stub(name) + content[loc[1]:]
}

// References reports whether text links to name.
func References(text, name string) bool {
	if !strings.Contains(text, name) {
		return false
	}
	for _, l := range Links(text) {
		if l == name {
			return true
		}
	}
	return false
}

// ReplaceLinks rewrites every [[oldName]] token in text to [[newName]] and
// returns the new text with the number of tokens replaced.
func ReplaceLinks(text, oldName, newName string) (string, int) {
	n := 0
	out := wikilinkRe.ReplaceAllStringFunc(text, func(tok string) string {
		if tok[2:len(tok)-2] != oldName {
			return tok
		}
		n++
		return "[[" + newName + "]]"
	})
	return out, n
}

// Title returns the text of the first heading line, or empty string.
func Title(content string) string {
	line := headingRe.FindString(content)
	if line == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "#"))
}
