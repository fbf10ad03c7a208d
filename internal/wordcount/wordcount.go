// Package wordcount counts the words of a document, optionally excluding comment
// syntax so annotation-heavy drafts do not inflate writing progress.
package wordcount

import (
	"strings"
	"unicode"
)

// Count returns the number of words in text. When includeComments is false,
// Obsidian-style %%...%% comments and HTML <!--...--> comments are stripped first;
// an unterminated comment runs to the end of the text.
func Count(text string, includeComments bool) int64 {
	if !includeComments {
		text = StripComments(text)
	}
	var words int64
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			words++
			inWord = true
		}
	}
	return words
}

// StripComments removes %%...%% and <!--...--> spans from text.
func StripComments(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for len(text) > 0 {
		percent := strings.Index(text, "%%")
		html := strings.Index(text, "<!--")
		if percent < 0 && html < 0 {
			b.WriteString(text)
			break
		}

		var start int
		var closer string
		var openLen int
		if html < 0 || (percent >= 0 && percent < html) {
			start, closer, openLen = percent, "%%", 2
		} else {
			start, closer, openLen = html, "-->", 4
		}

		b.WriteString(text[:start])
		rest := text[start+openLen:]
		end := strings.Index(rest, closer)
		if end < 0 {
			break
		}
		text = rest[end+len(closer):]
	}
	return b.String()
}
