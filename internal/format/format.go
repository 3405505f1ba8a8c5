// Package format post-processes raw model output for structured display:
// header-like lines get markdown emphasis, and quoted runs are split out so
// the caller can render suggested replies as copyable blocks.
package format

import (
	"strings"
	"unicode/utf8"
)

// maxHeaderLen is the longest a trimmed line can be and still count as a
// header; longer lines ending in ':' are ordinary prose.
const maxHeaderLen = 80

// EmphasizeHeaders wraps header-like lines in markdown bold markers. A line
// is a header when its trimmed form ends with ':' and is short, or starts
// with '#' (markdown heading, converted to bold plain text). All other
// lines, including empty ones, pass through unchanged.
func EmphasizeHeaders(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasSuffix(trimmed, ":") && utf8.RuneCountInString(trimmed) <= maxHeaderLen {
			lines[i] = "**" + trimmed + "**"
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			lines[i] = "**" + strings.Trim(trimmed, "# ") + "**"
		}
	}
	return strings.Join(lines, "\n")
}

// Kind classifies a segment of model output.
type Kind int

const (
	Text Kind = iota
	Quote
)

// Segment is a contiguous span of model output, either plain text or the
// content of a quoted run.
type Segment struct {
	Kind Kind
	Text string
}

func isQuoteRune(r rune) bool {
	return r == '"' || r == '“' || r == '”'
}

// Segments splits text into alternating plain and quoted spans, scanning
// left to right. A quoted run is a non-empty span between two straight or
// curly double quotes, used symmetrically or not. Quote content and text
// spans are trimmed; empty text spans are dropped. Text with no quoted runs
// comes back as a single Text segment.
func Segments(text string) []Segment {
	runes := []rune(text)
	var segments []Segment

	appendText := func(rs []rune) {
		s := strings.TrimSpace(string(rs))
		if s != "" {
			segments = append(segments, Segment{Kind: Text, Text: s})
		}
	}

	last := 0
	i := 0
	for i < len(runes) {
		if !isQuoteRune(runes[i]) {
			i++
			continue
		}
		j := i + 1
		for j < len(runes) && !isQuoteRune(runes[j]) {
			j++
		}
		if j >= len(runes) || j == i+1 {
			// No closing quote, or an empty pair: not a quoted run. The
			// char at j may still open a later run, so rescan from it.
			i++
			continue
		}
		appendText(runes[last:i])
		segments = append(segments, Segment{
			Kind: Quote,
			Text: strings.TrimSpace(string(runes[i+1 : j])),
		})
		i = j + 1
		last = i
	}
	appendText(runes[last:])
	return segments
}

// FirstQuote returns the content of the first quoted run, trimmed, for
// surfacing a copyable suggested reply.
func FirstQuote(text string) (string, bool) {
	for _, seg := range Segments(text) {
		if seg.Kind == Quote {
			return seg.Text, true
		}
	}
	return "", false
}
