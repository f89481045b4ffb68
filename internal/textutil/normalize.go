package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// StripLeadingBlankLines decodes b as UTF-8, replacing invalid sequences with
// U+FFFD, drops every leading line that is empty after trimming whitespace, and
// joins the remaining lines with "\n". Every Unicode line boundary listed in
// isLineBreak counts as a break, and "\r\n" is a single break. A trailing line
// break does not produce a trailing "\n" in the result. Input that is entirely
// blank yields an empty, non-nil slice.
func StripLeadingBlankLines(b []byte) []byte {
	text := decodeUTF8(b)
	lines := splitLines(text)

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	if start == len(lines) {
		return []byte{}
	}
	return []byte(strings.Join(lines[start:], "\n"))
}

func decodeUTF8(b []byte) string {
	// Malformed sequences become U+FFFD; a leading BOM is kept.
	decoded, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(decoded)
}

// splitLines splits on every line boundary. The final line break does not open
// an extra empty line.
func splitLines(text string) []string {
	var lines []string
	start := 0
	for i, r := range text {
		if i < start || !isLineBreak(r) {
			continue
		}
		lines = append(lines, text[start:i])
		start = i + utf8.RuneLen(r)
		if r == '\r' && start < len(text) && text[start] == '\n' {
			start++
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}
