package publisher

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ryosukesatoh/arxiv-digest/internal/fetcher"
)

// FormatPaper renders a paper as a markdown chat message. abstract replaces
// the paper's own summary, usually with its translation.
func FormatPaper(p fetcher.Paper, abstract string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n", p.Title)
	fmt.Fprintf(&sb, "%s\n", abstract)
	fmt.Fprintf(&sb, "**Authors:** %s\n", strings.Join(p.Authors, ", "))
	fmt.Fprintf(&sb, "**Institutions:** %s\n", strings.Join(p.Institutions, ", "))
	fmt.Fprintf(&sb, "[Paper Link](%s)", p.Link)
	return sb.String()
}

// truncate shortens s to max characters, preferring a sentence boundary.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}

	return cutAtSentence(string(r[:max-1]))
}

// truncateBytes shortens s to at most max bytes without splitting a rune,
// preferring a sentence boundary.
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}

	end := max - len("…")
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return cutAtSentence(s[:end])
}

// cutAtSentence ends cut at its last sentence terminator when that keeps more
// than half of it, and with an ellipsis otherwise.
func cutAtSentence(cut string) string {
	if idx := strings.LastIndexAny(cut, ".!?。！？"); idx > len(cut)/2 {
		_, size := utf8.DecodeRuneInString(cut[idx:])
		return cut[:idx+size]
	}
	return cut + "…"
}

// subject returns the first line of a message without markdown heading marks.
func subject(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}
