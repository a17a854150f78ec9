package ingest

import "strings"

const bulletMarker = "• "

// ReformatBullets rewrites a message into discrete bullet-like statements:
// one bullet per sentence or line, empty fragments dropped.
func ReformatBullets(text string) string {
	fragments := splitSentences(text)
	bullets := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		trimmed := strings.TrimSpace(fragment)
		if trimmed == "" {
			continue
		}
		bullets = append(bullets, bulletMarker+trimmed)
	}
	return strings.Join(bullets, "\n")
}

// splitSentences cuts text after sentence-ending punctuation followed by
// whitespace, and on line breaks.
func splitSentences(text string) []string {
	var fragments []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			fragments = append(fragments, current.String())
			current.Reset()
			continue
		}
		current.WriteRune(r)
		if isSentenceEnd(r) && (i == len(runes)-1 || isSpace(runes[i+1])) {
			fragments = append(fragments, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		fragments = append(fragments, current.String())
	}
	return fragments
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
