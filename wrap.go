package tagimg

import "strings"

// Wrap splits text into lines whose measured width does not exceed maxWidth.
//
// Runs of whitespace (including newlines) collapse to a single space and lines
// only break between words. A word that is wider than maxWidth on its own is
// kept whole on its own line and overflows.
func Wrap(text string, maxWidth int, m Measurer) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var (
		lines   []string
		current []string
	)
	for _, word := range words {
		current = append(current, word)
		if len(current) == 1 {
			// a lone word is never broken, even if it overflows
			continue
		}
		if m.Measure(strings.Join(current, " ")) > maxWidth {
			lines = append(lines, strings.Join(current[:len(current)-1], " "))
			current = []string{word}
		}
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return lines
}
