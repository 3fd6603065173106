package export

import "strings"

// Measurer reports the rendered width of a string in the current font.
type Measurer interface {
	StringWidth(s string) float64
}

// MeasureFunc adapts a plain function to Measurer.
type MeasureFunc func(s string) float64

func (f MeasureFunc) StringWidth(s string) float64 { return f(s) }

// WrapText splits text into lines no wider than maxWidth. Explicit newlines
// start a new line, blank paragraphs are kept as empty lines, and words wider
// than maxWidth are broken between characters.
func WrapText(m Measurer, text string, maxWidth float64) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(m, paragraph, maxWidth)...)
	}
	return lines
}

func wrapParagraph(m Measurer, paragraph string, maxWidth float64) []string {
	words := strings.Fields(paragraph)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := ""
	for _, word := range words {
		if m.StringWidth(word) > maxWidth {
			if current != "" {
				lines = append(lines, current)
			}
			pieces := breakWord(m, word, maxWidth)
			lines = append(lines, pieces[:len(pieces)-1]...)
			current = pieces[len(pieces)-1]
			continue
		}
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if m.StringWidth(candidate) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

// breakWord always returns at least one piece and puts at least one rune in
// every piece, even when a single rune is wider than maxWidth.
func breakWord(m Measurer, word string, maxWidth float64) []string {
	var pieces []string
	var piece []rune
	for _, r := range word {
		next := append(piece, r)
		if len(piece) > 0 && m.StringWidth(string(next)) > maxWidth {
			pieces = append(pieces, string(piece))
			piece = []rune{r}
			continue
		}
		piece = next
	}
	return append(pieces, string(piece))
}
