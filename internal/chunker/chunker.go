// Package chunker splits text that is too long for a single provider request
// into pieces, preferring line, sentence and word boundaries in that order.
package chunker

import (
	"strings"
	"unicode"
)

// Piece is one part of a split text. Sep is what stood between it and the
// next piece: "\n" after a line break, " " after a sentence or word
// boundary, "" after a hard cut. The last piece has an empty Sep.
type Piece struct {
	Text string
	Sep  string
}

// Chunk splits text into trimmed pieces of at most maxRunes runes. Text that
// already fits, or maxRunes <= 0, yields text itself as the only piece.
// Blank text yields no pieces.
func Chunk(text string, maxRunes int) []string {
	pieces := Split(text, maxRunes)
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.Text
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Split is Chunk keeping the separators, so Join can put the text back
// together with its line breaks.
func Split(text string, maxRunes int) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return []Piece{{Text: text}}
	}

	var pieces []Piece
	for len(runes) > maxRunes {
		cut, sep := splitPoint(runes[:maxRunes])
		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			pieces = append(pieces, Piece{Text: piece, Sep: sep})
		}
		runes = trimLeftSpace(runes[cut:])
	}
	if piece := strings.TrimSpace(string(runes)); piece != "" {
		pieces = append(pieces, Piece{Text: piece})
	} else if n := len(pieces); n > 0 {
		pieces[n-1].Sep = ""
	}
	return pieces
}

// Join concatenates texts, one per piece, with the pieces' separators.
func Join(pieces []Piece, texts []string) string {
	var b strings.Builder
	for i, t := range texts {
		b.WriteString(t)
		if i < len(texts)-1 && i < len(pieces) {
			b.WriteString(pieces[i].Sep)
		}
	}
	return b.String()
}

// splitPoint returns how many runes of window to take and the separator the
// cut was made at.
func splitPoint(window []rune) (int, string) {
	// line break
	for i := len(window) - 1; i > 0; i-- {
		if window[i] == '\n' {
			return i + 1, "\n"
		}
	}
	// sentence or clause end followed by a space
	for i := len(window) - 2; i > 0; i-- {
		if isTerminator(window[i]) && unicode.IsSpace(window[i+1]) {
			return i + 1, " "
		}
	}
	// word boundary
	for i := len(window) - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return i, " "
		}
	}
	return len(window), ""
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', ';', '।':
		return true
	}
	return false
}

func trimLeftSpace(runes []rune) []rune {
	for len(runes) > 0 && unicode.IsSpace(runes[0]) {
		runes = runes[1:]
	}
	return runes
}
