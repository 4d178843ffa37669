// Package placeholder shields the parts of a cell that must come back from a
// provider verbatim (URLs, e-mail addresses, markup tags) behind numbered
// markers [PH0], [PH1], ... and puts them back afterwards.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	reURL     = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"]+`)
	reEmail   = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)+`)
	reHTMLTag = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)

	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protect replaces URLs, then e-mail addresses, then tags with markers
// numbered in the order they were captured. Punctuation ending a sentence
// right after a URL stays outside the marker.
func Protect(text string) (string, []string) {
	var markers []string

	replace := func(match string) string {
		core := strings.TrimRight(match, ".,;:!?)")
		if core == "" {
			core = match
		}
		id := fmt.Sprintf("[PH%d]", len(markers))
		markers = append(markers, core)
		return id + match[len(core):]
	}

	text = reURL.ReplaceAllStringFunc(text, replace)
	text = reEmail.ReplaceAllStringFunc(text, replace)
	text = reHTMLTag.ReplaceAllStringFunc(text, replace)

	return text, markers
}

// Restore puts the originals captured by Protect back in place of their
// markers. Markers with an unknown index are left as they are.
func Restore(text string, markers []string) string {
	if len(markers) == 0 {
		return text
	}
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx < 0 || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// Missing returns the indices of markers absent from text.
func Missing(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(text, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}

// Strip removes every marker from text.
func Strip(text string) string {
	return rePlaceholder.ReplaceAllString(text, "")
}

// OnlyMarkup reports whether text holds protected content and nothing else
// worth translating: no letters remain once the markers are taken out.
func OnlyMarkup(text string) bool {
	protected, markers := Protect(text)
	if len(markers) == 0 {
		return false
	}
	return strings.IndexFunc(Strip(protected), unicode.IsLetter) < 0
}

// InstructionHint is the sentence LLM prompts carry so models keep markers.
func InstructionHint() string {
	return "Keep every [PHn] marker exactly as it appears; do not translate, move or remove it."
}
