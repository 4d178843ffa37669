// Package postprocess strips model chatter from the raw text an LLM-backed
// provider returns for a single table cell.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean returns the bare cell translation found in text. It drops reasoning
// blocks, then leading echoes such as "Translation:" or "অনুবাদ:", then a
// pair of wrapping quotes, and finally collapses a multi-line answer to its
// first non-empty line when the model appended commentary.
func Clean(text string) string {
	text = stripReasoning(text)
	text = stripEchoes(text)
	text = unquote(text)
	text = firstLine(text)
	return strings.TrimSpace(text)
}

var (
	reasoningRe = regexp.MustCompile(
		`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
	)
	// opened but never closed
	danglingReasoningRe = regexp.MustCompile(`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`)
)

func stripReasoning(text string) string {
	text = reasoningRe.ReplaceAllString(text, "")
	text = danglingReasoningRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Echo patterns are anchored and need a trailing colon so a real cell value
// that merely starts with "Translation" survives.
var echoRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:(?:certainly|sure|of course)[,.!]?\s*)?here(?:'s| is)(?: the)? (?:bengali |bangla )?(?:translation|text)\s*(?:in (?:bengali|bangla))?\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:bengali |bangla )?(?:translation|translated text)\s*:`),
	regexp.MustCompile(`(?i)^(?:bengali|bangla)\s*:`),
	regexp.MustCompile(`^(?:বাংলা\s*)?(?:অনুবাদ|বাংলা)\s*[:ঃ]`),
}

func stripEchoes(text string) string {
	for _, re := range echoRes {
		if loc := re.FindStringIndex(text); loc != nil {
			rest := strings.TrimSpace(text[loc[1]:])
			if rest != "" {
				text = rest
			}
		}
	}
	return text
}

var quotePairs = [][2]rune{
	{'"', '"'},
	{'\'', '\''},
	{'«', '»'},
	{'“', '”'},
	{'‘', '’'},
	{'`', '`'},
}

func unquote(text string) string {
	r := []rune(text)
	if len(r) < 2 {
		return text
	}
	for _, p := range quotePairs {
		if r[0] == p[0] && r[len(r)-1] == p[1] {
			return strings.TrimSpace(string(r[1 : len(r)-1]))
		}
	}
	return text
}

func firstLine(text string) string {
	if !strings.Contains(text, "\n") {
		return text
	}
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return unquote(s)
		}
	}
	return text
}
