// Package validator checks that a translation result is in the expected target language.
package validator

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/valpere/bntran/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and only get the script check.
const minValidationLength = 20

// minScriptShare is the fraction of letters that must belong to the target
// script. Brand names and codes in Latin letters often survive translation.
const minScriptShare = 0.5

var scripts = map[string]*unicode.RangeTable{
	"bn": unicode.Bengali,
	"as": unicode.Bengali,
	"hi": unicode.Devanagari,
	"en": unicode.Latin,
}

// Validator checks that a translation result is written in the expected target language.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator backed by the lingua-go language detector.
func New() *Validator {
	return &Validator{det: detector.New()}
}

// IsValid returns true when translatedText appears to be written in targetLang.
//
// Text without letters always passes. For targets with a known script the
// letters must be mostly in that script; a provider echoing "John" back for
// Bengali fails here. Longer texts are additionally checked with the language
// detector, and texts whose language cannot be determined pass.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}
	target := strings.ToLower(targetLang)

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, fmt.Errorf("translation is empty")
	}

	if table, ok := scripts[target]; ok {
		share, letters := ScriptShare(text, table)
		if letters == 0 {
			return true, nil
		}
		if share < minScriptShare {
			return false, fmt.Errorf("expected %s script, %.0f%% of letters match", target, share*100)
		}
	}

	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return true, nil
	}
	if detected != target {
		return false, fmt.Errorf("expected %s but detected %s", target, detected)
	}
	return true, nil
}

// ScriptShare returns the fraction of letters in text that belong to table,
// and the number of letters seen. Bengali vowel signs are marks, not letters,
// so they are ignored on both sides.
func ScriptShare(text string, table *unicode.RangeTable) (float64, int) {
	var letters, inScript int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(table, r) {
			inScript++
		}
	}
	if letters == 0 {
		return 0, 0
	}
	return float64(inScript) / float64(letters), letters
}
