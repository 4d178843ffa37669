package lexicon

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns the dedup and cache key for text: trimmed, NFC
// normalized, lower-cased, with internal whitespace runs collapsed to a
// single space. Blank input is returned unchanged.
func Normalize(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}
	return strings.Join(strings.Fields(strings.ToLower(norm.NFC.String(trimmed))), " ")
}

// IsBlank reports whether text is empty or whitespace only.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// minNumericFieldLen is the shortest value treated as an ID or phone number.
const minNumericFieldLen = 4

var numericRe = regexp.MustCompile(`^\+?[0-9()\-.\s]+$`)

// IsNumeric reports whether text consists only of digits and the
// punctuation found in IDs and phone numbers, with at least one digit.
func IsNumeric(text string) bool {
	s := strings.TrimSpace(text)
	return s != "" && numericRe.MatchString(s) && strings.ContainsAny(s, "0123456789")
}

// IsNumericField reports whether text looks like an ID, phone number or
// similar non-translatable field.
func IsNumericField(text string) bool {
	return len(strings.TrimSpace(text)) >= minNumericFieldLen && IsNumeric(text)
}

var bengaliDigits = strings.NewReplacer(
	"0", "০", "1", "১", "2", "২", "3", "৩", "4", "৪",
	"5", "৫", "6", "৬", "7", "৭", "8", "৮", "9", "৯",
)

// ToBengaliDigits rewrites ASCII digits as Bengali numerals; everything else
// is left as is.
func ToBengaliDigits(text string) string {
	return bengaliDigits.Replace(text)
}
