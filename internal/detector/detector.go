package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// Languages the detector chooses between: the pair being translated plus the
// regional languages a provider is most likely to answer in by mistake.
var Languages = []lingua.Language{
	lingua.Bengali,
	lingua.English,
	lingua.Hindi,
	lingua.Urdu,
	lingua.Marathi,
	lingua.Punjabi,
}

type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(Languages...).
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code of text, e.g. "bn".
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
