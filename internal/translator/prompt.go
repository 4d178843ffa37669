package translator

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/valpere/bntran/internal/placeholder"
)

// languageName renders a BCP 47 code as an English language name for LLM
// prompts, falling back to the code itself.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// cellSystemPrompt instructs an LLM to translate one spreadsheet cell.
func cellSystemPrompt(req TranslateRequest) string {
	return fmt.Sprintf(`You translate single spreadsheet cells from %s to %s.
Reply with the translation only: no quotes, no explanations, no transliteration notes.
Personal names are transliterated into %s script. Keep digits, e-mail addresses and codes unchanged.
%s`,
		languageName(req.Source()), languageName(req.Target()), languageName(req.Target()), placeholder.InstructionHint())
}
