package ocr

import "strings"

// accentSets maps language tags to accented characters typical for them.
// Shared characters are listed under every language that uses them, so a
// text can legitimately pick up several tags.
var accentSets = map[string]string{
	"es": "áéíóúñü¿¡",
	"fr": "àâçèéêëîïôùûœ",
	"de": "äöüß",
	"pt": "ãõáâêçí",
}

// DetectLanguages guesses the languages of extracted text. This is a coarse
// heuristic, not a contract: pure-ASCII text is assumed English, and
// accented-character sets add tags. Results are ordered deterministically.
func DetectLanguages(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	ascii := true
	for _, r := range text {
		if r > 127 {
			ascii = false
			break
		}
	}
	if ascii {
		return []string{"en"}
	}

	langs := []string{"en"}
	for _, tag := range []string{"de", "es", "fr", "pt"} {
		if strings.ContainsAny(text, accentSets[tag]) {
			langs = append(langs, tag)
		}
	}
	return langs
}
