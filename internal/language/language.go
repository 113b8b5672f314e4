package language

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUnknownLanguage is returned when a value is not a recognizable language.
var ErrUnknownLanguage = errors.New("unknown language")

// Word forms whisper users commonly pass instead of codes.
var byWord = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
	"czech":      "cs",
	"slovak":     "sk",
	"ukrainian":  "uk",
}

// IsAuto reports whether value asks for automatic language detection.
func IsAuto(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto", "detect":
		return true
	}
	return false
}

// Normalize converts a language code, BCP 47 tag or English language name into
// the base code the runtime expects (ISO 639-1 where one exists). Auto-detect
// values normalize to "".
func Normalize(value string) (string, error) {
	if IsAuto(value) {
		return "", nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if code, ok := byWord[trimmed]; ok {
		return code, nil
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w %q", ErrUnknownLanguage, value)
	}
	base, confidence := tag.Base()
	if confidence == language.No || base.String() == "und" {
		return "", fmt.Errorf("%w %q", ErrUnknownLanguage, value)
	}
	return base.String(), nil
}

// ToISO3 converts a recognized language to ISO 639-2 (3-letter).
// Returns "und" for anything it cannot resolve.
func ToISO3(value string) string {
	code, err := Normalize(value)
	if err != nil || code == "" {
		return "und"
	}
	base, err := language.ParseBase(code)
	if err != nil {
		return "und"
	}
	return base.ISO3()
}

// DisplayName returns the English name for a language code, "Auto-detect" for
// empty input, or the uppercased input when it cannot be resolved.
func DisplayName(value string) string {
	if IsAuto(value) {
		return "Auto-detect"
	}
	code, err := Normalize(value)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(value))
	}
	if name := display.English.Languages().Name(language.Make(code)); name != "" {
		return name
	}
	return strings.ToUpper(code)
}
