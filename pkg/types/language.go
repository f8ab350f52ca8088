package types

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ParseLanguage validates a BCP-47 language hint such as "ja" or "ja-JP"
func ParseLanguage(lang string) (language.Tag, error) {
	if lang == "" {
		lang = "ja"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return language.Und, fmt.Errorf("invalid language %q: %w", lang, err)
	}
	return tag, nil
}

// TesseractLanguage maps a BCP-47 hint to the ISO 639-3 code used for
// Tesseract trained data ("ja" -> "jpn").
func TesseractLanguage(lang string) (string, error) {
	tag, err := ParseLanguage(lang)
	if err != nil {
		return "", err
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", fmt.Errorf("no base language for %q", lang)
	}
	code := base.ISO3()
	if code == "" {
		return "", fmt.Errorf("no ISO 639-3 code for %q", lang)
	}
	return code, nil
}

// LanguageName returns the English display name ("Japanese") for a hint
func LanguageName(lang string) string {
	tag, err := ParseLanguage(lang)
	if err != nil {
		return lang
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return lang
	}
	return name
}
