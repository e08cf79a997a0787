package model

import (
	"fmt"
	"strings"
)

// Language is the language managers reply in.
type Language string

const (
	LanguageBangla  Language = "bn"
	LanguageEnglish Language = "en"
)

func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LanguageBangla:
		return LanguageBangla, nil
	case LanguageEnglish:
		return LanguageEnglish, nil
	default:
		return "", fmt.Errorf("unknown language %q", s)
	}
}
