package common

import (
	"errors"
	"strings"
	"unicode"
)

// MaxSlugLen bounds slugs used as storage key namespaces.
const MaxSlugLen = 32

var ErrEmptySlug = errors.New("slug cannot be empty")

// Slugify lowercases input and joins its ASCII letter/digit runs with single
// hyphens. When input yields nothing, fallback is slugified instead.
func Slugify(input, fallback string) (string, error) {
	slug := slugify(input)
	if slug == "" {
		slug = slugify(fallback)
	}
	if slug == "" {
		return "", ErrEmptySlug
	}
	return slug, nil
}

func slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	slug := b.String()
	if len(slug) > MaxSlugLen {
		slug = strings.TrimRight(slug[:MaxSlugLen], "-")
	}
	return slug
}
