// Package naming holds the label, slug, and pluralization helpers used by
// resources and screens when deriving identifiers from declarations.
package naming

import (
	"strings"
	"unicode"
)

// Slugify lowercases a label and collapses every non-alphanumeric run into
// a single hyphen: "Blog Posts" -> "blog-posts".
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// Pluralize applies basic English pluralization: consonant+y -> ies,
// sibilant endings -> es, otherwise +s. Words already ending in 's' are
// returned unchanged.
func Pluralize(word string) string {
	if word == "" {
		return word
	}
	lower := strings.ToLower(word)
	switch {
	case strings.HasSuffix(lower, "s"):
		return word
	case strings.HasSuffix(lower, "y") && len(word) > 1 && !isVowel(rune(lower[len(lower)-2])):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(lower, "sh"), strings.HasSuffix(lower, "ch"),
		strings.HasSuffix(lower, "x"), strings.HasSuffix(lower, "z"):
		return word + "es"
	default:
		return word + "s"
	}
}

// TitleFromCamel splits a CamelCase identifier into a spaced label:
// "ProductCategory" -> "Product Category".
func TitleFromCamel(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SnakeToSentence turns a field name into a human label:
// "published_at" -> "Published at".
func SnakeToSentence(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
