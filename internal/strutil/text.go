package strutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const ellipsis = "..."

// LastChars returns the last count runes of s
func LastChars(s string, count int) string {
	if count <= 0 {
		return ""
	}

	runes := []rune(s)
	if count >= len(runes) {
		return s
	}

	return string(runes[len(runes)-count:])
}

// Headline turns snake_case, kebab-case and camelCase input into space
// separated title-cased words, e.g. "emailNotification_sent" -> "Email Notification Sent".
func Headline(s string) string {
	// Casers hold state, so each call gets its own.
	titleCaser := cases.Title(language.Und, cases.NoLower)

	words := splitWords(s)
	for i, word := range words {
		words[i] = titleCaser.String(word)
	}

	return strings.Join(words, " ")
}

// Humanize renders an identifier as a human-readable label
func Humanize(s string) string {
	return Headline(s)
}

// ShortenSpan escapes s and, when it is longer than length runes, truncates it
// with an ellipsis. Unless raw is set the truncated text is wrapped in a span
// whose title carries the full value.
func ShortenSpan(s string, length int, raw bool) string {
	if utf8.RuneCountInString(s) <= length {
		return EscapeHTML(s)
	}

	short := string([]rune(s)[:max(length, 0)]) + ellipsis
	if raw {
		return EscapeHTML(short)
	}

	title := strings.ReplaceAll(s, "/", "")

	return `<span title="` + EscapeHTML(title) + `">` + EscapeHTML(short) + `</span>`
}

// splitWords splits on separators and case changes
func splitWords(s string) []string {
	var (
		words   []string
		current []rune
	)

	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			flush()
			continue
		}

		if unicode.IsUpper(r) && len(current) > 0 {
			prev := current[len(current)-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}

		current = append(current, r)
	}

	flush()

	return words
}
