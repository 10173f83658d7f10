package strutil

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultCharset is the charset used when EscapeOptions leaves it empty
const DefaultCharset = "UTF-8"

// EscapeOptions controls EscapeHTMLOptions
type EscapeOptions struct {
	// Double re-encodes entities that are already present in the input
	Double bool
	// Charset is a WHATWG encoding label such as "UTF-8" or "windows-1252"
	Charset string
}

// EscapeHTML escapes &, <, >, double and single quotes. Invalid UTF-8 is
// replaced with U+FFFD.
func EscapeHTML(s string) string {
	return escapeHTML(s, true)
}

// EscapeHTMLSlice escapes every element
func EscapeHTMLSlice(items []string) []string {
	escaped := make([]string, len(items))
	for i, item := range items {
		escaped[i] = EscapeHTML(item)
	}

	return escaped
}

// EscapeHTMLOptions escapes s, which is encoded in opts.Charset, and returns
// the result in the same charset.
func EscapeHTMLOptions(s string, opts EscapeOptions) (string, error) {
	charset := opts.Charset
	if charset == "" {
		charset = DefaultCharset
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", fmt.Errorf("unsupported charset %q: %w", charset, err)
	}

	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return escapeHTML(s, opts.Double), nil
	}

	decoded, err := enc.NewDecoder().String(s)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s input: %w", charset, err)
	}

	encoded, err := encoding.ReplaceUnsupported(enc.NewEncoder()).String(escapeHTML(decoded, opts.Double))
	if err != nil {
		return "", fmt.Errorf("failed to encode %s output: %w", charset, err)
	}

	return encoded, nil
}

func escapeHTML(s string, double bool) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])

		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteRune(utf8.RuneError)
		case r == '&':
			if !double && entityAt(s[i:]) {
				b.WriteByte('&')
			} else {
				b.WriteString("&amp;")
			}
		case r == '<':
			b.WriteString("&lt;")
		case r == '>':
			b.WriteString("&gt;")
		case r == '"':
			b.WriteString("&quot;")
		case r == '\'':
			b.WriteString("&#039;")
		default:
			b.WriteString(s[i : i+size])
		}

		i += size
	}

	return b.String()
}

// entityAt reports whether s starts with a named or numeric character reference
func entityAt(s string) bool {
	end := strings.IndexByte(s, ';')
	if end < 2 {
		return false
	}

	body := s[1:end]
	if body[0] == '#' {
		digits := body[1:]
		hex := false

		if len(digits) > 0 && (digits[0] == 'x' || digits[0] == 'X') {
			digits = digits[1:]
			hex = true
		}

		if digits == "" {
			return false
		}

		for _, c := range digits {
			if !isDigit(c) && !(hex && isHexLetter(c)) {
				return false
			}
		}

		return true
	}

	if !isLetter(rune(body[0])) {
		return false
	}

	for _, c := range body {
		if !isLetter(c) && !isDigit(c) {
			return false
		}
	}

	return true
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isHexLetter(c rune) bool {
	return (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
