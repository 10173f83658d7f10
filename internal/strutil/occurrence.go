// Package strutil provides occurrence-based substring search and a handful of
// string helpers used when rendering schema metadata.
package strutil

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// LastOccurrence selects the last match of a search string
const LastOccurrence = 0

// PositionTable maps occurrence ordinals to byte offsets.
// Ordinal n is stored at index n-1.
type PositionTable []int

// At returns the offset of the given 1-based ordinal
func (p PositionTable) At(ordinal int) (int, bool) {
	if ordinal < 1 || ordinal > len(p) {
		return -1, false
	}

	return p[ordinal-1], true
}

// Len returns the number of matches
func (p PositionTable) Len() int {
	return len(p)
}

// Ordinals returns all ordinals in scan order
func (p PositionTable) Ordinals() []int {
	ordinals := make([]int, len(p))
	for i := range p {
		ordinals[i] = i + 1
	}

	return ordinals
}

// Last returns the offset of the final match
func (p PositionTable) Last() (int, bool) {
	if len(p) == 0 {
		return -1, false
	}

	return p[len(p)-1], true
}

// Positions returns the offsets of every non-overlapping match of search in
// subject, scanning left to right.
//
// Without caseSensitive, a match is a window of subject with the same byte
// length as search that is equal under simple Unicode case folding. Pairs
// whose folded forms differ in length never match, so "ß" does not match
// "SS" and the Kelvin sign does not match "k".
func Positions(subject, search string, caseSensitive bool) PositionTable {
	positions := PositionTable{}
	if search == "" {
		return positions
	}

	offset := 0
	for {
		pos := indexFrom(subject, search, offset, caseSensitive)
		if pos < 0 {
			break
		}

		positions = append(positions, pos)
		offset = pos + len(search)
	}

	return positions
}

// OccurrencePosition returns the offset of the requested occurrence.
// LastOccurrence is resolved with a single reverse search.
func OccurrencePosition(subject, search string, occurrence int, caseSensitive bool) (int, bool) {
	if search == "" {
		return -1, false
	}

	if occurrence == LastOccurrence {
		pos := lastIndex(subject, search, caseSensitive)
		return pos, pos >= 0
	}

	offset := 0
	current := 1

	for {
		pos := indexFrom(subject, search, offset, caseSensitive)
		if pos < 0 {
			return -1, false
		}

		if current == occurrence {
			return pos, true
		}

		offset = pos + len(search)
		current++
	}
}

// AfterOccurrence returns the remainder of subject after the given occurrence
// of search. An empty search returns subject unchanged.
func AfterOccurrence(subject, search string, occurrence int, caseSensitive bool) (string, bool) {
	if search == "" {
		return subject, true
	}

	pos, ok := OccurrencePosition(subject, search, occurrence, caseSensitive)
	if !ok {
		return "", false
	}

	return subject[pos+len(search):], true
}

// After is AfterOccurrence for the first, case-insensitive match
func After(subject, search string) (string, bool) {
	return AfterOccurrence(subject, search, 1, false)
}

// BeforeOccurrence returns the portion of subject before the given occurrence
// of search. An empty search returns subject unchanged.
func BeforeOccurrence(subject, search string, occurrence int, caseSensitive bool) (string, bool) {
	if search == "" {
		return subject, true
	}

	pos, ok := OccurrencePosition(subject, search, occurrence, caseSensitive)
	if !ok {
		return "", false
	}

	return subject[:pos], true
}

// Before is BeforeOccurrence for the last match. Unlike After it matches
// case-sensitively.
func Before(subject, search string) (string, bool) {
	return BeforeOccurrence(subject, search, LastOccurrence, true)
}

// BetweenOccurrences returns the text strictly between the startOccurrence of
// startSearch and the endOccurrence of endSearch. It reports false when either
// boundary is missing or the start boundary lies past the end boundary.
func BetweenOccurrences(
	subject, startSearch, endSearch string,
	startOccurrence, endOccurrence int,
	caseSensitive bool,
) (string, bool) {
	if startSearch == "" || endSearch == "" {
		return subject, true
	}

	start, ok := OccurrencePosition(subject, startSearch, startOccurrence, caseSensitive)
	if !ok {
		return "", false
	}

	end, ok := OccurrencePosition(subject, endSearch, endOccurrence, caseSensitive)
	if !ok {
		return "", false
	}

	start += len(startSearch)
	if start > end {
		return "", false
	}

	return subject[start:end], true
}

// Between is BetweenOccurrences from the first start match to the last end
// match, case-insensitive.
func Between(subject, startSearch, endSearch string) (string, bool) {
	return BetweenOccurrences(subject, startSearch, endSearch, 1, LastOccurrence, false)
}

// WrapOccurrences surrounds the selected occurrences of search with before and
// after. An empty occurrences slice selects every match; ordinals without a
// match are skipped.
func WrapOccurrences(
	subject, search, before, after string,
	occurrences []int,
	caseSensitive bool,
) string {
	positions := Positions(subject, search, caseSensitive)
	if positions.Len() == 0 {
		return subject
	}

	if len(occurrences) == 0 {
		occurrences = positions.Ordinals()
	} else {
		occurrences = slices.Clone(occurrences)
	}

	// Highest offsets first so earlier offsets stay valid after insertion.
	slices.Sort(occurrences)
	occurrences = slices.Compact(occurrences)
	slices.Reverse(occurrences)

	for _, occurrence := range occurrences {
		pos, ok := positions.At(occurrence)
		if !ok {
			continue
		}

		end := pos + len(search)
		subject = subject[:pos] + before + subject[pos:end] + after + subject[end:]
	}

	return subject
}

// WrapOccurrencesSame wraps the selected occurrences with the same text on both sides
func WrapOccurrencesSame(subject, search, wrapper string, occurrences []int, caseSensitive bool) string {
	return WrapOccurrences(subject, search, wrapper, wrapper, occurrences, caseSensitive)
}

// indexFrom finds search in subject at or after offset, or -1. Case-insensitive
// comparison only considers windows of len(search) bytes.
func indexFrom(subject, search string, offset int, caseSensitive bool) int {
	if offset > len(subject) {
		return -1
	}

	if caseSensitive {
		pos := strings.Index(subject[offset:], search)
		if pos < 0 {
			return -1
		}

		return offset + pos
	}

	for i := offset; i+len(search) <= len(subject); i++ {
		if !utf8.RuneStart(subject[i]) {
			continue
		}

		if strings.EqualFold(subject[i:i+len(search)], search) {
			return i
		}
	}

	return -1
}

// lastIndex finds the last start offset of search in subject, or -1
func lastIndex(subject, search string, caseSensitive bool) int {
	if caseSensitive {
		return strings.LastIndex(subject, search)
	}

	for i := len(subject) - len(search); i >= 0; i-- {
		if !utf8.RuneStart(subject[i]) {
			continue
		}

		if strings.EqualFold(subject[i:i+len(search)], search) {
			return i
		}
	}

	return -1
}
