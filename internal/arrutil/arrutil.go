// Package arrutil contains small slice and map helpers
package arrutil

import (
	"strconv"
	"strings"
)

// ImplodeWrap joins items, wrapping each one in before and after.
// An empty after reuses before.
func ImplodeWrap(items []string, before, after string) string {
	if after == "" {
		after = before
	}

	if len(items) == 0 {
		return ""
	}

	return before + strings.Join(items, after+before) + after
}

// CombineRange returns a map whose keys and values are the range start..end
// stepping by step. A non-positive step yields an empty map.
func CombineRange(start, end, step int) map[int]int {
	combined := make(map[int]int)
	if step <= 0 {
		return combined
	}

	if start <= end {
		for i := start; i <= end; i += step {
			combined[i] = i
		}

		return combined
	}

	for i := start; i >= end; i -= step {
		combined[i] = i
	}

	return combined
}

// FirstKey returns the first element of an ordered key list
func FirstKey[K any](keys []K) (K, bool) {
	var zero K
	if len(keys) == 0 {
		return zero, false
	}

	return keys[0], true
}

// LastKey returns the last element of an ordered key list
func LastKey[K any](keys []K) (K, bool) {
	var zero K
	if len(keys) == 0 {
		return zero, false
	}

	return keys[len(keys)-1], true
}

// UniqueFold removes case-insensitive duplicates, keeping the first spelling
func UniqueFold(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		result = append(result, item)
	}

	return result
}

// ContainsFold reports whether needle is in haystack, ignoring case
func ContainsFold(needle string, haystack []string) bool {
	for _, item := range haystack {
		if strings.EqualFold(needle, item) {
			return true
		}
	}

	return false
}

// IsNumericKeys reports whether every key of m is an integer literal
func IsNumericKeys[V any](m map[string]V) bool {
	for key := range m {
		if _, err := strconv.Atoi(key); err != nil {
			return false
		}
	}

	return true
}
