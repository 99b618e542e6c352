// Package strings provides string slice helpers shared by rule tables and
// policy documents.
package strings

import (
	"strings"
)

// DedupeFunc normalizes each element with fn, drops empty results and keeps
// the first occurrence of each value. Order is preserved. A nil or empty
// input is returned unchanged.
func DedupeFunc(values []string, fn func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = fn(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// DedupeAndTrim trims whitespace and removes duplicates.
//
//	DedupeAndTrim([]string{" s3:GetObject", "s3:GetObject ", ""})
//	// []string{"s3:GetObject"}
func DedupeAndTrim(values []string) []string {
	return DedupeFunc(values, strings.TrimSpace)
}

// DedupeAndTrimLower also lowercases, for case-insensitive matching.
func DedupeAndTrimLower(values []string) []string {
	return DedupeFunc(values, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}
