// Package strings provides slice-of-string helpers shared by the adapters
// and view derivations.
package strings

import "strings"

// DedupeAndTrim trims each value and drops blanks and exact duplicates,
// keeping first-seen order. The result is never nil.
func DedupeAndTrim(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
