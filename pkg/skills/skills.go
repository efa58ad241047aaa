// Package skills normalises free-form skill tags.
package skills

import "strings"

// Parse splits a comma separated list and normalises it.
func Parse(raw string) []string {
	return Normalize(strings.Split(raw, ","))
}

// Normalize trims every tag, drops empty ones and removes case-insensitive
// duplicates. The first spelling of a tag wins and order is preserved.
// Tags that themselves contain commas are split.
func Normalize(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		for _, part := range strings.Split(tag, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			key := strings.ToLower(part)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// Contains reports whether tags holds skill, ignoring case.
func Contains(tags []string, skill string) bool {
	skill = strings.TrimSpace(skill)
	for _, t := range tags {
		if strings.EqualFold(t, skill) {
			return true
		}
	}
	return false
}
