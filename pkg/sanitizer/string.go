package sanitizer

import "strings"

// TrimAndNormalize collapses every run of whitespace, including newlines and
// tabs, into one space and trims both ends.
func TrimAndNormalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
