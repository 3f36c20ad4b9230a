package util

import (
	"regexp"
	"strings"
)

var slugRegexp = regexp.MustCompile("[^a-z0-9_-]+")

// SafeSlug turns an arbitrary identifier (repo slug, ref pair) into a string
// usable as a file or directory name.
func SafeSlug(name string) string {
	safe := strings.ToLower(strings.ReplaceAll(name, "/", "-"))
	safe = slugRegexp.ReplaceAllString(safe, "")

	const maxLength = 200
	if len(safe) > maxLength {
		safe = safe[:maxLength]
	}
	if safe == "" {
		safe = "report"
	}
	return safe
}
