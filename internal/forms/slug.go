package forms

import (
	"regexp"
	"strings"
)

var slugSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowers a human-readable name into a URL- and attribute-safe
// slug. Runs of anything outside [a-z0-9] collapse into single dashes.
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = slugSanitizer.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
