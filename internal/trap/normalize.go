package trap

import (
	"regexp"
	"strings"
)

// Rule rewrites URL paths into patterns before counting. Rules come
// from the profile file, compiled at configuration time.
type Rule struct {
	// Pattern matches the part of the path to rewrite.
	Pattern *regexp.Regexp

	// Replacement substitutes the match, with $1-style group
	// references expanded.
	Replacement string
}

// numericSegment matches path segments made entirely of digits, the
// shape of pagination offsets, calendar days and database IDs.
var numericSegment = regexp.MustCompile(`^\d+$`)

// Normalize collapses a request path into its URL pattern: custom
// rules apply first in order, then purely numeric path segments become
// a "*" wildcard so ID-carrying URLs count as one pattern. Query
// strings are expected to be stripped upstream.
func Normalize(path string, rules []Rule) string {
	for _, rule := range rules {
		path = rule.Pattern.ReplaceAllString(path, rule.Replacement)
	}

	if path == "" || path == "/" {
		return "/"
	}

	segments := strings.Split(path, "/")
	changed := false
	for i, segment := range segments {
		if numericSegment.MatchString(segment) {
			segments[i] = "*"
			changed = true
		}
	}
	if !changed {
		return path
	}
	return strings.Join(segments, "/")
}
