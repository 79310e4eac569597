// Package extract derives typed fields from recognized text using ordered
// cascading pattern rules: within each rule list the first match wins and no
// later rule is consulted. Rule order is a design contract, not an accident.
package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// rule pairs a matcher with an optional transform applied to the match. With
// no transform the first capture group is taken, or the whole match when the
// pattern has no groups.
type rule struct {
	re        *regexp.Regexp
	transform func(match []string) string
}

// firstMatch evaluates rules in order and returns the transformed value of
// the first one that matches anywhere in the text.
func firstMatch(rules []rule, text string) (string, bool) {
	for _, r := range rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if r.transform != nil {
			return r.transform(m), true
		}
		if len(m) > 1 {
			return m[1], true
		}
		return m[0], true
	}
	return "", false
}

// rx keeps the rule tables compact.
func rx(pattern string) *regexp.Regexp { return regexp.MustCompile(pattern) }

// joinUpper uppercases the whole match and strips internal whitespace, for
// alphanumeric codes the recognizer tends to split ("RS 6" -> "RS6").
func joinUpper(m []string) string { return squashUpper(m[0]) }

var whitespaceRun = regexp.MustCompile(`\s+`)

// collapseUpper uppercases s and collapses internal whitespace runs to a
// single dash separator.
func collapseUpper(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "-")
}

// squashUpper uppercases s and removes internal whitespace entirely.
func squashUpper(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToUpper(s), "")
}

// normalize applies NFC so composed and decomposed forms coming out of the
// recognition backend compare equal in the rule tables.
func normalize(s string) string {
	return norm.NFC.String(s)
}
