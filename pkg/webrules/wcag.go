package webrules

import (
	"regexp"
	"strings"
)

// wcagHints maps WCAG 2.1 success criteria to remediation advice.
var wcagHints = map[string]string{
	"1.1.1": "Provide text alternatives for non-text content.",
	"1.3.1": "Use semantic HTML and landmarks to convey structure.",
	"1.4.3": "Ensure sufficient color contrast (AA).",
	"2.1.1": "All functionality must be keyboard accessible.",
	"2.4.4": "Use meaningful link text that describes the destination.",
	"2.4.6": "Use descriptive headings and labels.",
	"3.1.1": "Specify the default language of the page (e.g., <html lang='en'>).",
	"3.3.2": "Associate labels with form inputs and provide instructions.",
}

var wcagCodeRE = regexp.MustCompile(`\d\.\d\.\d`)

// NormalizeWCAG extracts bare n.n.n criterion codes from loosely formatted
// tags like "WCAG 1.1.1" or "wcag111", deduplicated in input order.
func NormalizeWCAG(codes []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range codes {
		code := wcagCodeRE.FindString(raw)
		if code == "" {
			code = strings.TrimSpace(raw)
		}
		if code != "" && !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	return out
}

// HintsFor returns the remediation hints for the given WCAG codes.
func HintsFor(codes []string) []string {
	var hints []string
	seen := make(map[string]bool)
	for _, c := range NormalizeWCAG(codes) {
		if h, ok := wcagHints[c]; ok && !seen[h] {
			seen[h] = true
			hints = append(hints, h)
		}
	}
	return hints
}

// RemediationFor returns a single remediation line for a check, derived from
// the check's WCAG tags.
func RemediationFor(checkID string) string {
	c, ok := Get(checkID)
	if !ok {
		return ""
	}
	if hints := HintsFor(c.WCAG); len(hints) > 0 {
		return strings.Join(hints, " ")
	}
	return ""
}
