package assist

import (
	"regexp"
	"strings"
)

var (
	summaryRe = regexp.MustCompile(`Summary:\s*(.*)`)
	// (?s) so the description captures everything to the end of the text.
	descriptionRe = regexp.MustCompile(`(?s)Description:\s*(.*)`)
)

// ParseDraft extracts the summary and description from a model response in
// the fixed "Summary: ... / Description: ..." template. A missing field
// yields an empty string for that field; parsing never fails.
func ParseDraft(text string) (summary, description string) {
	if m := summaryRe.FindStringSubmatch(text); m != nil {
		summary = strings.TrimSpace(m[1])
	}
	if m := descriptionRe.FindStringSubmatch(text); m != nil {
		description = strings.TrimSpace(m[1])
	}
	return summary, description
}
