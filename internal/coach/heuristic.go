package coach

import "regexp"

var (
	planWords = regexp.MustCompile(`(?i)\b(schedule|reschedule|plan|move|add|book|cancel|delete|remove|swap|postpone|push|today|tonight|tomorrow|yesterday|next week|this week|weekend|monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|wed|thu|fri|sat|sun)\b`)
	isoDate   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
)

// WantsPlan reports whether a user message reads like a scheduling request:
// a scheduling verb, a relative day, a weekday name or a YYYY-MM-DD literal.
func WantsPlan(text string) bool {
	return planWords.MatchString(text) || isoDate.MatchString(text)
}
