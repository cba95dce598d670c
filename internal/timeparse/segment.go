package timeparse

import (
	"regexp"
	"strings"
	"time"
)

// Verbs that open a reminder request but carry no temporal or title content.
var titleVerbRe = regexp.MustCompile(
	`^(?i)(?:فكرني|ذكرني|نبهني|صحيني|صحني|قومني|قولي|remind\s+me(?:\s+to)?)\s*`,
)

// Connective prefixes glued to the start of a title ("بـ...", "عشان ...").
var titlePrefixRe = regexp.MustCompile(
	`^(?:ب|بال|بأ|بإ|بان|إن[يى]\s+|ان[يى]\s+|عشان\s+)\s*`,
)

// CleanTitle strips leading imperative reminder verbs and connective prefixes
// from a task title. If cleanup would empty the title, the trimmed original
// is returned instead.
func CleanTitle(raw string) string {
	t := strings.TrimSpace(raw)
	t = strings.TrimSpace(titleVerbRe.ReplaceAllString(t, ""))
	t = strings.TrimSpace(titlePrefixRe.ReplaceAllString(t, ""))
	if t == "" {
		return strings.TrimSpace(raw)
	}
	return t
}

// maxDateWindow bounds the candidate date phrase to the first or last six
// words of the sentence. Dates embedded deeper than that are not found; this
// is a hard limit of the search, not a defect of a particular input.
const maxDateWindow = 6

// Segment splits an unstructured sentence into a free-text title and an
// embedded due moment. The boolean is false when no date phrase was found, in
// which case the trimmed sentence is returned as the title and the caller is
// expected to prompt for a time separately.
//
// The search runs in three stages: if the whole sentence normalizes to pure
// temporal content it is resolved as-is (and the whole sentence doubles as
// the title); otherwise a prefix scan tries the longest leading date phrase
// first; finally a suffix scan tries the shortest leading title first, so the
// trailing date phrase is as long as possible.
func (p *Parser) Segment(sentence string) (string, time.Time, bool) {
	trimmed := strings.TrimSpace(sentence)

	if isPureDate(trimmed) {
		if t, ok := p.Resolve(trimmed); ok {
			return trimmed, t, true
		}
	}

	words := strings.Fields(trimmed)

	maxPrefix := len(words) - 1
	if maxPrefix > maxDateWindow {
		maxPrefix = maxDateWindow
	}
	for i := maxPrefix; i >= 1; i-- {
		datePart := strings.Join(words[:i], " ")
		titlePart := strings.Join(words[i:], " ")
		if titlePart == "" || !isPureDate(datePart) {
			continue
		}
		if t, ok := p.Resolve(datePart); ok {
			return CleanTitle(titlePart), t, true
		}
	}

	limit := len(words)
	if limit > maxDateWindow {
		limit = maxDateWindow
	}
	for i := 1; i < limit; i++ {
		datePart := strings.Join(words[i:], " ")
		titlePart := strings.Join(words[:i], " ")
		if titlePart == "" || !isPureDate(datePart) {
			continue
		}
		if t, ok := p.Resolve(datePart); ok {
			return CleanTitle(titlePart), t, true
		}
	}

	return trimmed, time.Time{}, false
}

// isPureDate reports whether text is entirely temporal content: after
// normalization no native-script characters remain. Leftover Arabic means a
// title word strayed into the candidate.
func isPureDate(text string) bool {
	return !containsArabic(Normalize(text))
}
