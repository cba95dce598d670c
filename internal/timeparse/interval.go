package timeparse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	arMinutesRe     = regexp.MustCompile(`^(\d+)\s*(?:دقيق[ةه]|دقايق|دقائق|دقيق|دق)`)
	arMinuteWordRe  = regexp.MustCompile(`^دقيق(?:ه|ة|تين)`)
	arHoursRe       = regexp.MustCompile(`^(\d+)\s*(?:ساع[ةه]|ساعات)`)
	arHourRe        = regexp.MustCompile(`^ساع[ةه]$`)
	arHalfHourRe    = regexp.MustCompile(`^نص(?:ف)?\s*ساع[ةه]`)
	arQuarterHourRe = regexp.MustCompile(`^ربع\s*ساع[ةه]`)
	arThirdHourRe   = regexp.MustCompile(`^(?:تلت|ثلث)\s*ساع[ةه]`)
	arHourHalfRe    = regexp.MustCompile(`^ساع[ةه]\s*و?\s*نص(?:ف)?`)
	arHourQuarterRe = regexp.MustCompile(`^ساع[ةه]\s*و?\s*ربع`)

	enMinutesRe = regexp.MustCompile(`^(\d+)\s*min(?:ute)?s?`)
	enHoursRe   = regexp.MustCompile(`^(\d+)\s*hours?`)

	bareIntRe = regexp.MustCompile(`^(\d+)$`)

	leadingEveryArRe = regexp.MustCompile(`^كل\s*`)
	leadingEveryEnRe = regexp.MustCompile(`(?i)^every\s*`)
)

// parseArabicInterval turns an Arabic cadence phrase (Egyptian or formal)
// into minutes. Returns 0 when nothing matches.
func parseArabicInterval(text string) int {
	s := strings.TrimSpace(digitReplacer.Replace(text))

	if m := arMinutesRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if arMinuteWordRe.MatchString(s) {
		if strings.Contains(s, "تين") {
			return 2
		}
		return 1
	}
	if m := arHoursRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 60
	}
	if arHourRe.MatchString(s) {
		return 60
	}
	if s == "ساعتين" {
		return 120
	}
	if arHalfHourRe.MatchString(s) {
		return 30
	}
	if arQuarterHourRe.MatchString(s) {
		return 15
	}
	if arThirdHourRe.MatchString(s) {
		return 20
	}
	if arHourHalfRe.MatchString(s) {
		return 90
	}
	if arHourQuarterRe.MatchString(s) {
		return 75
	}
	return 0
}

// parseEnglishInterval turns an English cadence phrase into minutes.
func parseEnglishInterval(text string) int {
	s := strings.ToLower(strings.TrimSpace(text))

	if m := enMinutesRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := enHoursRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 60
	}
	switch s {
	case "hour", "an hour", "1 hour":
		return 60
	case "half hour", "half an hour", "30 min":
		return 30
	}
	return 0
}

// ParseInterval parses a recurring-cadence phrase into whole minutes. A
// leading "كل" or "every" is tolerated, and a bare positive integer reads as
// minutes. The boolean is false when nothing matched or the value is not
// positive.
func ParseInterval(text string) (int, bool) {
	s := strings.TrimSpace(digitReplacer.Replace(text))

	s = strings.TrimSpace(leadingEveryArRe.ReplaceAllString(s, ""))
	if i := strings.Index(s, "كل"); i >= 0 {
		s = strings.TrimSpace(s[i+len("كل"):])
	}
	s = strings.TrimSpace(leadingEveryEnRe.ReplaceAllString(s, ""))

	if v := parseArabicInterval(s); v > 0 {
		return v, true
	}
	if v := parseEnglishInterval(s); v > 0 {
		return v, true
	}
	if m := bareIntRe.FindStringSubmatch(s); m != nil {
		if v, _ := strconv.Atoi(m[1]); v > 0 {
			return v, true
		}
	}
	return 0, false
}

// Composite "remind me ... every ..." instructions. Earlier patterns take
// precedence: the connective form binds the body tighter than the bare form.
const remindVerb = `(?:ذكر|فكر|نبه)(?:ني|نى)`

var (
	remindConnectiveRe    = regexp.MustCompile(remindVerb + `\s+(?:ب|بال|بأ|بإ|بان|بالـ|إن(?:ي|ى)\s+)?(.+?)\s+كل\s+(.+)`)
	remindIntervalFirstRe = regexp.MustCompile(remindVerb + `\s+كل\s+(.+?)\s+([` + arabicClass + `\w].+)`)
	remindBareRe          = regexp.MustCompile(remindVerb + `\s+(.+?)\s+كل\s+(.+)`)
	remindEnglishRe       = regexp.MustCompile(`(?i)remind\s+me\s+(?:to\s+)?(.+?)\s+every\s+(.+)`)
)

// ExtractReminder recognizes a one-shot instruction embedding both a reminder
// body and an interval clause ("ذكرني بالاستغفار كل 5 دقايق", "remind me to
// drink water every 30 minutes"). The first pattern that yields a non-empty
// body and a valid interval wins. The boolean is false when no pattern does.
func ExtractReminder(text string) (string, int, bool) {
	s := strings.TrimSpace(digitReplacer.Replace(text))

	if m := remindConnectiveRe.FindStringSubmatch(s); m != nil {
		body := strings.TrimSpace(m[1])
		if v := parseArabicInterval(strings.TrimSpace(m[2])); v > 0 && body != "" {
			return body, v, true
		}
	}
	if m := remindIntervalFirstRe.FindStringSubmatch(s); m != nil {
		body := strings.TrimSpace(m[2])
		if v := parseArabicInterval(strings.TrimSpace(m[1])); v > 0 && body != "" {
			return body, v, true
		}
	}
	if m := remindBareRe.FindStringSubmatch(s); m != nil {
		body := strings.TrimSpace(m[1])
		if v := parseArabicInterval(strings.TrimSpace(m[2])); v > 0 && body != "" {
			return body, v, true
		}
	}
	if m := remindEnglishRe.FindStringSubmatch(s); m != nil {
		body := strings.TrimSpace(m[1])
		if v := parseEnglishInterval(strings.TrimSpace(m[2])); v > 0 && body != "" {
			return body, v, true
		}
	}
	return "", 0, false
}
