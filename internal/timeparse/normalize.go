// Package timeparse turns free-form Arabic/English task sentences into
// schedulable instants. It normalizes Egyptian and formal Arabic temporal
// vocabulary into canonical English phrases, resolves those phrases against a
// fixed civil timezone, splits mixed sentences into title and due moment, and
// parses recurring-cadence phrases into minute intervals.
package timeparse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// rewrite is a single normalization rule: an Arabic pattern and its canonical
// English replacement. Tables of rewrites are sorted longest-pattern-first at
// init so compound idioms are never shadowed by a shorter one they contain.
type rewrite struct {
	ar string
	en string
}

func sortLongestFirst(rules []rewrite) []rewrite {
	sort.SliceStable(rules, func(i, j int) bool {
		return len(rules[i].ar) > len(rules[j].ar)
	})
	return rules
}

// Arabic-Indic and Eastern Arabic-Indic digits to ASCII.
var digitReplacer = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
)

// Whole-phrase relative offsets ("in an hour", fractional hours). The first
// match wins and ends normalization for the sentence: whichever relative idiom
// is detected first is treated as the authoritative temporal content.
var relativeIdioms = sortLongestFirst([]rewrite{
	{"بعد ساعه", "in 1 hour"}, {"بعد ساعة", "in 1 hour"},
	{"بعد ساعتين", "in 2 hours"},
	{"بعد نص ساعه", "in 30 minutes"}, {"بعد نص ساعة", "in 30 minutes"},
	{"بعد نصف ساعة", "in 30 minutes"},
	{"بعد ربع ساعه", "in 15 minutes"}, {"بعد ربع ساعة", "in 15 minutes"},
	{"بعد تلت ساعه", "in 20 minutes"}, {"بعد تلت ساعة", "in 20 minutes"},
	{"بعد ثلث ساعة", "in 20 minutes"},
	{"بعد شويه", "in 15 minutes"}, {"بعد شوية", "in 15 minutes"},
	{"بعد شوي", "in 15 minutes"},
	{"كمان ساعه", "in 1 hour"}, {"كمان ساعة", "in 1 hour"},
	{"كمان ساعتين", "in 2 hours"},
	{"كمان نص ساعه", "in 30 minutes"}, {"كمان نص ساعة", "in 30 minutes"},
	{"كمان ربع ساعه", "in 15 minutes"}, {"كمان ربع ساعة", "in 15 minutes"},
	{"كمان شويه", "in 15 minutes"}, {"كمان شوية", "in 15 minutes"},
})

// Day names and relative days, Egyptian and formal registers.
var dayIdioms = sortLongestFirst([]rewrite{
	{"النهارده", "today"}, {"النهاردة", "today"}, {"انهارده", "today"},
	{"انهاردة", "today"}, {"اليوم", "today"},
	{"دلوقتي", "now"}, {"دلوقت", "now"},
	{"امبارح", "yesterday"}, {"مبارح", "yesterday"}, {"أمس", "yesterday"},
	{"بكره", "tomorrow"}, {"بكرة", "tomorrow"}, {"بكرا", "tomorrow"},
	{"بعد بكره", "in 2 days"}, {"بعد بكرة", "in 2 days"}, {"بعد بكرا", "in 2 days"},
	{"بعدبكره", "in 2 days"}, {"بعدبكرة", "in 2 days"},
	{"الحد", "sunday"}, {"الأحد", "sunday"}, {"الاحد", "sunday"}, {"يوم الحد", "sunday"},
	{"الاتنين", "monday"}, {"الإتنين", "monday"}, {"الاثنين", "monday"},
	{"يوم الاتنين", "monday"},
	{"التلات", "tuesday"}, {"الثلاثاء", "tuesday"}, {"الثلاث", "tuesday"},
	{"التلاتاء", "tuesday"}, {"يوم التلات", "tuesday"},
	{"الاربع", "wednesday"}, {"الأربعاء", "wednesday"}, {"الاربعاء", "wednesday"},
	{"الأربع", "wednesday"}, {"يوم الاربع", "wednesday"},
	{"الخميس", "thursday"}, {"يوم الخميس", "thursday"},
	{"الجمعه", "friday"}, {"الجمعة", "friday"}, {"يوم الجمعه", "friday"},
	{"السبت", "saturday"}, {"يوم السبت", "saturday"},
})

// Spelled-out cardinals one..twelve, Egyptian and formal spellings.
var spelledNumbers = []rewrite{
	{"واحده", "1"}, {"واحدة", "1"}, {"واحد", "1"},
	{"اتنين", "2"}, {"تنين", "2"}, {"اثنين", "2"}, {"اثنتين", "2"},
	{"تلاته", "3"}, {"تلاتة", "3"}, {"ثلاثة", "3"}, {"ثلاث", "3"}, {"تلات", "3"},
	{"اربعه", "4"}, {"اربعة", "4"}, {"أربعة", "4"}, {"أربع", "4"}, {"اربع", "4"},
	{"خمسه", "5"}, {"خمسة", "5"}, {"خمس", "5"},
	{"سته", "6"}, {"ستة", "6"}, {"ست", "6"},
	{"سبعه", "7"}, {"سبعة", "7"}, {"سبع", "7"},
	{"تمانيه", "8"}, {"تمانية", "8"}, {"تمنيه", "8"}, {"تمنية", "8"},
	{"ثمانية", "8"}, {"ثماني", "8"},
	{"تسعه", "9"}, {"تسعة", "9"}, {"تسع", "9"},
	{"عشره", "10"}, {"عشرة", "10"}, {"عشر", "10"},
	{"احداشر", "11"}, {"حداشر", "11"}, {"إحدى عشر", "11"},
	{"اتناشر", "12"}, {"اثنا عشر", "12"}, {"اثنى عشر", "12"}, {"تناشر", "12"},
}

var spelledNumberRules = func() []struct {
	re    *regexp.Regexp
	digit string
} {
	rules := make([]struct {
		re    *regexp.Regexp
		digit string
	}, 0, len(spelledNumbers))
	for _, r := range sortLongestFirst(spelledNumbers) {
		rules = append(rules, struct {
			re    *regexp.Regexp
			digit string
		}{
			re:    regexp.MustCompile(`(?:^|\s)` + regexp.QuoteMeta(r.ar) + `(?:\s|$)`),
			digit: " " + r.en + " ",
		})
	}
	return rules
}()

// Morning and afternoon/evening/night vocabulary. Matching is bounded by
// non-Arabic characters so the single-letter markers ("ص", "م") are not
// picked out of the middle of longer words like "العصر".
var amWords = []string{
	"الصبح", "صباحا", "صباحًا", "الصباح", "صباح", "صبح", "الصبحيه", "الصبحية",
	"الفجر", "فجرا", "فجرًا", "فجر",
	"ص",
}

var pmWords = []string{
	"الضهر", "الظهر", "ضهر", "ظهر", "ظهرا", "ظهرًا",
	"الضهرية", "الظهرية", "ضهرية", "بعد الضهر", "بعد الظهر",
	"العصر", "عصر", "عصرا", "عصرًا", "العصريه", "العصرية",
	"المساء", "المسا", "مساء", "مساءا", "مساءً", "مسا",
	"المغرب", "مغرب",
	"العشاء", "العشا", "عشاء", "عشا",
	"بالليل", "الليل", "بليل", "بلليل", "ليلا", "ليلًا", "ليل",
	"م",
}

const arabicClass = `\x{0600}-\x{06FF}`

type boundaryRule struct {
	re  *regexp.Regexp
	rep string
}

func compileMeridiem(words []string, tag string) []boundaryRule {
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	rules := make([]boundaryRule, 0, len(sorted))
	for _, w := range sorted {
		rules = append(rules, boundaryRule{
			re:  regexp.MustCompile(`(^|[^` + arabicClass + `])` + regexp.QuoteMeta(w) + `($|[^` + arabicClass + `])`),
			rep: "${1} " + tag + " ${2}",
		})
	}
	return rules
}

var (
	amRules = compileMeridiem(amWords, "AM")
	pmRules = compileMeridiem(pmWords, "PM")
)

var (
	halfHourRe     = regexp.MustCompile(`(\d+)\s*(?:و\s*نص(?:ف)?)`)
	minusQuarterRe = regexp.MustCompile(`(\d+)\s*(?:الا|إلا)\s*ربع`)
	quarterRe      = regexp.MustCompile(`(\d+)\s*و\s*ربع`)
	thirdRe        = regexp.MustCompile(`(\d+)\s*و\s*(?:تلت|ثلث)`)

	inHoursRe   = regexp.MustCompile(`(?:بعد|كمان)\s+(\d+)\s*(?:ساعه|ساعة|ساعات)`)
	inMinutesRe = regexp.MustCompile(`(?:بعد|كمان)\s+(\d+)\s*(?:دقيقه|دقيقة|دقايق|دقائق|دقيق)`)
	atHourRe    = regexp.MustCompile(`الساع[ةه]\s*(\d+(?::\d+)?)`)

	reminderVerbRe = regexp.MustCompile(`(?:صحيني|صحني|نبهني|فكرني|قومني|وريني|ذكرني)\s*`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	arabicScriptRe = regexp.MustCompile(`[` + arabicClass + `]`)
)

// Normalize rewrites raw text into a canonical, dialect-neutral phrase a
// date parser can understand. It is total and near-idempotent: a second pass
// over already-canonical English text performs no further rewrites.
func Normalize(text string) string {
	s := strings.TrimSpace(text)

	s = digitReplacer.Replace(s)

	// Relative offsets are authoritative: the first idiom found is
	// substituted and normalization stops for this sentence.
	for _, r := range relativeIdioms {
		if strings.Contains(s, r.ar) {
			return strings.ReplaceAll(s, r.ar, r.en)
		}
	}

	for _, r := range dayIdioms {
		s = strings.ReplaceAll(s, r.ar, r.en)
	}

	for _, r := range spelledNumberRules {
		s = r.re.ReplaceAllString(s, r.digit)
	}

	s = halfHourRe.ReplaceAllString(s, "${1}:30")
	s = minusQuarterRe.ReplaceAllStringFunc(s, func(m string) string {
		n := minusQuarterRe.FindStringSubmatch(m)[1]
		return decrementHour(n) + ":45"
	})
	s = quarterRe.ReplaceAllString(s, "${1}:15")
	s = thirdRe.ReplaceAllString(s, "${1}:20")

	for _, r := range amRules {
		s = r.re.ReplaceAllString(s, r.rep)
	}
	for _, r := range pmRules {
		s = r.re.ReplaceAllString(s, r.rep)
	}

	s = inHoursRe.ReplaceAllString(s, "in ${1} hours")
	s = inMinutesRe.ReplaceAllString(s, "in ${1} minutes")
	s = atHourRe.ReplaceAllStringFunc(s, func(m string) string {
		clock := atHourRe.FindStringSubmatch(m)[1]
		if strings.Contains(clock, ":") {
			return clock
		}
		return clock + ":00"
	})

	s = reminderVerbRe.ReplaceAllString(s, "")

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// decrementHour turns the digit string n into n-1 for "N minus a quarter"
// arithmetic ("4 إلا ربع" reads as 3:45).
func decrementHour(n string) string {
	v, _ := strconv.Atoi(n)
	if v > 0 {
		v--
	}
	return strconv.Itoa(v)
}

// containsArabic reports whether any native-script character survived
// normalization, meaning the text holds more than temporal content.
func containsArabic(s string) bool {
	return arabicScriptRe.MatchString(s)
}
