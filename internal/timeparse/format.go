package timeparse

import (
	"fmt"
	"time"
)

// Weekday labels, Monday first, matching the bot's Egyptian voice.
var weekdayNames = [7]string{
	"الاتنين", "التلات", "الاربع", "الخميس", "الجمعة", "السبت", "الحد",
}

const clockLayout = "03:04 PM"

// FormatDue renders an absolute moment relative to now: today and tomorrow by
// name, anything within the next seven calendar days by weekday, everything
// else as a full date. Purely presentational.
func FormatDue(t, now time.Time) string {
	t = t.In(now.Location())
	clock := t.Format(clockLayout)

	days := calendarDays(now, t)
	switch {
	case days == 0:
		return "النهاردة " + clock
	case days == 1:
		return "بكرة " + clock
	case days > 1 && days < 7:
		return weekdayNames[(int(t.Weekday())+6)%7] + " " + clock
	default:
		return t.Format("2006-01-02 03:04 PM")
	}
}

// calendarDays counts whole calendar days from a's date to b's date.
func calendarDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, a.Location())
	end := time.Date(by, bm, bd, 0, 0, 0, 0, b.Location())
	return int(end.Sub(start) / (24 * time.Hour))
}

// FormatDue renders relative to the parser's clock.
func (p *Parser) FormatDue(t time.Time) string {
	return FormatDue(t, p.Now())
}

// FormatInterval renders a minute interval in the bot's Arabic voice
// ("5 دقيقة", "ساعة", "ساعتين", "3 ساعات و 20 دقيقة").
func FormatInterval(mins int) string {
	if mins < 60 {
		return fmt.Sprintf("%d دقيقة", mins)
	}
	hours := mins / 60
	rem := mins % 60
	if rem == 0 {
		switch hours {
		case 1:
			return "ساعة"
		case 2:
			return "ساعتين"
		}
		return fmt.Sprintf("%d ساعات", hours)
	}
	if hours == 1 {
		return fmt.Sprintf("ساعة و %d دقيقة", rem)
	}
	return fmt.Sprintf("%d ساعات و %d دقيقة", hours, rem)
}
