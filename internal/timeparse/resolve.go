package timeparse

import (
	"strings"
	"time"
	"unicode"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Parser resolves canonical phrases to absolute moments, anchored to a single
// civil timezone. All results are expressed in that timezone.
type Parser struct {
	loc *time.Location
	w   *when.Parser
	now func() time.Time
}

// New creates a Parser anchored to loc. The common rule set carries the
// day-before-month slash date order.
func New(loc *time.Location) *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{loc: loc, w: w, now: time.Now}
}

// Location returns the civil timezone anchor.
func (p *Parser) Location() *time.Location { return p.loc }

// Now returns the current moment in the anchor timezone.
func (p *Parser) Now() time.Time { return p.now().In(p.loc) }

// Resolve turns free text into an absolute moment. It normalizes first and,
// if that fails to parse, retries with the original text so phrases the
// underlying parser understands natively still work. The boolean is false
// when neither attempt matched; a successfully resolved moment may still lie
// in the past, rejecting past moments is the caller's concern.
func (p *Parser) Resolve(text string) (time.Time, bool) {
	base := p.Now()
	if t, ok := p.resolvePhrase(Normalize(text), base); ok {
		return t, true
	}
	return p.resolvePhrase(strings.TrimSpace(text), base)
}

// resolvePhrase parses one candidate phrase. The match must account for the
// whole phrase (anything left over may only be punctuation or spacing), so a
// date buried in an otherwise non-temporal sentence is not mistaken for the
// sentence itself.
func (p *Parser) resolvePhrase(text string, base time.Time) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}
	r, err := p.w.Parse(text, base)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	if !coversWhole(text, r.Index, r.Text) {
		return time.Time{}, false
	}

	t := r.Time.In(p.loc)

	// Future bias: a bare clock time that already passed today means the
	// next occurrence. Phrases with an explicit day reference keep their
	// resolved moment even when it lies in the past.
	if t.Before(base) && base.Sub(t) < 24*time.Hour && !hasDayAnchor(text) {
		t = t.Add(24 * time.Hour)
	}
	return t, true
}

// coversWhole reports whether the matched span accounts for every letter and
// digit of the phrase.
func coversWhole(text string, index int, matched string) bool {
	rest := text[:index] + text[index+len(matched):]
	for _, ch := range rest {
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}

var dayAnchors = []string{
	"today", "tomorrow", "yesterday", "now",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"in ", "/",
}

func hasDayAnchor(text string) bool {
	s := strings.ToLower(text)
	for _, a := range dayAnchors {
		if strings.Contains(s, a) {
			return true
		}
	}
	return false
}
