package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ParseDuration extends time.ParseDuration to support days (d).
func ParseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		daysStr := strings.TrimSuffix(s, "d")
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid day value: %s", daysStr)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// ExpirationParser turns user supplied text such as "2h", "3 days" or
// "tomorrow at 5pm" into an absolute time. Relative dates are resolved in a
// fixed UTC offset; daylight saving time is not applied.
type ExpirationParser struct {
	loc *time.Location
	w   *when.Parser
}

// NewExpirationParser creates a parser that interprets dates at offsetHours from UTC.
func NewExpirationParser(offsetHours int) *ExpirationParser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &ExpirationParser{
		loc: FixedZone(offsetHours),
		w:   w,
	}
}

// FixedZone returns a location with a constant offset from UTC.
func FixedZone(offsetHours int) *time.Location {
	name := fmt.Sprintf("UTC%+d", offsetHours)
	if offsetHours == -5 {
		name = "EST"
	}
	return time.FixedZone(name, offsetHours*60*60)
}

// Location returns the zone used for parsing and formatting.
func (p *ExpirationParser) Location() *time.Location {
	return p.loc
}

// Parse resolves text relative to now. ok is false when no date could be found.
func (p *ExpirationParser) Parse(text string, now time.Time) (t time.Time, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	if d, err := ParseDuration(strings.ReplaceAll(text, " ", "")); err == nil && d > 0 {
		return now.Add(d), true
	}

	base := now.In(p.loc)
	if r, err := p.w.Parse(text, base); err == nil && r != nil {
		return r.Time, true
	}
	// "3 days" is read the same as "in 3 days".
	if r, err := p.w.Parse("in "+text, base); err == nil && r != nil {
		return r.Time, true
	}
	return time.Time{}, false
}

// Format renders t like "March 3rd 2024, 5:04:05 pm" in the parser's zone.
func (p *ExpirationParser) Format(t time.Time) string {
	return FormatExpiration(t, p.loc)
}

// FormatExpiration renders t like "March 3rd 2024, 5:04:05 pm" in loc.
func FormatExpiration(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%s %d%s %d, %s", t.Month(), t.Day(), ordinalSuffix(t.Day()), t.Year(), t.Format("3:04:05 pm"))
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
