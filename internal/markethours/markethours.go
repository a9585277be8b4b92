// Package markethours answers whether US equities are trading, so the robot
// only polls quotes while its orders can fill.
package markethours

import (
	"fmt"
	"time"
	_ "time/tzdata" // containers often ship without zoneinfo
)

// ET is the US Eastern location NYSE hours are quoted in.
var ET = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("markethours: load %s: %v", name, err))
	}
	return loc
}

// Regular and extended session bounds in ET, as minutes since midnight.
const (
	OpenHour    = 9
	OpenMinute  = 30
	CloseHour   = 16
	CloseMinute = 0

	EarlyCloseHour = 13

	ExtendedOpenHour  = 4
	ExtendedCloseHour = 20
)

// Session selects which trading window counts as open. Extended mirrors the
// broker's outside-RTH order flag.
type Session struct {
	Extended bool
}

// IsOpen reports whether t falls inside the session on a trading day.
func (s Session) IsOpen(t time.Time) bool {
	et := t.In(ET)
	if !IsTradingDay(et) {
		return false
	}
	open, cl := s.bounds(et)
	return !et.Before(open) && et.Before(cl)
}

// NextOpen returns the next session open at or after t. If t is inside a
// session it returns that session's open.
func (s Session) NextOpen(t time.Time) time.Time {
	et := t.In(ET)
	if IsTradingDay(et) {
		open, cl := s.bounds(et)
		if et.Before(cl) {
			return open
		}
	}
	d := et.AddDate(0, 0, 1)
	for i := 0; i < 10; i++ { // weekends plus back-to-back holidays
		if IsTradingDay(d) {
			open, _ := s.bounds(d)
			return open
		}
		d = d.AddDate(0, 0, 1)
	}
	open, _ := s.bounds(d)
	return open
}

// Close returns the session close on t's trading date.
func (s Session) Close(t time.Time) time.Time {
	_, cl := s.bounds(t.In(ET))
	return cl
}

func (s Session) bounds(et time.Time) (time.Time, time.Time) {
	y, m, d := et.Date()
	if s.Extended {
		return time.Date(y, m, d, ExtendedOpenHour, 0, 0, 0, ET),
			time.Date(y, m, d, ExtendedCloseHour, 0, 0, 0, ET)
	}
	closeHour := CloseHour
	if IsEarlyClose(et) {
		closeHour = EarlyCloseHour
	}
	return time.Date(y, m, d, OpenHour, OpenMinute, 0, 0, ET),
		time.Date(y, m, d, closeHour, CloseMinute, 0, 0, ET)
}

// Regular is the 09:30-16:00 ET session.
var Regular = Session{}

// IsMarketOpen returns true if t falls within NYSE regular trading hours.
func IsMarketOpen(t time.Time) bool {
	return Regular.IsOpen(t)
}

// IsWeekday returns true if t is Mon–Fri in ET.
func IsWeekday(t time.Time) bool {
	wd := t.In(ET).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not an exchange holiday.
func IsTradingDay(t time.Time) bool {
	return IsWeekday(t) && !IsHoliday(t)
}

// NextOpen returns the next regular session open.
func NextOpen(t time.Time) time.Time {
	return Regular.NextOpen(t)
}

// TimeUntilClose returns the duration until the session closes.
// Returns 0 if the session is not open.
func (s Session) TimeUntilClose(t time.Time) time.Duration {
	if !s.IsOpen(t) {
		return 0
	}
	return s.Close(t).Sub(t)
}

// TimeUntilOpen returns the duration until the next session open, 0 when open.
func (s Session) TimeUntilOpen(t time.Time) time.Duration {
	if s.IsOpen(t) {
		return 0
	}
	return s.NextOpen(t).Sub(t)
}

// StatusString returns a human-readable market status.
func (s Session) StatusString(t time.Time) string {
	if s.IsOpen(t) {
		return fmt.Sprintf("Market Open, closes in %s", fmtDur(s.TimeUntilClose(t)))
	}
	next := s.NextOpen(t)
	et := next.In(ET)
	return fmt.Sprintf("Market Closed, opens %s %s ET (%s)",
		et.Weekday().String()[:3], et.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
