// Package markethours answers whether an exchange session is open and when
// it opens next. The scanner uses it to skip scans outside trading hours.
package markethours

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// Session describes a daily trading session in its exchange's time zone.
type Session struct {
	Name        string
	Loc         *time.Location
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
	// AlwaysOpen marks 24/7 venues; the other fields are ignored.
	AlwaysOpen bool
	holidays   map[string]bool
}

// NSE is the National Stock Exchange cash session: 9:15 AM – 3:30 PM IST,
// Mon–Fri, excluding exchange holidays.
var NSE = &Session{
	Name:        "NSE",
	Loc:         IST,
	OpenHour:    9,
	OpenMinute:  15,
	CloseHour:   15,
	CloseMinute: 30,
	holidays:    nseHolidays,
}

// Crypto is a 24/7 session.
var Crypto = &Session{Name: "crypto", Loc: time.UTC, AlwaysOpen: true}

// ByName returns the session for "nse" or "crypto".
func ByName(name string) (*Session, error) {
	switch name {
	case "nse", "NSE":
		return NSE, nil
	case "crypto", "":
		return Crypto, nil
	default:
		return nil, fmt.Errorf("markethours: unknown session %q", name)
	}
}

// IsHoliday returns true if the date (in the session zone) is a holiday.
func (s *Session) IsHoliday(t time.Time) bool {
	local := t.In(s.Loc)
	return s.holidays[dateKey(local.Year(), local.Month(), local.Day())]
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func (s *Session) IsTradingDay(t time.Time) bool {
	if s.AlwaysOpen {
		return true
	}
	local := t.In(s.Loc)
	wd := local.Weekday()
	return wd >= time.Monday && wd <= time.Friday && !s.IsHoliday(local)
}

// IsOpen returns true if t falls within the session.
func (s *Session) IsOpen(t time.Time) bool {
	if s.AlwaysOpen {
		return true
	}
	local := t.In(s.Loc)
	if !s.IsTradingDay(local) {
		return false
	}
	hm := local.Hour()*60 + local.Minute()
	return hm >= s.OpenHour*60+s.OpenMinute && hm < s.CloseHour*60+s.CloseMinute
}

// NextOpen returns the next session open at or after t. If t is before
// today's open on a trading day, it returns today's open. For 24/7
// sessions it returns t.
func (s *Session) NextOpen(t time.Time) time.Time {
	if s.AlwaysOpen {
		return t
	}
	local := t.In(s.Loc)

	todayOpen := s.openOn(local)
	if local.Before(todayOpen) && s.IsTradingDay(local) {
		return todayOpen
	}

	d := local.AddDate(0, 0, 1)
	for i := 0; i < 10; i++ { // max 10 days ahead (holidays + weekends)
		if s.IsTradingDay(d) {
			return s.openOn(d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return s.openOn(local.AddDate(0, 0, 1))
}

func (s *Session) openOn(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), s.OpenHour, s.OpenMinute, 0, 0, s.Loc)
}

// TodayClose returns today's close in the session zone.
func (s *Session) TodayClose(t time.Time) time.Time {
	local := t.In(s.Loc)
	return time.Date(local.Year(), local.Month(), local.Day(), s.CloseHour, s.CloseMinute, 0, 0, s.Loc)
}

// TimeUntilOpen returns the duration until the next open (0 when open).
func (s *Session) TimeUntilOpen(t time.Time) time.Duration {
	if s.IsOpen(t) {
		return 0
	}
	return s.NextOpen(t).Sub(t)
}

// StatusString returns a human-readable session status.
func (s *Session) StatusString(t time.Time) string {
	if s.AlwaysOpen {
		return fmt.Sprintf("%s: open 24/7", s.Name)
	}
	if s.IsOpen(t) {
		d := s.TodayClose(t).Sub(t)
		return fmt.Sprintf("%s: Market Open, closes in %s", s.Name, fmtDur(d))
	}
	next := s.NextOpen(t)
	local := next.In(s.Loc)
	return fmt.Sprintf("%s: Market Closed, opens %s %s (%s)",
		s.Name, local.Weekday().String()[:3], local.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
