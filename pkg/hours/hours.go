// Package hours evaluates point-of-interest opening schedules. A schedule
// arrives either as structured periods (Google Places shape, Sunday-first
// weekdays), as human-readable per-weekday descriptions in English or
// Vietnamese, or as an opaque blob we cannot interpret. All weekday math
// inside this package uses Monday=0 through Sunday=6.
package hours

import (
	"encoding/json"
	"time"
)

// Kind discriminates the decoded schedule shape.
type Kind int

const (
	// KindPeriods means structured open/close windows were decoded.
	KindPeriods Kind = iota
	// KindDescriptions means only per-weekday text was available.
	KindDescriptions
	// KindOpaque means schedule data exists but none of it parsed.
	KindOpaque
)

// Period is one open window. Days are internal (Monday=0). CloseMinutes may
// be 1440 when the source omitted a closing hour.
type Period struct {
	OpenDay      int
	OpenMinutes  int
	CloseDay     int
	CloseMinutes int
	HasClose     bool
}

// Schedule is the decoded opening data for one POI. A nil *Schedule means the
// POI published no opening data at all.
type Schedule struct {
	Descriptions []string
	Periods      []Period
	Kind         Kind
}

type rawTimePoint struct {
	Day    *int   `json:"day"`
	Hour   *int   `json:"hour"`
	Minute int    `json:"minute"`
	Time   string `json:"time"`
}

type rawPeriod struct {
	Open  *rawTimePoint `json:"open"`
	Close *rawTimePoint `json:"close"`
}

type rawSchedule struct {
	Periods             []rawPeriod `json:"periods"`
	WeekdayDescriptions []string    `json:"weekdayDescriptions"`
	WeekdayText         []string    `json:"weekday_text"`
}

// externalToInternalDay converts the source weekday convention (Sunday=0)
// to the internal one (Monday=0).
func externalToInternalDay(d int) int {
	return (d + 6) % 7
}

// internalDay returns the internal weekday index for an instant.
func internalDay(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Decode interprets an opening-hours JSON object plus any top-level weekday
// description list. Returns nil when no opening data exists at all.
func Decode(raw json.RawMessage, weekdayDescriptions []string) *Schedule {
	var rs rawSchedule
	hasObject := len(raw) > 0 && string(raw) != "null"
	if hasObject {
		if err := json.Unmarshal(raw, &rs); err != nil {
			// Present but not even an object we recognize.
			return &Schedule{Kind: KindOpaque}
		}
	}

	periods := decodePeriods(rs.Periods)
	if len(periods) > 0 {
		return &Schedule{Kind: KindPeriods, Periods: periods}
	}

	descs := rs.WeekdayDescriptions
	if len(descs) == 0 {
		descs = rs.WeekdayText
	}
	if len(descs) == 0 {
		descs = weekdayDescriptions
	}
	if len(descs) > 0 {
		return &Schedule{Kind: KindDescriptions, Descriptions: descs}
	}

	if hasObject {
		return &Schedule{Kind: KindOpaque}
	}
	return nil
}

func decodePeriods(raw []rawPeriod) []Period {
	var out []Period
	for _, rp := range raw {
		open, ok := decodeTimePoint(rp.Open)
		if !ok {
			continue
		}
		p := Period{
			OpenDay:     externalToInternalDay(*rp.Open.Day),
			OpenMinutes: open,
		}
		if rp.Close != nil && rp.Close.Day != nil && *rp.Close.Day >= 0 && *rp.Close.Day <= 6 {
			p.HasClose = true
			p.CloseDay = externalToInternalDay(*rp.Close.Day)
			if m, ok := decodeTimePoint(rp.Close); ok {
				p.CloseMinutes = m
			} else {
				// Closing day without an hour: treat as 24:00.
				p.CloseMinutes = 24 * 60
			}
		}
		out = append(out, p)
	}
	return out
}

// decodeTimePoint extracts minutes-since-midnight from either the hour/minute
// pair or the legacy "HHMM" time string. The day must be well formed.
func decodeTimePoint(tp *rawTimePoint) (int, bool) {
	if tp == nil || tp.Day == nil || *tp.Day < 0 || *tp.Day > 6 {
		return 0, false
	}
	if tp.Hour != nil && *tp.Hour >= 0 && *tp.Hour <= 24 {
		return *tp.Hour*60 + tp.Minute, true
	}
	if len(tp.Time) == 4 {
		h := int(tp.Time[0]-'0')*10 + int(tp.Time[1]-'0')
		m := int(tp.Time[2]-'0')*10 + int(tp.Time[3]-'0')
		if h >= 0 && h <= 24 && m >= 0 && m < 60 &&
			tp.Time[0] >= '0' && tp.Time[0] <= '9' && tp.Time[1] >= '0' && tp.Time[1] <= '9' &&
			tp.Time[2] >= '0' && tp.Time[2] <= '9' && tp.Time[3] >= '0' && tp.Time[3] <= '9' {
			return h*60 + m, true
		}
	}
	return 0, false
}

// ReasonableHour reports whether an instant falls in the 06:00-22:00 window
// used when a POI's schedule cannot be interpreted.
func ReasonableHour(t time.Time) bool {
	h := t.Hour()
	return h >= 6 && h < 22
}

// IsOpen decides whether the POI is open at the given instant. In strict
// mode, POIs with no schedule data at all are only considered open during
// reasonable hours; otherwise they are assumed open.
func (s *Schedule) IsOpen(t time.Time, strict bool) bool {
	if s == nil {
		if strict {
			return ReasonableHour(t)
		}
		return true
	}

	switch s.Kind {
	case KindPeriods:
		return isOpenPeriods(s.Periods, t)
	case KindDescriptions:
		open, found := isOpenDescriptions(s.Descriptions, t)
		if found {
			return open
		}
		// Day not described: same guard as opaque data.
		return ReasonableHour(t)
	default:
		// Present but unparseable, strict or not.
		return ReasonableHour(t)
	}
}

func isOpenPeriods(periods []Period, t time.Time) bool {
	day := internalDay(t)
	minutes := t.Hour()*60 + t.Minute()
	for _, p := range periods {
		if periodMatches(p, day, minutes) {
			return true
		}
	}
	// Well-formed periods existed but none matched.
	return false
}

func periodMatches(p Period, day, minutes int) bool {
	closeDay := p.CloseDay
	closeMinutes := p.CloseMinutes
	if !p.HasClose {
		closeDay = p.OpenDay
		closeMinutes = 24 * 60
	}

	span := ((closeDay - p.OpenDay) % 7 + 7) % 7
	switch {
	case span == 0:
		// Same-day window.
		return day == p.OpenDay && minutes >= p.OpenMinutes && minutes < closeMinutes
	case span == 1:
		// Overnight window spanning midnight.
		if day == p.OpenDay && minutes >= p.OpenMinutes {
			return true
		}
		return day == closeDay && minutes < closeMinutes
	default:
		// Multi-day span: membership by day distance only.
		return ((day-p.OpenDay)%7+7)%7 < span
	}
}

// NextOpening returns the earliest instant at or after t at which the
// schedule opens. When nothing is parseable it returns 06:00 on the
// following day as a conservative default.
func (s *Schedule) NextOpening(t time.Time) time.Time {
	if s != nil {
		switch s.Kind {
		case KindPeriods:
			if next, ok := nextOpeningPeriods(s.Periods, t); ok {
				return next
			}
		case KindDescriptions:
			if next, ok := nextOpeningDescriptions(s.Descriptions, t); ok {
				return next
			}
		}
	}
	next := t.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 6, 0, 0, 0, next.Location())
}

func nextOpeningPeriods(periods []Period, t time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	day := internalDay(t)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())

	for _, p := range periods {
		ahead := ((p.OpenDay-day)%7 + 7) % 7
		candidate := midnight.AddDate(0, 0, ahead).Add(time.Duration(p.OpenMinutes) * time.Minute)
		if candidate.Before(t) {
			candidate = candidate.AddDate(0, 0, 7)
		}
		if !found || candidate.Before(best) {
			best = candidate
			found = true
		}
	}
	return best, found
}
