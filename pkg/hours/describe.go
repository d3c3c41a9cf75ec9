package hours

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// interval is one open window within a single day, in minutes since midnight.
// End <= Start marks an overnight window.
type interval struct {
	Start int
	End   int
}

// foldTransformer strips combining diacritics so that Vietnamese day names
// match regardless of accent encoding.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName lowercases a day token and removes Vietnamese diacritics.
func foldName(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	folded = strings.ReplaceAll(folded, "đ", "d") // đ
	folded = strings.ReplaceAll(folded, "Đ", "D") // Đ
	return strings.ToLower(strings.TrimSpace(folded))
}

// dayNames maps folded English and Vietnamese weekday names to the internal
// Monday=0 index.
var dayNames = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
	"thu hai": 0, "thu ba": 1, "thu tu": 2, "thu nam": 3,
	"thu sau": 4, "thu bay": 5, "chu nhat": 6,
	"thu 2": 0, "thu 3": 1, "thu 4": 2, "thu 5": 3,
	"thu 6": 4, "thu 7": 5, "cn": 6,
}

// parseDayName resolves a description's leading day token.
func parseDayName(token string) (int, bool) {
	d, ok := dayNames[foldName(token)]
	return d, ok
}

// splitDescription separates "Monday: 8:00 AM – 5:00 PM" into the day index
// and the remainder after the first colon.
func splitDescription(line string) (day int, rest string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return 0, "", false
	}
	day, ok = parseDayName(line[:idx])
	if !ok {
		return 0, "", false
	}
	return day, strings.TrimSpace(line[idx+1:]), true
}

// normalizeDashes rewrites the various dash glyphs Google emits to a plain
// hyphen, and collapses narrow no-break spaces.
func normalizeDashes(s string) string {
	r := strings.NewReplacer(
		"–", "-", // en dash
		"—", "-", // em dash
		"−", "-", // minus sign
		" ", " ", // narrow no-break space
		" ", " ", // thin space
		" ", " ", // no-break space
	)
	return r.Replace(s)
}

// timeLayouts are accepted clock formats, tried in order.
var timeLayouts = []string{"3:04 PM", "3 PM", "15:04", "15.04"}

// parseClock converts a clock token to minutes since midnight.
func parseClock(token string) (int, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false
	}
	upper := strings.ToUpper(token)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, upper); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

// parseIntervals splits the remainder of a description line into open
// windows. Unparseable segments are skipped.
func parseIntervals(rest string) []interval {
	rest = normalizeDashes(rest)
	var out []interval
	for _, seg := range strings.Split(rest, ",") {
		parts := strings.SplitN(seg, "-", 2)
		if len(parts) != 2 {
			continue
		}
		start, ok := parseClock(parts[0])
		if !ok {
			continue
		}
		end, ok := parseClock(parts[1])
		if !ok {
			continue
		}
		out = append(out, interval{Start: start, End: end})
	}
	return out
}

// isOpenDescriptions evaluates per-weekday text. found is false when no
// description line matches the arrival weekday.
func isOpenDescriptions(descriptions []string, t time.Time) (open, found bool) {
	day := internalDay(t)
	minutes := t.Hour()*60 + t.Minute()

	for _, line := range descriptions {
		d, rest, ok := splitDescription(line)
		if !ok || d != day {
			continue
		}
		found = true

		lower := strings.ToLower(rest)
		switch {
		case rest == "" || strings.Contains(lower, "closed") || strings.Contains(foldName(rest), "dong cua"):
			return false, true
		case strings.Contains(lower, "open 24 hours") || strings.Contains(lower, "24 hours"):
			return true, true
		}

		for _, iv := range parseIntervals(rest) {
			if iv.End <= iv.Start {
				// Overnight window.
				if minutes >= iv.Start || minutes < iv.End {
					return true, true
				}
			} else if minutes >= iv.Start && minutes < iv.End {
				return true, true
			}
		}
		// Day described, no interval matched.
		return false, true
	}
	return false, false
}

// nextOpeningDescriptions scans the coming week for the first opening token
// at or after t.
func nextOpeningDescriptions(descriptions []string, t time.Time) (time.Time, bool) {
	openings := make(map[int]int) // internal day -> first opening minutes
	allDay := make(map[int]bool)
	for _, line := range descriptions {
		d, rest, ok := splitDescription(line)
		if !ok {
			continue
		}
		lower := strings.ToLower(rest)
		if strings.Contains(lower, "open 24 hours") || strings.Contains(lower, "24 hours") {
			allDay[d] = true
			continue
		}
		ivs := parseIntervals(rest)
		if len(ivs) == 0 {
			continue
		}
		if cur, ok := openings[d]; !ok || ivs[0].Start < cur {
			openings[d] = ivs[0].Start
		}
	}
	if len(openings) == 0 && len(allDay) == 0 {
		return time.Time{}, false
	}

	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for ahead := 0; ahead <= 7; ahead++ {
		day := (internalDay(t) + ahead) % 7
		var minutes int
		switch {
		case allDay[day]:
			minutes = 0
		default:
			m, ok := openings[day]
			if !ok {
				continue
			}
			minutes = m
		}
		candidate := midnight.AddDate(0, 0, ahead).Add(time.Duration(minutes) * time.Minute)
		if !candidate.Before(t) {
			return candidate, true
		}
	}
	return time.Time{}, false
}
