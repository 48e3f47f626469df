package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var shortDatePattern = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})$`)

var fullDateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
}

// parseDate resolves a date token. The second return reports whether
// the year had to be inferred (short MM/DD forms).
func parseDate(token string, hint *time.Time, now time.Time) (time.Time, bool, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, false, false
	}

	for _, layout := range fullDateLayouts {
		if d, err := time.Parse(layout, token); err == nil {
			return d, false, true
		}
	}

	// Ambiguous MM/DD/YYYY vs DD/MM/YYYY: a first component over 12 can
	// only be a day.
	if d, ok := parseDayFirst(token); ok {
		return d, false, true
	}

	if m := shortDatePattern.FindStringSubmatch(token); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, false, false
		}
		year := inferYear(time.Month(month), hint, now)
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if d.Day() != day {
			// time.Date normalized an impossible day (e.g. 2/30).
			return time.Time{}, false, false
		}
		return d, true, true
	}

	return time.Time{}, false, false
}

var dayFirstPattern = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})$`)

func parseDayFirst(token string) (time.Time, bool) {
	m := dayFirstPattern.FindStringSubmatch(token)
	if m == nil {
		return time.Time{}, false
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if first <= 12 || first > 31 || second < 1 || second > 12 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(second), first, 0, 0, 0, 0, time.UTC)
	if d.Day() != first {
		return time.Time{}, false
	}
	return d, true
}

// inferYear picks the year for a short date. With a statement hint, a
// month after the hint's month means the transaction belongs to the
// prior year (statements list the end of the previous year first, e.g.
// December rows on a January statement). Without a hint the current
// year is assumed and the batch correction pass cleans up afterwards.
func inferYear(month time.Month, hint *time.Time, now time.Time) int {
	if hint != nil {
		if month > hint.Month() {
			return hint.Year() - 1
		}
		return hint.Year()
	}
	return now.Year()
}
