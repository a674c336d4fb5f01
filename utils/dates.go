package utils

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

// Canonical textual date form used as the wire/storage format for all
// visit and contract dates: DD-Mon-YYYY, e.g. "01-Jul-2025".

// Fixed 3-letter month abbreviation table. Parsing matches these
// case-insensitively; formatting always emits them exactly as listed.
var monthAbbrevs = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

var monthByAbbrev = map[string]time.Month{}

func init() {
	for i, abbr := range monthAbbrevs {
		monthByAbbrev[strings.ToLower(abbr)] = time.Month(i + 1)
	}
}

// Sentinel strings produced upstream by broken date handling. They are
// rejected immediately, without attempting generic parsing.
var dateSentinels = map[string]bool{
	"Invalid Date": true,
	"NaN":          true,
}

// Generic layouts tried when the text is not one of the two dashed
// shapes. These cover full timestamp text with an explicit offset or
// zone marker, plus the plain ISO date.
var genericDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"2006-01-02",
}

// DateParseError is the typed failure returned when date text is not
// recognized. Callers decide whether to skip the record or substitute a
// fallback; ParseDate itself never guesses.
type DateParseError struct {
	Input string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("unrecognized date text %q", e.Input)
}

// ParseDate converts date text into a calendar date. Supported shapes:
// DD-Mon-YYYY (month name, case-insensitive), DD-MM-YYYY (numeric month
// 1-12), and full timestamp text carrying an explicit offset/zone. The
// result is normalized to midnight UTC so calendar arithmetic is not
// affected by the source zone.
func ParseDate(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" || dateSentinels[s] {
		return time.Time{}, &DateParseError{Input: text}
	}

	if parts := strings.Split(s, "-"); len(parts) == 3 && len(parts[2]) == 4 {
		day, dayErr := strconv.Atoi(parts[0])
		year, yearErr := strconv.Atoi(parts[2])
		if dayErr == nil && yearErr == nil {
			if month, ok := monthByAbbrev[strings.ToLower(parts[1])]; ok {
				return makeDate(year, month, day, text)
			}
			if n, err := strconv.Atoi(parts[1]); err == nil && n >= 1 && n <= 12 {
				return makeDate(year, time.Month(n), day, text)
			}
		}
	}

	// Timestamp text from browsers carries a trailing zone name in
	// parentheses that no layout matches; strip it before trying.
	if i := strings.Index(s, " ("); i > 0 {
		s = s[:i]
	}
	for _, layout := range genericDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, &DateParseError{Input: text}
}

// makeDate builds the date and rejects rollovers such as 31-Feb.
func makeDate(year int, month time.Month, day int, input string) (time.Time, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, &DateParseError{Input: input}
	}
	return t, nil
}

// FormatDate renders a date in the canonical DD-Mon-YYYY form, day
// zero-padded.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%02d-%s-%04d", t.Day(), monthAbbrevs[int(t.Month())-1], t.Year())
}

// The business week starts on Saturday, regardless of the platform's
// first-day-of-week. Week 1 of a year is the week containing Jan 1; the
// same scheme must be used everywhere dates are bucketed by week.
const weekStartDay = time.Saturday

// WeekStartOf returns midnight UTC of the Saturday on or before t.
func WeekStartOf(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	back := (int(t.Weekday()) - int(weekStartDay) + 7) % 7
	return t.AddDate(0, 0, -back)
}

// WeekNumber returns the 1-based week index of t within its own year.
func WeekNumber(t time.Time) int {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	firstStart := WeekStartOf(jan1)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Sub(firstStart).Hours()/(24*7)) + 1
}

// WeekRange returns the first and last day (inclusive) of the given
// week of the given year, under the same scheme as WeekNumber.
func WeekRange(week, year int) (start, end time.Time) {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	start = WeekStartOf(jan1).AddDate(0, 0, (week-1)*7)
	end = start.AddDate(0, 0, 6)
	return start, end
}

// MonthsBetween approximates the whole months spanned by [start, end]
// using an average month length, rounding up. Used when a contract has
// start/end dates but no explicit period.
func MonthsBetween(start, end time.Time) int {
	const avgDaysPerMonth = 30.44
	days := end.Sub(start).Hours() / 24
	if days <= 0 {
		return 0
	}
	months := int(days / avgDaysPerMonth)
	if float64(months)*avgDaysPerMonth < days {
		months++
	}
	return months
}

// DateWarnings aggregates parse failures within one scan so a batch of
// bad records produces a single warning line instead of one per record.
type DateWarnings struct {
	count  int
	sample string
}

// Add records one skipped value.
func (w *DateWarnings) Add(text string) {
	if w.count == 0 {
		w.sample = text
	}
	w.count++
}

// Count returns how many values were skipped in this scan.
func (w *DateWarnings) Count() int { return w.count }

// Flush emits the aggregated warning, if any, and resets the counter.
func (w *DateWarnings) Flush(context string) {
	if w.count == 0 {
		return
	}
	log.Printf("⚠️  %s: skipped %d record(s) with unparsable dates (e.g. %q)", context, w.count, w.sample)
	w.count = 0
	w.sample = ""
}
