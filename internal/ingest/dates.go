// Package ingest provides the feedback ingestion pipeline: field
// normalization, heuristic scoring, and persistence of raw source rows.
package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// serialEpoch is the spreadsheet day-count epoch (1899-12-30).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var (
	slashDateRe   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})(?:\s+(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?)?$`)
	textualDateRe = regexp.MustCompile(`^(\d{1,2})-([A-Za-z]{3})-(\d{4})$`)
	serialRe      = regexp.MustCompile(`^\d{1,5}$`)
)

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseTimestamp parses the date formats seen across feedback exports, in
// priority order: ISO-8601, numeric slash dates, DD-Mon-YYYY, and bare
// spreadsheet serial day counts. Unparseable or empty input returns nil;
// callers default nil to the ingestion time. This is a defined path, not an
// error.
func ParseTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}

	if t := parseSlashDate(raw); t != nil {
		return t
	}

	if m := textualDateRe.FindStringSubmatch(raw); m != nil {
		month, ok := monthAbbrev[strings.ToLower(m[2])]
		if ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			return &t
		}
	}

	// Spreadsheet exports sometimes hand over raw serial day counts.
	if serialRe.MatchString(raw) {
		days, err := strconv.Atoi(raw)
		if err == nil {
			t := serialEpoch.Add(time.Duration(days) * 24 * time.Hour)
			return &t
		}
	}

	// Last resort: let dateparse take a swing at anything unusual.
	if t, err := dateparse.ParseAny(raw); err == nil {
		return &t
	}

	return nil
}

// parseSlashDate handles D/M/YYYY and M/D/YYYY numeric dates with optional
// time. Disambiguation: first number > 12 means day-first; second number > 12
// means month-first; ambiguous input defaults to day-first.
func parseSlashDate(raw string) *time.Time {
	m := slashDateRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}

	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	day, month := first, second
	if first > 12 {
		day, month = first, second
	} else if second > 12 {
		day, month = second, first
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}

	var hour, minute, sec int
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
		if m[6] != "" {
			sec, _ = strconv.Atoi(m[6])
		}
	}

	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	return &t
}
