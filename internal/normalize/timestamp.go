package normalize

import (
	"regexp"
	"strings"
	"time"
)

type formatKind int

const (
	kindFull formatKind = iota
	kindDateOnly
	kindTimeOnly
)

type timestampFormat struct {
	layout string
	kind   formatKind
}

// timestampFormats is the ordered list of accepted layouts. First match wins,
// which keeps ambiguous inputs deterministic across runs.
var timestampFormats = []timestampFormat{
	{"2006-01-02 15:04:05", kindFull},
	{"2006-01-02T15:04:05", kindFull},
	{"2006-01-02T15:04:05.999999", kindFull},
	{"2006/01/02 15:04:05", kindFull},
	{"2006/01/02 15:04", kindFull},
	{"2006-01-02", kindDateOnly},
	{"2006/01/02", kindDateOnly},
	{"15:04:05", kindTimeOnly},
	{"15:04", kindTimeOnly},
}

var (
	datePartRe = regexp.MustCompile(`\d{4}[-/]\d{2}[-/]\d{2}`)
	timePartRe = regexp.MustCompile(`\d{2}:\d{2}:\d{2}|\d{2}:\d{2}`)
)

// parseTimestamp resolves a raw timestamp string against the ordered format
// list. Date-only values resolve to midnight; time-only values take the
// current processing date. The second return reports whether the result was
// inferred (empty or unparseable input falling back to now).
func parseTimestamp(raw string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return now, true
	}

	// Bracketed times like [09:18:37] appear in alert logs.
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, f := range timestampFormats {
		t, err := time.ParseInLocation(f.layout, s, now.Location())
		if err != nil {
			continue
		}
		switch f.kind {
		case kindDateOnly:
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), false
		case kindTimeOnly:
			return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), t.Second(), 0, now.Location()), false
		default:
			return t, false
		}
	}

	// Mixed or noisy strings: pull date and time fragments out separately.
	datePart := datePartRe.FindString(s)
	timePart := timePartRe.FindString(s)

	if datePart != "" {
		datePart = strings.ReplaceAll(datePart, "/", "-")
		d, err := time.ParseInLocation("2006-01-02", datePart, now.Location())
		if err == nil {
			if timePart != "" {
				if tp, terr := parseTimeOfDay(timePart, now.Location()); terr == nil {
					return time.Date(d.Year(), d.Month(), d.Day(), tp.Hour(), tp.Minute(), tp.Second(), 0, now.Location()), false
				}
			}
			return d, false
		}
	}
	if timePart != "" {
		if tp, err := parseTimeOfDay(timePart, now.Location()); err == nil {
			return time.Date(now.Year(), now.Month(), now.Day(), tp.Hour(), tp.Minute(), tp.Second(), 0, now.Location()), false
		}
	}

	return now, true
}

func parseTimeOfDay(s string, loc *time.Location) (time.Time, error) {
	if len(s) == 8 {
		return time.ParseInLocation("15:04:05", s, loc)
	}
	return time.ParseInLocation("15:04", s, loc)
}
