package service

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// candidate is the mutable working state of a row while it is being repaired.
type candidate struct {
	session   domain.CleanedSession
	hasEnd    bool
	hasActive bool
}

// maxActiveSeconds is the longest duration time.Duration can hold, in seconds.
const maxActiveSeconds = float64(math.MaxInt64 / int64(time.Second))

// CleanSessions validates, repairs and orders raw session rows. Rows that cannot
// be repaired are dropped and counted in the report; they never cause an error.
// The result is stably sorted by user id, then start time.
func CleanSessions(inputs []SessionInput) ([]domain.CleanedSession, CleanReport) {
	return CleanSessionsWithLogger(inputs, nil)
}

// CleanSessionsWithLogger is CleanSessions that also logs every dropped or
// repaired row at debug level. A nil logger logs nothing.
func CleanSessionsWithLogger(inputs []SessionInput, logger *slog.Logger) ([]domain.CleanedSession, CleanReport) {
	report := CleanReport{
		Total:   len(inputs),
		Dropped: make(map[DropReason]int, len(DropReasons)),
	}

	sessions := make([]domain.CleanedSession, 0, len(inputs))
	for _, in := range inputs {
		session, reason, repaired, derived := cleanSession(in)
		if reason != DropNone {
			report.Dropped[reason]++
			if logger != nil {
				logger.Debug("row dropped", "line", in.Line, "reason", string(reason))
			}
			continue
		}
		if repaired {
			report.RepairedEnd++
			if logger != nil {
				logger.Debug("end time repaired", "line", in.Line, "user_id", session.UserID)
			}
		}
		if derived {
			report.DerivedTime++
		}
		sessions = append(sessions, session)
	}

	slices.SortStableFunc(sessions, func(a, b domain.CleanedSession) int {
		if c := cmp.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}
		return a.Start.Compare(b.Start)
	})

	report.Kept = len(sessions)
	return sessions, report
}

// cleanSession turns one row into a session or reports why it was dropped.
// repaired is set when the end time was computed from active seconds; derived
// is set when active seconds were computed from the end time.
func cleanSession(in SessionInput) (session domain.CleanedSession, reason DropReason, repaired, derived bool) {
	userID, ok := parseUserID(in.UserID)
	if !ok {
		return domain.CleanedSession{}, DropInvalidUser, false, false
	}
	host, ok := NormalizeDomain(in.Domain)
	if !ok {
		return domain.CleanedSession{}, DropInvalidDomain, false, false
	}
	start, ok := parseTimestamp(in.StartTime)
	if !ok {
		return domain.CleanedSession{}, DropMissingStart, false, false
	}

	c := candidate{
		session: domain.CleanedSession{
			UserID:   userID,
			Domain:   host,
			Start:    start,
			RowCount: parseRowCount(in.RowCount),
		},
	}
	c.session.End, c.hasEnd = parseTimestamp(in.EndTime)
	c.session.ActiveSeconds, c.hasActive = parseActiveSeconds(in.ActiveSeconds)

	// Missing end with a usable duration.
	if !c.hasEnd && c.hasActive {
		c.session.End = addSeconds(c.session.Start, c.session.ActiveSeconds)
		c.hasEnd = true
		repaired = true
	}
	// End before start with a usable duration.
	if c.hasEnd && c.session.End.Before(c.session.Start) && c.hasActive {
		c.session.End = addSeconds(c.session.Start, c.session.ActiveSeconds)
		repaired = true
	}
	// Duration derived from the (possibly repaired) end.
	if !c.hasActive && c.hasEnd {
		c.session.ActiveSeconds = math.Max(0, c.session.Duration().Seconds())
		c.hasActive = true
		derived = true
	}

	if !c.hasEnd {
		return domain.CleanedSession{}, DropMissingEnd, false, false
	}
	// An inverted end with no duration to repair it collapses to a zero-length visit.
	if c.session.End.Before(c.session.Start) {
		c.session.End = c.session.Start
	}
	return c.session, DropNone, repaired, derived
}

func parseUserID(raw string) (int64, bool) {
	value := sanitizeString(raw)
	if value == "" {
		return 0, false
	}
	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		return id, id >= 0
	}
	// Spreadsheet exports often render integer ids as "12.0".
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < 0 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseActiveSeconds(raw string) (float64, bool) {
	value := sanitizeString(raw)
	if value == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 || secs > maxActiveSeconds {
		return 0, false
	}
	return secs, true
}

func parseRowCount(raw string) int {
	value := sanitizeString(raw)
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	return 0
}

func parseTimestamp(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func addSeconds(t time.Time, secs float64) time.Time {
	return t.Add(time.Duration(math.Round(secs * float64(time.Second))))
}
