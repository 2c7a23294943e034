// Package report holds the core reporting semantics: period windows,
// seen-set reconciliation and corpus rendering.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KST is the civil timezone every window and rendered timestamp uses.
var KST = time.FixedZone("KST", 9*60*60)

const (
	KindDaily  = "daily"
	KindWeekly = "weekly"
)

// Window is the closed reporting interval [Start, End]. Both boundary
// instants are in range; the end is pinned to 23:59:59 local.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, inclusive on both ends.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ParseTs parses a Slack message timestamp ("1618377073.000100") into a KST
// time, keeping the fractional part.
func ParseTs(ts string) (time.Time, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ts %q: %w", ts, err)
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).In(KST), nil
}

// PeriodFor derives the reporting window for a run on the given day.
// forceType overrides the weekday rule when set to "daily" or "weekly";
// otherwise Fridays produce a weekly report, every other day a daily one.
func PeriodFor(today time.Time, forceType string) (Window, string, string) {
	today = today.In(KST)

	kind := KindDaily
	switch forceType {
	case KindDaily, KindWeekly:
		kind = forceType
	default:
		if today.Weekday() == time.Friday {
			kind = KindWeekly
		}
	}

	if kind == KindDaily {
		y := today.AddDate(0, 0, -1)
		start := time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, KST)
		end := time.Date(y.Year(), y.Month(), y.Day(), 23, 59, 59, 0, KST)
		return Window{Start: start, End: end}, y.Format("2006-01-02"), kind
	}

	// Weekly: this week's Monday through yesterday (Thursday on the normal
	// Friday schedule).
	daysSinceMonday := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -daysSinceMonday)
	thursday := today.AddDate(0, 0, -1)
	start := time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, KST)
	end := time.Date(thursday.Year(), thursday.Month(), thursday.Day(), 23, 59, 59, 0, KST)
	label := fmt.Sprintf("%s~%s", monday.Format("01/02"), thursday.Format("01/02"))
	return Window{Start: start, End: end}, label, kind
}
