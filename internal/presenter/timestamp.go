package presenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/chucky-1/moods/internal/model"
)

const (
	day  = 24 * time.Hour
	week = 7 * day

	dateLayout = "Jan 2, 2006"
)

// FormatTimestamp renders ts relative to now. A zero ts counts as just created
func FormatTimestamp(ts, now time.Time) string {
	if ts.IsZero() {
		return "Just now"
	}

	diff := now.Sub(ts)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int64(diff/time.Minute))
	case diff < day:
		return fmt.Sprintf("%dh ago", int64(diff/time.Hour))
	case diff < week:
		return fmt.Sprintf("%dd ago", int64(diff/day))
	}
	return ts.Format(dateLayout)
}

// FormatEntry renders one entry as a single line
func FormatEntry(e model.Entry, now time.Time) string {
	d := Describe(e.Mood)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s · %s", d.Emoji, d.Label, FormatTimestamp(e.CreatedAt, now))
	if e.Note != "" {
		fmt.Fprintf(&b, " · %s", e.Note)
	}
	fmt.Fprintf(&b, " (#%d)", e.ID)
	return b.String()
}

// FormatFeed renders at most limit entries, newest first.
// limit <= 0 renders all of them
func FormatFeed(entries []model.Entry, limit int, now time.Time) string {
	if len(entries) == 0 {
		return "No moods recorded yet"
	}
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}

	lines := make([]string, 0, limit+1)
	for _, e := range entries[:limit] {
		lines = append(lines, FormatEntry(e, now))
	}
	if rest := len(entries) - limit; rest > 0 {
		lines = append(lines, fmt.Sprintf("…and %d more", rest))
	}
	return strings.Join(lines, "\n")
}
