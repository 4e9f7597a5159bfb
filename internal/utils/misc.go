package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	epochMillisFloor  = 1e12
	epochSecondsFloor = 1e9
)

// isoDateOnly is read as UTC midnight; every other zoneless form is local.
const isoDateOnly = "2006-01-02"

// ParseTimestamp normalizes a raw message timestamp into an instant.
// Numbers above 1e12 are epoch milliseconds, above 1e9 epoch seconds, and
// anything smaller is taken as milliseconds. Numeric strings follow the same
// rules (a numeric string outside both epoch ranges is rejected); other
// strings go through dateparse.
func ParseTimestamp(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v, !v.IsZero()
	case float64:
		return fromEpochNumber(v, true)
	case float32:
		return fromEpochNumber(float64(v), true)
	case int:
		return fromEpochNumber(float64(v), true)
	case int64:
		return fromEpochNumber(float64(v), true)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return parseDateString(v.String())
		}
		return fromEpochNumber(f, true)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpochNumber(f, false)
		}
		return parseDateString(s)
	default:
		return time.Time{}, false
	}
}

// fromEpochNumber applies the magnitude heuristic. Small values are only
// accepted as milliseconds when they came from a JSON number.
func fromEpochNumber(f float64, allowSmall bool) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	switch {
	case f > epochMillisFloor:
		return time.UnixMilli(int64(f)), true
	case f > epochSecondsFloor:
		return time.UnixMilli(int64(f * 1000)), true
	case allowSmall:
		return time.UnixMilli(int64(f)), true
	}
	return time.Time{}, false
}

func parseDateString(s string) (time.Time, bool) {
	if t, err := time.Parse(isoDateOnly, s); err == nil {
		return t, true
	}
	t, err := dateparse.ParseLocal(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TimeAgoShort renders t relative to now: "now", "12s ago", "5m ago", "3h ago",
// or a calendar date past 48 hours.
func TimeAgoShort(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := int64(now.Sub(t).Seconds())
	if diff < 5 {
		return "now"
	}
	if diff < 60 {
		return fmt.Sprintf("%ds ago", diff)
	}
	mins := diff / 60
	if mins < 60 {
		return fmt.Sprintf("%dm ago", mins)
	}
	hours := mins / 60
	if hours < 48 {
		return fmt.Sprintf("%dh ago", hours)
	}
	return t.Local().Format("Jan 2, 2006")
}

// FormatPrettyTime is the long form shown next to a message.
func FormatPrettyTime(t, now time.Time) string {
	t = t.Local()
	now = now.Local()
	year, month, day := t.Date()
	nowYear, nowMonth, nowDay := now.Date()

	timePart := t.Format("15:04")

	if year == nowYear && month == nowMonth && day == nowDay {
		return fmt.Sprintf("Today %s", timePart)
	}

	yesterday := now.AddDate(0, 0, -1)
	if year == yesterday.Year() && month == yesterday.Month() && day == yesterday.Day() {
		return fmt.Sprintf("Yesterday %s", timePart)
	}

	if year == nowYear {
		return fmt.Sprintf("%s %d %s", t.Format("Jan"), day, timePart)
	}

	return fmt.Sprintf("%d %s %02d %s", year, t.Format("Jan"), day, timePart)
}

// NormalizeRoomID trims a room name and rejects empty results.
func NormalizeRoomID(room string) (string, error) {
	r := strings.TrimSpace(room)
	if r == "" {
		return "", ErrInvalidRoom
	}
	return r, nil
}
