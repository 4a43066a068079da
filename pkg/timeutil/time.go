package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeFormat is returned when an input matches none of the
// accepted timestamp representations.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// Layouts accepted for timestamp strings, tried in order. Layouts without a
// zone designator are resolved in the location passed to ToEpochMillisIn;
// the Bronto convention for offset-less timestamps is UTC, never local time.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToEpochMillis converts a timestamp string to milliseconds since epoch.
// Accepted inputs: a numeric epoch (seconds or milliseconds), ISO 8601 /
// RFC 3339 with optional offset, "2006-01-02 15:04:05" or "2006-01-02".
// Offset-less strings are interpreted as UTC.
func ToEpochMillis(input string) (int64, error) {
	return ToEpochMillisIn(input, time.UTC)
}

// ToEpochMillisIn is ToEpochMillis with an explicit location for strings
// that carry no zone offset.
func ToEpochMillisIn(input string, loc *time.Location) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, fmt.Errorf("%w: empty input", ErrInvalidTimeFormat)
	}
	if loc == nil {
		loc = time.UTC
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: negative epoch %q", ErrInvalidTimeFormat, input)
		}
		// Values below the year-2286 second boundary are seconds.
		if n < 1e10 {
			return n * 1000, nil
		}
		return n, nil
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("%w: %q (expected epoch millis, RFC 3339, or \"2006-01-02 15:04:05\")", ErrInvalidTimeFormat, input)
}

// FromEpochMillis renders an epoch-milliseconds value as ISO 8601 in UTC.
// ToEpochMillis(FromEpochMillis(x)) == x for every valid x.
func FromEpochMillis(v int64) string {
	return time.UnixMilli(v).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// ParseTimeRange parses relative range strings like "30m", "2h", "7d".
func ParseTimeRange(timeRange string) (time.Duration, error) {
	duration, err := time.ParseDuration(timeRange)
	if err == nil {
		return duration, nil
	}

	if len(timeRange) > 1 && timeRange[len(timeRange)-1] == 'd' {
		days := timeRange[:len(timeRange)-1]
		if numDays, err := strconv.Atoi(days); err == nil {
			return time.Duration(numDays) * 24 * time.Hour, nil
		}
	}

	return 0, fmt.Errorf("invalid time range format: use formats like '2h', '30m', '2d', '7d'")
}

// ResolveTimestamps derives a [start, end] pair in epoch milliseconds from
// tool arguments. "timeRange" (e.g. "2h", "7d", ending now) takes precedence
// over explicit "start"/"end" values, which may be epoch numbers or any
// string ToEpochMillis accepts. defaultRange applies when nothing is given.
func ResolveTimestamps(args map[string]any, defaultRange string, loc *time.Location) (start, end int64, err error) {
	now := time.Now()

	if timeRange, ok := args["timeRange"].(string); ok && timeRange != "" {
		duration, err := ParseTimeRange(timeRange)
		if err != nil {
			return 0, 0, err
		}
		return now.Add(-duration).UnixMilli(), now.UnixMilli(), nil
	}

	startStr, _ := args["start"].(string)
	endStr, _ := args["end"].(string)
	if startStr == "" && endStr == "" {
		duration, err := ParseTimeRange(defaultRange)
		if err != nil {
			return 0, 0, err
		}
		return now.Add(-duration).UnixMilli(), now.UnixMilli(), nil
	}

	end = now.UnixMilli()
	if endStr != "" {
		if end, err = ToEpochMillisIn(endStr, loc); err != nil {
			return 0, 0, err
		}
	}
	if startStr != "" {
		if start, err = ToEpochMillisIn(startStr, loc); err != nil {
			return 0, 0, err
		}
	} else {
		duration, err := ParseTimeRange(defaultRange)
		if err != nil {
			return 0, 0, err
		}
		start = time.UnixMilli(end).Add(-duration).UnixMilli()
	}
	return start, end, nil
}

// CurrentTime returns the current UTC time in the "2006-01-02 15:04:05"
// format the Bronto tooling uses for human-readable timestamps.
func CurrentTime() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}
