package aggregation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// periodUnits is ordered from coarsest to finest; PeriodString picks the first unit that
// divides the period evenly.
var periodUnits = []struct {
	name string
	size time.Duration
}{
	{"d", day},
	{"h", time.Hour},
	{"min", time.Minute},
	{"s", time.Second},
	{"ms", time.Millisecond},
	{"us", time.Microsecond},
	{"ns", time.Nanosecond},
}

// PeriodString renders a period as "{n}_{unit}" using the coarsest whole unit,
// e.g. 10m -> "10_min", 1h -> "1_h". It is part of the output file name contract.
func PeriodString(d time.Duration) string {
	for _, u := range periodUnits {
		if d%u.size == 0 {
			return fmt.Sprintf("%d_%s", d/u.size, u.name)
		}
	}
	return fmt.Sprintf("%d_ns", d)
}

// ParsePeriod parses a period in unit-string form ("10_min"), Go duration syntax ("10m")
// or with a "d" suffix for days ("1d").
func ParsePeriod(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("period must not be empty")
	}

	if count, unit, ok := strings.Cut(s, "_"); ok {
		n, err := strconv.ParseInt(count, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid period %q: %w", s, err)
		}
		for _, u := range periodUnits {
			if u.name == unit {
				return positive(s, time.Duration(n)*u.size)
			}
		}
		return 0, fmt.Errorf("invalid period %q: unknown unit %q", s, unit)
	}

	// time.ParseDuration has no "d" unit.
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err != nil {
			return 0, fmt.Errorf("invalid period %q: %w", s, err)
		}
		return positive(s, time.Duration(days)*day)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid period %q: %w", s, err)
	}
	return positive(s, d)
}

func positive(s string, d time.Duration) (time.Duration, error) {
	if d <= 0 {
		return 0, fmt.Errorf("period must be positive, got %q", s)
	}
	return d, nil
}

// DividesDay reports whether exactly a whole number of periods fit into one day.
func DividesDay(d time.Duration) bool {
	return d > 0 && day%d == 0
}

// IsMidnight reports whether t is exactly 00:00:00 UTC.
func IsMidnight(t time.Time) bool {
	return t.Equal(t.UTC().Truncate(day))
}

// BucketFor returns the UTC start of the period-aligned bucket containing t,
// e.g. BucketFor(10:35:42, time.Minute) is 10:35:00.
func BucketFor(t time.Time, granularity time.Duration) time.Time {
	return t.UTC().Truncate(granularity)
}
