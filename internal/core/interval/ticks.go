package interval

import "time"

// Ticks are 100ns units counted from 0001-01-01T00:00:00Z, the timestamp unit of cache headers.
const (
	TicksPerSecond = int64(time.Second / 100)

	// unixEpochTicks is the tick count of 1970-01-01T00:00:00Z.
	unixEpochTicks = int64(621355968000000000)
)

// ToTicks converts t to UTC ticks.
func ToTicks(t time.Time) int64 {
	return unixEpochTicks + t.UTC().UnixNano()/100
}

// FromTicks converts UTC ticks back to a time.Time in UTC.
func FromTicks(ticks int64) time.Time {
	return time.Unix(0, (ticks-unixEpochTicks)*100).UTC()
}
