package cache

import "errors"

var (
	// ErrUnsupportedSamplePeriod is returned for sample periods that do not divide one day.
	// Such representations are never cached.
	ErrUnsupportedSamplePeriod = errors.New("sample period is not cacheable")

	// ErrTooManyCachedIntervals is returned when a cache file would need more than
	// MaxCachedIntervals interval records. The file is treated as a miss from then on.
	ErrTooManyCachedIntervals = errors.New("too many cached intervals")

	// ErrNotCached is returned by a Store when no cache file exists for a key.
	ErrNotCached = errors.New("cache file does not exist")
)
