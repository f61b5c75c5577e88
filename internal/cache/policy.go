package cache

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// filePeriodCandidates is ordered from coarsest to finest.
var filePeriodCandidates = []time.Duration{day, time.Hour, time.Second, time.Millisecond}

// FilePeriod returns the calendar-aligned period one cache file covers for the given
// sample period: the coarsest candidate the sample period divides evenly.
func FilePeriod(samplePeriod time.Duration) (time.Duration, error) {
	if samplePeriod <= 0 || day%samplePeriod != 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedSamplePeriod, samplePeriod)
	}
	for _, candidate := range filePeriodCandidates {
		if candidate%samplePeriod == 0 {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedSamplePeriod, samplePeriod)
}
