package interval

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Begin, End).
type Interval struct {
	Begin time.Time
	End   time.Time
}

// New returns the interval [begin, end).
func New(begin, end time.Time) Interval {
	return Interval{Begin: begin, End: end}
}

// Duration returns End - Begin.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Begin)
}

// Empty reports whether the interval covers no time.
func (i Interval) Empty() bool {
	return !i.End.After(i.Begin)
}

// Overlap returns the intersection of i and other and whether it is non-empty.
func (i Interval) Overlap(other Interval) (Interval, bool) {
	begin := maxTime(i.Begin, other.Begin)
	end := minTime(i.End, other.End)
	if !end.After(begin) {
		return Interval{}, false
	}
	return Interval{Begin: begin, End: end}, true
}

// Merge sorts intervals and collapses overlapping or adjacent ones. Empty intervals
// are dropped. The input slice is not modified. The result is sorted, non-overlapping
// and minimal.
func Merge(intervals []Interval) []Interval {
	sorted := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.End.After(iv.Begin) {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return nil
	}

	// Ties on Begin put the longer interval first so the pass below is deterministic.
	sort.Slice(sorted, func(a, b int) bool {
		if !sorted[a].Begin.Equal(sorted[b].Begin) {
			return sorted[a].Begin.Before(sorted[b].Begin)
		}
		return sorted[a].End.After(sorted[b].End)
	})

	merged := make([]Interval, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if !current.End.Before(next.Begin) {
			current.End = maxTime(current.End, next.End)
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

// Subtract returns the parts of req not covered by covered.
// covered must be sorted and non-overlapping (the output of Merge).
func Subtract(req Interval, covered []Interval) []Interval {
	var gaps []Interval
	cursor := req.Begin

	for _, c := range covered {
		if !c.End.After(cursor) {
			continue
		}
		if !c.Begin.Before(req.End) {
			break
		}
		if c.Begin.After(cursor) {
			gaps = append(gaps, Interval{Begin: cursor, End: c.Begin})
		}
		cursor = minTime(c.End, req.End)
		if !cursor.Before(req.End) {
			return gaps
		}
	}

	if cursor.Before(req.End) {
		gaps = append(gaps, Interval{Begin: cursor, End: req.End})
	}
	return gaps
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
