package cache

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/aevon-lab/resampler/internal/core/interval"
)

// MaxCachedIntervals is the largest interval count the one-byte header can hold.
const MaxCachedIntervals = 255

const intervalRecordSize = 16

// Stream is the byte store behind one cache file.
type Stream interface {
	io.ReadWriteSeeker
}

type truncater interface {
	Truncate(size int64) error
}

// EntryFile is one cache file: a fixed-size raw sample section covering
// [fileBegin, fileBegin+filePeriod) followed by the list of cached intervals.
//
// Layout:
//
//	[filePeriod/samplePeriod * elementSize bytes of samples]
//	[1 byte interval count N]
//	[N x (int64 begin ticks, int64 end ticks)], little-endian
//
// An EntryFile is not safe for concurrent use.
type EntryFile struct {
	fileBegin    time.Time
	filePeriod   time.Duration
	samplePeriod time.Duration
	elementSize  int
	stream       Stream

	dataSectionLength int64
	cached            []interval.Interval
}

// OpenEntryFile wraps stream as a cache file. An empty stream is initialised with a
// zeroed data section and an empty interval list.
func OpenEntryFile(fileBegin time.Time, filePeriod, samplePeriod time.Duration, elementSize int, stream Stream) (*EntryFile, error) {
	if samplePeriod <= 0 || filePeriod%samplePeriod != 0 {
		return nil, fmt.Errorf("%w: %s does not divide file period %s", ErrUnsupportedSamplePeriod, samplePeriod, filePeriod)
	}
	if elementSize <= 0 {
		return nil, fmt.Errorf("invalid element size %d", elementSize)
	}

	f := &EntryFile{
		fileBegin:         fileBegin.UTC(),
		filePeriod:        filePeriod,
		samplePeriod:      samplePeriod,
		elementSize:       elementSize,
		stream:            stream,
		dataSectionLength: int64(filePeriod/samplePeriod) * int64(elementSize),
	}

	size, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seek cache file end: %w", err)
	}
	if size == 0 {
		if err := f.initialize(); err != nil {
			return nil, err
		}
	}

	if err := f.readIntervals(); err != nil {
		return nil, err
	}
	return f, nil
}

// initialize zero-extends the stream to the data section plus a zero interval count.
func (f *EntryFile) initialize() error {
	total := f.dataSectionLength + 1
	if t, ok := f.stream.(truncater); ok {
		if err := t.Truncate(total); err != nil {
			return fmt.Errorf("extend cache file: %w", err)
		}
		return nil
	}

	if _, err := f.stream.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek cache file start: %w", err)
	}
	zeros := make([]byte, min(total, 1<<20))
	for remaining := total; remaining > 0; {
		n := min(remaining, int64(len(zeros)))
		if _, err := f.stream.Write(zeros[:n]); err != nil {
			return fmt.Errorf("extend cache file: %w", err)
		}
		remaining -= n
	}
	return nil
}

func (f *EntryFile) readIntervals() error {
	if _, err := f.stream.Seek(f.dataSectionLength, io.SeekStart); err != nil {
		return fmt.Errorf("seek interval section: %w", err)
	}

	var count [1]byte
	if _, err := io.ReadFull(f.stream, count[:]); err != nil {
		return fmt.Errorf("read interval count: %w", err)
	}

	records := make([]byte, int(count[0])*intervalRecordSize)
	if _, err := io.ReadFull(f.stream, records); err != nil {
		return fmt.Errorf("read interval list: %w", err)
	}

	f.cached = make([]interval.Interval, count[0])
	for i := range f.cached {
		rec := records[i*intervalRecordSize:]
		f.cached[i] = interval.Interval{
			Begin: interval.FromTicks(int64(binary.LittleEndian.Uint64(rec))),
			End:   interval.FromTicks(int64(binary.LittleEndian.Uint64(rec[8:]))),
		}
	}
	return nil
}

// CachedIntervals returns a copy of the cached interval list.
func (f *EntryFile) CachedIntervals() []interval.Interval {
	out := make([]interval.Interval, len(f.cached))
	copy(out, f.cached)
	return out
}

// Read copies every cached part of [begin, end) into dst, where dst[0] corresponds to
// begin, and returns the sub-intervals that are not cached. Uncached parts of dst are
// left untouched.
func (f *EntryFile) Read(begin, end time.Time, dst []byte) ([]interval.Interval, error) {
	req := interval.New(begin.UTC(), end.UTC())
	if err := f.checkRange(req); err != nil {
		return nil, err
	}
	if int64(len(dst)) < f.byteCount(req.Duration()) {
		return nil, fmt.Errorf("target buffer of %d bytes too small for %s", len(dst), req.Duration())
	}

	for _, c := range f.cached {
		overlap, ok := c.Overlap(req)
		if !ok {
			continue
		}

		fileOffset := f.byteCount(overlap.Begin.Sub(f.fileBegin))
		dstOffset := f.byteCount(overlap.Begin.Sub(req.Begin))
		length := f.byteCount(overlap.Duration())

		if _, err := f.stream.Seek(fileOffset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek cached data: %w", err)
		}
		if _, err := io.ReadFull(f.stream, dst[dstOffset:dstOffset+length]); err != nil {
			return nil, fmt.Errorf("read cached data: %w", err)
		}
	}

	return interval.Subtract(req, f.cached), nil
}

// Write stores src starting at begin and records the covered interval.
// The header is persisted before Write returns. An empty src is a no-op.
func (f *EntryFile) Write(begin time.Time, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	if len(src)%f.elementSize != 0 {
		return fmt.Errorf("source buffer of %d bytes is not a whole number of %d-byte samples", len(src), f.elementSize)
	}
	written := interval.New(begin.UTC(), begin.UTC().Add(time.Duration(len(src)/f.elementSize)*f.samplePeriod))
	if err := f.checkRange(written); err != nil {
		return err
	}

	merged := interval.Merge(append(f.CachedIntervals(), written))
	if len(merged) > MaxCachedIntervals {
		return fmt.Errorf("%w: %d", ErrTooManyCachedIntervals, len(merged))
	}

	if _, err := f.stream.Seek(f.byteCount(written.Begin.Sub(f.fileBegin)), io.SeekStart); err != nil {
		return fmt.Errorf("seek cache data: %w", err)
	}
	if _, err := f.stream.Write(src); err != nil {
		return fmt.Errorf("write cache data: %w", err)
	}

	if err := f.writeIntervals(merged); err != nil {
		return err
	}
	f.cached = merged
	return nil
}

func (f *EntryFile) writeIntervals(intervals []interval.Interval) error {
	header := make([]byte, 1+len(intervals)*intervalRecordSize)
	header[0] = byte(len(intervals))
	for i, iv := range intervals {
		rec := header[1+i*intervalRecordSize:]
		binary.LittleEndian.PutUint64(rec, uint64(interval.ToTicks(iv.Begin)))
		binary.LittleEndian.PutUint64(rec[8:], uint64(interval.ToTicks(iv.End)))
	}

	if _, err := f.stream.Seek(f.dataSectionLength, io.SeekStart); err != nil {
		return fmt.Errorf("seek interval section: %w", err)
	}
	if _, err := f.stream.Write(header); err != nil {
		return fmt.Errorf("write interval section: %w", err)
	}
	if t, ok := f.stream.(truncater); ok {
		if err := t.Truncate(f.dataSectionLength + int64(len(header))); err != nil {
			return fmt.Errorf("trim interval section: %w", err)
		}
	}
	return nil
}

// Close releases the underlying stream if it is closable.
func (f *EntryFile) Close() error {
	if c, ok := f.stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (f *EntryFile) checkRange(iv interval.Interval) error {
	fileEnd := f.fileBegin.Add(f.filePeriod)
	if iv.Begin.Before(f.fileBegin) || iv.End.After(fileEnd) || iv.End.Before(iv.Begin) {
		return fmt.Errorf("range [%s, %s) outside cache file [%s, %s)",
			iv.Begin.Format(time.RFC3339Nano), iv.End.Format(time.RFC3339Nano),
			f.fileBegin.Format(time.RFC3339Nano), fileEnd.Format(time.RFC3339Nano))
	}
	if iv.Begin.Sub(f.fileBegin)%f.samplePeriod != 0 || iv.Duration()%f.samplePeriod != 0 {
		return fmt.Errorf("range [%s, %s) is not aligned to sample period %s",
			iv.Begin.Format(time.RFC3339Nano), iv.End.Format(time.RFC3339Nano), f.samplePeriod)
	}
	return nil
}

// byteCount scales a duration to the byte length of the samples it covers.
func (f *EntryFile) byteCount(d time.Duration) int64 {
	return int64(d/f.samplePeriod) * int64(f.elementSize)
}
