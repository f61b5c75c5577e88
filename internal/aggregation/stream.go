package aggregation

import (
	"context"
	"fmt"
	"time"

	"github.com/aevon-lab/resampler/internal/core/catalog"
	"github.com/aevon-lab/resampler/internal/source"
	"golang.org/x/sync/errgroup"
)

// StreamRaw starts a reader on g that reads [begin, end) of item from src in chunks of
// chunkSamples samples. Each chunk is delivered as one message on data followed by one
// on status, so consumers receive both in lockstep. Both channels hold up to capacity
// chunks and are closed once the reader finishes or fails.
func StreamRaw(
	ctx context.Context,
	g *errgroup.Group,
	src source.Source,
	item catalog.Item,
	begin, end time.Time,
	chunkSamples int,
	capacity int,
) (<-chan []byte, <-chan []byte) {
	data := make(chan []byte, capacity)
	status := make(chan []byte, capacity)

	elementSize := item.Representation.ElementSize()
	samplePeriod := item.Representation.SamplePeriod
	step := time.Duration(chunkSamples) * samplePeriod

	g.Go(func() error {
		defer close(data)
		defer close(status)

		for chunkBegin := begin; chunkBegin.Before(end); chunkBegin = chunkBegin.Add(step) {
			chunkEnd := chunkBegin.Add(step)
			if chunkEnd.After(end) {
				chunkEnd = end
			}
			samples := int(chunkEnd.Sub(chunkBegin) / samplePeriod)

			rawData := make([]byte, samples*elementSize)
			rawStatus := make([]byte, samples)
			if err := src.ReadRaw(ctx, item, chunkBegin, chunkEnd, rawData, rawStatus); err != nil {
				return fmt.Errorf("read %s [%s, %s): %w", item.Path(), chunkBegin.Format(time.RFC3339), chunkEnd.Format(time.RFC3339), err)
			}

			if err := send(ctx, data, rawData); err != nil {
				return err
			}
			if err := send(ctx, status, rawStatus); err != nil {
				return err
			}
		}
		return nil
	})

	return data, status
}

func send(ctx context.Context, ch chan<- []byte, msg []byte) error {
	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func receive(ctx context.Context, ch <-chan []byte) ([]byte, bool, error) {
	select {
	case msg, ok := <-ch:
		return msg, ok, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
