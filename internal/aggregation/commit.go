package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aevon-lab/resampler/internal/core/catalog"
	"github.com/google/uuid"
)

var (
	// ErrBackendUnavailable marks a source that is unregistered or failed its availability check.
	ErrBackendUnavailable = errors.New("backend source unavailable")

	// ErrCommitFailed is returned when a result file could not be moved into place.
	ErrCommitFailed = errors.New("commit failed")
)

const (
	defaultCommitRetries    = 10
	defaultCommitRetryDelay = 2 * time.Second
)

// Committer writes result buffers to a temporary file and renames it into place,
// retrying the rename while the target is held by a reader.
type Committer struct {
	Retries int
	Delay   time.Duration

	rename func(oldPath, newPath string) error
}

// NewCommitter creates a committer; non-positive values fall back to 10 attempts 2s apart.
func NewCommitter(retries int, delay time.Duration) *Committer {
	if retries <= 0 {
		retries = defaultCommitRetries
	}
	if delay <= 0 {
		delay = defaultCommitRetryDelay
	}
	return &Committer{Retries: retries, Delay: delay, rename: os.Rename}
}

// Commit persists values as little-endian float64 at path.
// No temporary file survives any exit path. When every rename attempt fails the
// target is removed as well; on cancellation an existing target is left untouched.
func (c *Committer) Commit(ctx context.Context, path string, values []float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create directory for %s: %v", ErrCommitFailed, path, err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+uuid.NewString()+".tmp")
	if err := writeFloat64File(tmp, values); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: write %s: %v", ErrCommitFailed, tmp, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			removeTemp(tmp)
			return err
		}

		lastErr = c.rename(tmp, path)
		if lastErr == nil {
			return nil
		}

		if attempt == c.Retries {
			break
		}
		slog.Warn("[Committer] Rename failed, retrying",
			"path", path,
			"attempt", attempt,
			"error", lastErr,
		)

		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			removeTemp(tmp)
			return ctx.Err()
		}
	}

	c.cleanup(tmp, path)
	return fmt.Errorf("%w: rename %s after %d attempts: %v", ErrCommitFailed, path, c.Retries, lastErr)
}

func (c *Committer) cleanup(tmp, path string) {
	removeTemp(tmp)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("[Committer] Failed to remove partial target", "path", path, "error", err)
	}
}

func removeTemp(tmp string) {
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("[Committer] Failed to remove temporary file", "path", tmp, "error", err)
	}
}

func writeFloat64File(path string, values []float64) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	buf := make([]byte, len(values)*8)
	catalog.EncodeFloat64(values, buf)

	if _, err := f.Write(buf); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
