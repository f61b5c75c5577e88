package aggregation

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitter_WritesLittleEndianFloats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "out.f64")

	values := []float64{1.5, math.NaN(), -2}
	require.NoError(t, NewCommitter(1, time.Millisecond).Commit(context.Background(), path, values))

	got := readOutput(t, path)
	require.Len(t, got, 3)
	assert.Equal(t, 1.5, got[0])
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, -2.0, got[2])
	assert.Empty(t, tempFiles(t, dir))
}

func TestCommitter_RetriesTransientRenameFailures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.f64")

	c := NewCommitter(5, time.Millisecond)
	attempts := 0
	c.rename = func(oldPath, newPath string) error {
		attempts++
		if attempts < 3 {
			return errors.New("file is locked")
		}
		return os.Rename(oldPath, newPath)
	}

	require.NoError(t, c.Commit(context.Background(), path, []float64{42}))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []float64{42}, readOutput(t, path))
}

func TestCommitter_ExhaustedRetriesCleanUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.f64")
	require.NoError(t, os.WriteFile(path, []byte("partial"), 0o644))

	c := NewCommitter(3, time.Millisecond)
	attempts := 0
	c.rename = func(string, string) error {
		attempts++
		return errors.New("file is locked")
	}

	err := c.Commit(context.Background(), path, []float64{1, 2})
	require.ErrorIs(t, err, ErrCommitFailed)
	assert.Equal(t, 3, attempts)
	assert.Empty(t, listFiles(t, dir), "temp file and partial target are removed")
}

func TestCommitter_CancelledKeepsExistingTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.f64")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	c := NewCommitter(10, time.Hour)
	c.rename = func(string, string) error {
		cancel()
		return errors.New("file is locked")
	}

	err := c.Commit(ctx, path, []float64{1})
	require.ErrorIs(t, err, context.Canceled)

	content, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, []byte("previous"), content)
	assert.Empty(t, tempFiles(t, dir))
}

func TestNewCommitter_Defaults(t *testing.T) {
	c := NewCommitter(0, 0)
	assert.Equal(t, 10, c.Retries)
	assert.Equal(t, 2*time.Second, c.Delay)
}
