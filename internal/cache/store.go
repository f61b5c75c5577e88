package cache

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Key addresses one cache file: one representation of one resource for one file period.
type Key struct {
	CatalogID        string
	ResourceID       string
	RepresentationID string
	FileBegin        time.Time
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.CatalogID, k.ResourceID, k.RepresentationID, k.FileBegin.UTC().Format(time.RFC3339Nano))
}

// Store opens the streams behind cache files.
type Store interface {
	// Open returns the stream for key. When create is false and no file exists,
	// it returns ErrNotCached.
	Open(key Key, create bool) (Stream, error)

	// Remove deletes every cache file of catalogID whose file begin lies in [begin, end).
	Remove(catalogID string, begin, end time.Time) error
}

const fileBeginLayout = "15-04-05.0000000"

// DirStore keeps cache files below a root directory:
// {root}/{urlEncodedCatalogId}/{yyyy-MM}/{dd}/{resourceId}_{representationId}_{hh-mm-ss.fffffff}.cache
type DirStore struct {
	root string
}

// NewDirStore creates a directory-backed store.
func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (s *DirStore) dayDir(catalogID string, day time.Time) string {
	day = day.UTC()
	return filepath.Join(s.root, url.PathEscape(catalogID), day.Format("2006-01"), day.Format("02"))
}

// Path returns the file path for key.
func (s *DirStore) Path(key Key) string {
	name := fmt.Sprintf("%s_%s_%s.cache", key.ResourceID, key.RepresentationID, key.FileBegin.UTC().Format(fileBeginLayout))
	return filepath.Join(s.dayDir(key.CatalogID, key.FileBegin), name)
}

// Open implements Store.
func (s *DirStore) Open(key Key, create bool) (Stream, error) {
	path := s.Path(key)
	flags := os.O_RDWR
	if create {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		flags |= os.O_CREATE
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	return f, nil
}

// Remove implements Store.
func (s *DirStore) Remove(catalogID string, begin, end time.Time) error {
	begin, end = begin.UTC(), end.UTC()
	for d := begin.Truncate(day); d.Before(end); d = d.Add(day) {
		dir := s.dayDir(catalogID, d)
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading cache dir: %w", err)
		}

		for _, e := range entries {
			fileBegin, ok := parseFileBegin(d, e.Name())
			if !ok || fileBegin.Before(begin) || !fileBegin.Before(end) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing cache file: %w", err)
			}
		}
	}
	return nil
}

func parseFileBegin(day time.Time, name string) (time.Time, bool) {
	if !strings.HasSuffix(name, ".cache") {
		return time.Time{}, false
	}
	name = strings.TrimSuffix(name, ".cache")
	idx := strings.LastIndex(name, "_")
	if idx < 0 {
		return time.Time{}, false
	}
	clock, err := time.Parse(fileBeginLayout, name[idx+1:])
	if err != nil {
		return time.Time{}, false
	}
	offset := clock.Sub(time.Date(clock.Year(), clock.Month(), clock.Day(), 0, 0, 0, 0, time.UTC))
	return day.Add(offset), true
}
