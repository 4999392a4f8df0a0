package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// FileStore keeps one JSON file per book and class:
// <dir>/<class>/book_<id>.json. Writes are not synchronized; a torn or
// unreadable file reads as a miss.
type FileStore struct {
	dir  string
	ttls TTLs
	now  func() time.Time
}

func NewFileStore(dir string, ttls TTLs) (*FileStore, error) {
	if ttls == nil {
		ttls = DefaultTTLs()
	}
	for _, class := range Classes {
		if err := os.MkdirAll(filepath.Join(dir, string(class)), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	return &FileStore{dir: dir, ttls: ttls, now: time.Now}, nil
}

// Dir returns the cache root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(class Class, bookID int64) string {
	return filepath.Join(s.dir, string(class), fmt.Sprintf("book_%d.json", bookID))
}

func (s *FileStore) fresh(class Class, e Entry) bool {
	return s.now().Sub(e.Timestamp) < s.ttls.of(class)
}

func readEntry(path string) (Entry, error) {
	var e Entry
	b, err := os.ReadFile(path)
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, err
	}
	if e.Timestamp.IsZero() {
		return e, errors.New("cache entry has no timestamp")
	}
	return e, nil
}

func (s *FileStore) Get(ctx context.Context, class Class, bookID int64) (json.RawMessage, error) {
	path := s.path(class, bookID)
	e, err := readEntry(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("unreadable cache entry")
		}
		return nil, ErrMiss
	}
	if !s.fresh(class, e) {
		return nil, ErrMiss
	}
	return e.Data, nil
}

func (s *FileStore) Set(ctx context.Context, class Class, bookID int64, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode cache data: %w", err)
	}
	b, err := json.Marshal(Entry{Timestamp: s.now(), Data: raw})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := os.WriteFile(s.path(class, bookID), b, 0o644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, bookID int64) error {
	for _, class := range Classes {
		if err := os.Remove(s.path(class, bookID)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete cache entry: %w", err)
		}
	}
	return nil
}

func (s *FileStore) ClearExpired(ctx context.Context) (int, error) {
	removed := 0
	for _, class := range Classes {
		dir := filepath.Join(s.dir, string(class))
		entries, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to list cache directory: %w", err)
		}
		for _, de := range entries {
			if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
				continue
			}
			path := filepath.Join(dir, de.Name())
			e, err := readEntry(path)
			if err == nil && s.fresh(class, e) {
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("path", path).Msg("failed to remove cache entry")
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// Size returns the total size in bytes of all cache files.
func (s *FileStore) Size() (int64, error) {
	var total int64
	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total, err
}
