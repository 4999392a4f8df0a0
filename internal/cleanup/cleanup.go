// Package cleanup removes uploads no record refers to and expired cache
// entries.
package cleanup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raine/bookrelist/internal/cache"
	"github.com/raine/bookrelist/internal/images"
	"github.com/rs/zerolog/log"
)

// DefaultOrphanAge is how long an unreferenced upload is kept.
const DefaultOrphanAge = 7 * 24 * time.Hour

// KeySource lists the image keys still referenced by records.
type KeySource interface {
	ImageKeys(ctx context.Context) (map[string]bool, error)
}

// Sizer reports the disk usage of a cache backend.
type Sizer interface {
	Size() (int64, error)
}

type Cleaner struct {
	Keys      KeySource
	Images    images.Store
	Cache     cache.Store
	OrphanAge time.Duration
	Now       func() time.Time
}

func (c *Cleaner) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Cleaner) orphanAge() time.Duration {
	if c.OrphanAge <= 0 {
		return DefaultOrphanAge
	}
	return c.OrphanAge
}

// Report is the outcome of a Run.
type Report struct {
	ImagesRemoved int       `json:"images_cleaned"`
	CacheRemoved  int       `json:"cache_cleaned"`
	Errors        []string  `json:"errors"`
	Timestamp     time.Time `json:"timestamp"`
}

// Run deletes orphaned images older than OrphanAge and expired cache
// entries. Failures on single files are collected in the report; only a
// failure to read the referenced keys stops the image pass.
func (c *Cleaner) Run(ctx context.Context) Report {
	rep := Report{Errors: []string{}, Timestamp: c.now().UTC()}

	removed, errs := c.removeOrphans(ctx)
	rep.ImagesRemoved = removed
	rep.Errors = append(rep.Errors, errs...)

	if c.Cache != nil {
		n, err := c.Cache.ClearExpired(ctx)
		rep.CacheRemoved = n
		if err != nil {
			rep.Errors = append(rep.Errors, err.Error())
		}
	}

	log.Info().
		Int("imagesRemoved", rep.ImagesRemoved).
		Int("cacheRemoved", rep.CacheRemoved).
		Int("errors", len(rep.Errors)).
		Msg("cleanup finished")
	return rep
}

func (c *Cleaner) orphans(ctx context.Context) ([]images.FileInfo, []images.FileInfo, error) {
	active, err := c.Keys.ImageKeys(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load referenced images: %w", err)
	}
	files, err := c.Images.List()
	if err != nil {
		return nil, nil, err
	}
	var all, orphaned []images.FileInfo
	for _, f := range files {
		if strings.HasPrefix(f.Key, ".") {
			continue
		}
		all = append(all, f)
		if !active[f.Key] {
			orphaned = append(orphaned, f)
		}
	}
	return all, orphaned, nil
}

func (c *Cleaner) removeOrphans(ctx context.Context) (int, []string) {
	_, orphaned, err := c.orphans(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to find orphaned images")
		return 0, []string{err.Error()}
	}

	cutoff := c.now().Add(-c.orphanAge())
	removed := 0
	var errs []string
	for _, f := range orphaned {
		if !f.ModTime.Before(cutoff) {
			continue
		}
		if err := c.Images.Delete(f.Key); err != nil {
			log.Error().Err(err).Str("image", f.Key).Msg("failed to delete orphaned image")
			errs = append(errs, err.Error())
			continue
		}
		log.Info().Str("image", f.Key).Msg("deleted orphaned image")
		removed++
	}
	return removed, errs
}

// Stats describes the disk usage of uploads and cache in megabytes.
type Stats struct {
	UploadDirSize  float64   `json:"upload_dir_size"`
	CacheDirSize   float64   `json:"cache_dir_size"`
	OrphanedImages int       `json:"orphaned_images"`
	TotalImages    int       `json:"total_images"`
	Timestamp      time.Time `json:"timestamp"`
}

// Stats collects storage statistics. A cache without a Sizer reports zero.
func (c *Cleaner) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Timestamp: c.now().UTC()}
	all, orphaned, err := c.orphans(ctx)
	if err != nil {
		return st, err
	}
	var uploadBytes int64
	for _, f := range all {
		uploadBytes += f.Size
	}
	st.UploadDirSize = megabytes(uploadBytes)
	st.TotalImages = len(all)
	st.OrphanedImages = len(orphaned)

	if sizer, ok := c.Cache.(Sizer); ok {
		n, err := sizer.Size()
		if err != nil {
			return st, fmt.Errorf("failed to measure cache: %w", err)
		}
		st.CacheDirSize = megabytes(n)
	}
	return st, nil
}

func megabytes(n int64) float64 {
	mb := float64(n) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}
