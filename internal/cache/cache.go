// Package cache keeps per-book analysis artifacts with a freshness window.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Class separates cached artifacts with different freshness windows.
type Class string

const (
	ClassPrice    Class = "prices"
	ClassMetadata Class = "metadata"
)

// Classes lists every cache class.
var Classes = []Class{ClassPrice, ClassMetadata}

const (
	DefaultPriceTTL    = 24 * time.Hour
	DefaultMetadataTTL = 7 * 24 * time.Hour
)

// ErrMiss is returned when an entry is absent, stale or unreadable.
var ErrMiss = errors.New("cache miss")

// Entry is the stored form of a cached value.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Store is a per-book cache.
type Store interface {
	Get(ctx context.Context, class Class, bookID int64) (json.RawMessage, error)
	Set(ctx context.Context, class Class, bookID int64, data any) error
	// Delete removes the entries of every class for a book.
	Delete(ctx context.Context, bookID int64) error
	// ClearExpired removes stale and unreadable entries and returns how many
	// were removed.
	ClearExpired(ctx context.Context) (int, error)
}

// TTLs maps a class to its freshness window.
type TTLs map[Class]time.Duration

// DefaultTTLs are 24 hours for prices and 7 days for metadata.
func DefaultTTLs() TTLs {
	return TTLs{ClassPrice: DefaultPriceTTL, ClassMetadata: DefaultMetadataTTL}
}

func (t TTLs) of(class Class) time.Duration {
	if d, ok := t[class]; ok && d > 0 {
		return d
	}
	return DefaultPriceTTL
}

// Lookup decodes a cached value into dst. It reports false on any miss;
// other errors are treated as misses too.
func Lookup(ctx context.Context, s Store, class Class, bookID int64, dst any) bool {
	raw, err := s.Get(ctx, class, bookID)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
