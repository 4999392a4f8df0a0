package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/raine/bookrelist/internal/book"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BookStore {
	t.Helper()
	store, err := NewBookStore(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBookStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	synced := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	rec := &book.Record{
		Title:            "Der Prozess",
		Author:           "Franz Kafka",
		ISBN:             "9783596294428",
		Year:             book.IntPtr(1925),
		PageCount:        book.IntPtr(256),
		Weight:           book.FloatPtr(320),
		Dimensions:       &book.Dimensions{Length: 19, Width: 12.5, Height: 2},
		Condition:        book.ConditionGood,
		Price:            9.5,
		ProcessingStatus: book.StatusCompleted,
		AnalysisResults:  json.RawMessage(`{"metadata":{"autor":"Franz Kafka"}}`),
		ConfidenceScores: map[string]float64{"condition": 0.8},
		PriceDetails:     &book.PriceDetails{Min: 8, Max: 11, Recommended: 9.5, Confidence: 0.7},
		ImageKeys:        []string{"a.jpg", "b.jpg"},
		Booklooker:       book.MarketplaceSync{Status: "success", ListingID: "book_1.txt", LastSync: &synced},
	}
	require.NoError(t, store.Create(ctx, rec))
	require.NotZero(t, rec.ID)

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.Title, got.Title)
	assert.Equal(t, 1925, *got.Year)
	assert.Equal(t, 256, *got.PageCount)
	assert.Equal(t, 320.0, *got.Weight)
	assert.Equal(t, rec.Dimensions, got.Dimensions)
	assert.Equal(t, book.ConditionGood, got.Condition)
	assert.Equal(t, book.StatusCompleted, got.ProcessingStatus)
	assert.JSONEq(t, string(rec.AnalysisResults), string(got.AnalysisResults))
	assert.Equal(t, rec.ConfidenceScores, got.ConfidenceScores)
	assert.Equal(t, rec.PriceDetails, got.PriceDetails)
	assert.Equal(t, rec.ImageKeys, got.ImageKeys)
	assert.Equal(t, "book_1.txt", got.Booklooker.ListingID)
	assert.True(t, synced.Equal(*got.Booklooker.LastSync))
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.LastAnalysisAt)
}

func TestBookStoreOptionalFieldsStayNil(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rec := &book.Record{ProcessingStatus: book.StatusPending}
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Year)
	assert.Nil(t, got.Weight)
	assert.Nil(t, got.Dimensions)
	assert.Nil(t, got.PriceDetails)
	assert.Empty(t, got.ImageKeys)
	assert.Empty(t, got.AnalysisResults)
}

func TestBookStoreUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rec := &book.Record{Title: "Entwurf", ProcessingStatus: book.StatusProcessing}
	require.NoError(t, store.Create(ctx, rec))

	rec.Title = "Fertig"
	rec.ProcessingStatus = book.StatusError
	rec.ProcessingError = "kaputt"
	rec.Ebay.LastError = "credentials missing"
	require.NoError(t, store.Update(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fertig", got.Title)
	assert.Equal(t, book.StatusError, got.ProcessingStatus)
	assert.Equal(t, "kaputt", got.ProcessingError)
	assert.Equal(t, "credentials missing", got.Ebay.LastError)

	missing := &book.Record{ID: 999}
	assert.True(t, errors.Is(store.Update(ctx, missing), ErrNotFound))
}

func TestBookStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"eins", "zwei", "drei"} {
		rec := &book.Record{Title: title, CreatedAt: base.Add(time.Duration(i) * time.Hour), ImageKeys: []string{title + ".jpg"}}
		require.NoError(t, store.Create(ctx, rec))
	}

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "drei", list[0].Title, "newest first")
	assert.Equal(t, "eins", list[2].Title)

	keys, err := store.ImageKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"eins.jpg": true, "zwei.jpg": true, "drei.jpg": true}, keys)

	require.NoError(t, store.Delete(ctx, list[0].ID))
	assert.True(t, errors.Is(store.Delete(ctx, list[0].ID), ErrNotFound))

	_, err = store.Get(ctx, list[0].ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}
