package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/raine/bookrelist/internal/analysis"
	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/cache"
	"github.com/raine/bookrelist/internal/images"
	"github.com/raine/bookrelist/internal/llm"
	"github.com/raine/bookrelist/internal/notify"
	"github.com/raine/bookrelist/internal/pricing"
	"github.com/rs/zerolog/log"
)

const placeholderText = "Wird analysiert..."

// UploadFile is one uploaded image.
type UploadFile struct {
	Name    string
	Size    int64
	Content io.Reader
}

// UploadInput is a new book: its photos and the weight in grams as typed by
// the user.
type UploadInput struct {
	Files  []UploadFile
	Weight string
}

// ParseWeight accepts a positive whole number of grams.
func ParseWeight(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.Trim(s, "0123456789") != "" {
		return 0, invalid("Bitte geben Sie ein gültiges Gewicht in Gramm ein")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, invalid("Bitte geben Sie ein gültiges Gewicht in Gramm ein")
	}
	return float64(n), nil
}

// Upload validates the input, stores the images, creates the record and
// analyzes it. The record is returned in its final state, which is ERROR
// when the analysis failed. Only invalid input and storage failures are
// returned as errors.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*book.Record, error) {
	if len(in.Files) == 0 {
		return nil, invalid("Keine Bilder hochgeladen")
	}
	for _, f := range in.Files {
		if err := images.CheckUpload(f.Name, f.Size, s.limits.MaxFileSize, s.limits.Extensions); err != nil {
			return nil, invalid("Ungültige Datei: %v", err)
		}
	}
	weight, err := ParseWeight(in.Weight)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(in.Files))
	for _, f := range in.Files {
		key, err := s.images.Save(f.Name, f.Content)
		if err != nil {
			s.deleteImages(keys)
			return nil, fmt.Errorf("failed to store image %s: %w", f.Name, err)
		}
		keys = append(keys, key)
	}

	now := s.now()
	rec := &book.Record{
		Title:            placeholderText,
		Author:           placeholderText,
		Description:      placeholderText,
		Condition:        book.ConditionGood,
		Category:         analysis.DefaultGenre,
		Weight:           &weight,
		ImageKeys:        keys,
		ProcessingStatus: book.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.books.Create(ctx, rec); err != nil {
		s.deleteImages(keys)
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	log.Info().Int64("bookID", rec.ID).Int("images", len(keys)).Float64("weight", weight).Msg("book uploaded")

	if err := s.runAnalysis(ctx, rec, false); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) deleteImages(keys []string) {
	for _, key := range keys {
		if err := s.images.Delete(key); err != nil {
			log.Warn().Err(err).Str("image", key).Msg("failed to delete image")
		}
	}
}

// Reanalyze runs the analysis again on the stored images and replaces the
// previous result. With useCache a fresh cached result is applied instead of
// calling the model.
func (s *Service) Reanalyze(ctx context.Context, id int64, useCache bool) (*book.Record, error) {
	rec, err := s.books.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(rec.ImageKeys) == 0 {
		return nil, invalid("Keine Bilder für die Analyse vorhanden")
	}
	if err := s.runAnalysis(ctx, rec, useCache); err != nil {
		return nil, err
	}
	return rec, nil
}

// runAnalysis moves rec through PROCESSING to COMPLETED or ERROR, persisting
// each step.
func (s *Service) runAnalysis(ctx context.Context, rec *book.Record, useCache bool) error {
	rec.ProcessingStatus = book.StatusProcessing
	rec.ProcessingError = ""
	rec.UpdatedAt = s.now()
	if err := s.books.Update(ctx, rec); err != nil {
		return fmt.Errorf("failed to mark book as processing: %w", err)
	}

	res, price, cached := s.cachedAnalysis(ctx, rec.ID, useCache)
	if !cached {
		res = s.analyzer.Analyze(ctx, rec.ID, rec.ImageKeys)
	}
	analysis.Apply(rec, res, s.now())
	if cached {
		applyPrice(rec, price)
	}

	if err := s.books.Update(ctx, rec); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	if rec.ProcessingStatus == book.StatusError {
		log.Error().Int64("bookID", rec.ID).Str("error", rec.ProcessingError).Msg("book analysis failed")
	} else {
		log.Info().Int64("bookID", rec.ID).Str("title", rec.Title).Float64("price", rec.Price).Bool("cached", cached).Msg("book analyzed")
		if !cached {
			s.storeAnalysis(ctx, rec.ID, res)
		}
	}
	s.notify(ctx, notify.AnalysisMessage(rec))
	return nil
}

// cachedAnalysis returns a cached result when both the analysis and its
// price range are fresh.
func (s *Service) cachedAnalysis(ctx context.Context, id int64, useCache bool) (*llm.AnalysisResult, pricing.Range, bool) {
	if !useCache || s.cache == nil {
		return nil, pricing.Range{}, false
	}
	var res llm.AnalysisResult
	var price pricing.Range
	if !cache.Lookup(ctx, s.cache, cache.ClassMetadata, id, &res) || !cache.Lookup(ctx, s.cache, cache.ClassPrice, id, &price) {
		return nil, pricing.Range{}, false
	}
	if res.Failed() {
		return nil, pricing.Range{}, false
	}
	return &res, price, true
}

func (s *Service) storeAnalysis(ctx context.Context, id int64, res *llm.AnalysisResult) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cache.ClassMetadata, id, res); err != nil {
		log.Warn().Err(err).Int64("bookID", id).Msg("failed to cache analysis")
	}
	if err := s.cache.Set(ctx, cache.ClassPrice, id, analysis.PriceRange(res)); err != nil {
		log.Warn().Err(err).Int64("bookID", id).Msg("failed to cache price range")
	}
}

func applyPrice(rec *book.Record, pr pricing.Range) {
	rec.Price = pr.Recommended
	rec.PriceDetails = &book.PriceDetails{
		Min:         pr.Min,
		Max:         pr.Max,
		Recommended: pr.Recommended,
		Confidence:  pr.Confidence,
		Source:      pr.Source,
	}
}
