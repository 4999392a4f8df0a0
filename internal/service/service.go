// Package service implements the book back office operations on top of the
// storage, analysis and marketplace packages.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/cache"
	"github.com/raine/bookrelist/internal/images"
	"github.com/raine/bookrelist/internal/llm"
	"github.com/raine/bookrelist/internal/marketplace"
	"github.com/raine/bookrelist/internal/notify"
	"github.com/raine/bookrelist/internal/storage"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned for unknown book ids.
var ErrNotFound = storage.ErrNotFound

// ValidationError reports bad input. Nothing was changed when it is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// BookRepository persists records.
type BookRepository interface {
	Create(ctx context.Context, rec *book.Record) error
	Get(ctx context.Context, id int64) (*book.Record, error)
	List(ctx context.Context) ([]*book.Record, error)
	Update(ctx context.Context, rec *book.Record) error
	Delete(ctx context.Context, id int64) error
}

// Analyzer runs the image analysis for a book. It never fails; errors are
// reported inside the result.
type Analyzer interface {
	Analyze(ctx context.Context, bookID int64, refs []string) *llm.AnalysisResult
}

// Marketplace is one listing channel.
type Marketplace interface {
	Publish(ctx context.Context, rec *book.Record) marketplace.Result
	CheckStatus(ctx context.Context, handle string) marketplace.Result
	Verify(ctx context.Context) marketplace.Result
}

// UploadLimits restrict accepted image files.
type UploadLimits struct {
	MaxFileSize int64
	Extensions  []string
}

// Deps are the collaborators of a Service. Cache and Notifier are optional.
type Deps struct {
	Books      BookRepository
	Images     images.Store
	Analyzer   Analyzer
	Cache      cache.Store
	Booklooker Marketplace
	Ebay       Marketplace
	Notifier   notify.Notifier
	Limits     UploadLimits
	Now        func() time.Time
}

type Service struct {
	books      BookRepository
	images     images.Store
	analyzer   Analyzer
	cache      cache.Store
	booklooker Marketplace
	ebay       Marketplace
	notifier   notify.Notifier
	limits     UploadLimits
	now        func() time.Time
}

func New(d Deps) *Service {
	s := &Service{
		books:      d.Books,
		images:     d.Images,
		analyzer:   d.Analyzer,
		cache:      d.Cache,
		booklooker: d.Booklooker,
		ebay:       d.Ebay,
		notifier:   d.Notifier,
		limits:     d.Limits,
		now:        d.Now,
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if len(s.limits.Extensions) == 0 {
		s.limits.Extensions = images.AllowedExtensions
	}
	return s
}

func (s *Service) notify(ctx context.Context, text string) {
	if err := s.notifier.Notify(ctx, text); err != nil {
		log.Warn().Err(err).Msg("failed to send notification")
	}
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id int64) (*book.Record, error) {
	return s.books.Get(ctx, id)
}

// List returns all records, newest first.
func (s *Service) List(ctx context.Context) ([]*book.Record, error) {
	return s.books.List(ctx)
}

// Delete removes a record together with its images and cache entries.
// Missing images are not an error.
func (s *Service) Delete(ctx context.Context, id int64) error {
	rec, err := s.books.Get(ctx, id)
	if err != nil {
		return err
	}
	for _, key := range rec.ImageKeys {
		if err := s.images.Delete(key); err != nil {
			log.Warn().Err(err).Int64("bookID", id).Str("image", key).Msg("failed to delete image")
		}
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Int64("bookID", id).Msg("failed to delete cache entries")
		}
	}
	if err := s.books.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Int64("bookID", id).Str("title", rec.Title).Msg("book deleted")
	return nil
}

// UpdateInput holds the editable fields of a record. Nil fields are left
// unchanged.
type UpdateInput struct {
	Title       *string          `json:"title" validate:"omitempty,max=500"`
	Author      *string          `json:"author" validate:"omitempty,max=500"`
	ISBN        *string          `json:"isbn" validate:"omitempty,max=32"`
	Publisher   *string          `json:"publisher"`
	Year        *int             `json:"publication_year" validate:"omitempty,gte=1000,lte=2100"`
	Edition     *string          `json:"edition"`
	Language    *string          `json:"language"`
	Genre       *string          `json:"genre"`
	PageCount   *int             `json:"page_count" validate:"omitempty,gt=0"`
	Format      *string          `json:"format"`
	Weight      *float64         `json:"weight" validate:"omitempty,gt=0"`
	Dimensions  *book.Dimensions `json:"dimensions" validate:"omitempty"`
	Condition   *book.Condition  `json:"condition" validate:"omitempty,condition"`
	Price       *float64         `json:"price" validate:"omitempty,gte=0"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Summary     *string          `json:"summary"`
}

// Update applies in to a record after validating it.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*book.Record, error) {
	if err := book.ValidateStruct(in); err != nil {
		return nil, invalid("%s", err.Error())
	}
	rec, err := s.books.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	setString(&rec.Title, in.Title)
	setString(&rec.Author, in.Author)
	setString(&rec.ISBN, in.ISBN)
	setString(&rec.Publisher, in.Publisher)
	setString(&rec.Edition, in.Edition)
	setString(&rec.Language, in.Language)
	setString(&rec.Genre, in.Genre)
	setString(&rec.Format, in.Format)
	setString(&rec.Category, in.Category)
	setString(&rec.Description, in.Description)
	setString(&rec.Summary, in.Summary)
	if in.Year != nil {
		rec.Year = in.Year
	}
	if in.PageCount != nil {
		rec.PageCount = in.PageCount
	}
	if in.Weight != nil {
		rec.Weight = in.Weight
	}
	if in.Dimensions != nil {
		rec.Dimensions = in.Dimensions
	}
	if in.Condition != nil {
		rec.Condition = *in.Condition
	}
	if in.Price != nil {
		rec.Price = *in.Price
	}

	if err := rec.Validate(); err != nil {
		return nil, invalid("%s", err.Error())
	}
	rec.UpdatedAt = s.now()
	if err := s.books.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
