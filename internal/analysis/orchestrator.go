// Package analysis runs the vision model over book photos and maps the
// answer onto a book record.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/raine/bookrelist/internal/images"
	"github.com/raine/bookrelist/internal/llm"
	"github.com/rs/zerolog/log"
)

// DefaultMaxImageEdge is the longest edge in pixels of images sent to the model.
const DefaultMaxImageEdge = 2048

// ImageSource resolves an image reference to its bytes.
type ImageSource interface {
	Load(ctx context.Context, ref string) ([]byte, error)
}

// Orchestrator loads images, asks the vision model and parses its answer.
type Orchestrator struct {
	Vision   llm.Vision
	Images   ImageSource
	Enricher *Enricher
	// MaxImageEdge bounds the image size; zero uses DefaultMaxImageEdge,
	// a negative value sends images unchanged.
	MaxImageEdge int
	Now          func() time.Time
}

func NewOrchestrator(vision llm.Vision, source ImageSource, enricher *Enricher) *Orchestrator {
	return &Orchestrator{
		Vision:   vision,
		Images:   source,
		Enricher: enricher,
		Now:      time.Now,
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Analyze never fails: every error, including a panic, is returned as an
// error envelope result.
func (o *Orchestrator) Analyze(ctx context.Context, bookID int64, refs []string) (res *llm.AnalysisResult) {
	logger := log.With().Int64("bookID", bookID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("analysis panicked")
			res = llm.EmptyResult(fmt.Sprintf("Fehler bei der Bildanalyse: %v", r), o.now())
		}
	}()

	res, err := o.analyze(ctx, bookID, refs)
	if err != nil {
		logger.Error().Err(err).Msg("analysis failed")
		return llm.EmptyResult(fmt.Sprintf("Fehler bei der Bildanalyse: %v", err), o.now())
	}
	return res
}

func (o *Orchestrator) analyze(ctx context.Context, bookID int64, refs []string) (*llm.AnalysisResult, error) {
	if o.Vision == nil {
		return nil, errors.New("no vision model configured")
	}

	imgs := o.loadImages(ctx, bookID, refs)
	if len(imgs) == 0 {
		return nil, errors.New("keine Bilder konnten geladen werden")
	}

	resp, err := o.Vision.Generate(ctx, Prompt(), imgs)
	if err != nil {
		return nil, err
	}

	res, err := llm.ParseResponse(resp.Text)
	if err != nil {
		return nil, err
	}
	res.Usage = resp.Usage
	res.ProcessingTimestamp = o.now().UTC()

	o.Enricher.Enrich(ctx, res)

	log.Info().
		Int64("bookID", bookID).
		Int("imageCount", len(imgs)).
		Str("title", res.Metadata.GermanTitle.String()).
		Msg("book analysis finished")
	return res, nil
}

// loadImages loads and normalizes every reference, skipping the ones that
// fail.
func (o *Orchestrator) loadImages(ctx context.Context, bookID int64, refs []string) []llm.Image {
	maxEdge := o.MaxImageEdge
	if maxEdge == 0 {
		maxEdge = DefaultMaxImageEdge
	}

	var out []llm.Image
	for _, ref := range refs {
		data, err := o.Images.Load(ctx, ref)
		if err != nil {
			log.Error().Err(err).Int64("bookID", bookID).Str("ref", ref).Msg("failed to load image")
			continue
		}
		if maxEdge < 0 {
			out = append(out, llm.Image{Data: data, MIMEType: http.DetectContentType(data)})
			continue
		}
		data, err = images.Normalize(data, maxEdge)
		if err != nil {
			log.Error().Err(err).Int64("bookID", bookID).Str("ref", ref).Msg("failed to read image")
			continue
		}
		out = append(out, llm.Image{Data: data, MIMEType: "image/jpeg"})
	}
	return out
}
