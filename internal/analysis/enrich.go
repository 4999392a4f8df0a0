package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raine/bookrelist/internal/llm"
	"github.com/raine/bookrelist/internal/openlibrary"
	"github.com/rs/zerolog/log"
)

const (
	// SourceOpenLibrary is the validation_sources key for catalog data.
	SourceOpenLibrary = "open_library"

	defaultEnrichTimeout = 5 * time.Second
)

// Catalog looks up an ISBN in an external book catalog.
type Catalog interface {
	LookupISBN(ctx context.Context, isbn string) (json.RawMessage, error)
}

// Enricher attaches catalog data to an analysis result. Failures are logged
// and recorded in the error log but never abort the analysis. A missing
// catalog entry is not a failure.
type Enricher struct {
	Catalog Catalog
	Timeout time.Duration
}

func NewEnricher(catalog Catalog) *Enricher {
	return &Enricher{Catalog: catalog, Timeout: defaultEnrichTimeout}
}

// Enrich looks up the result's ISBN, if any.
func (e *Enricher) Enrich(ctx context.Context, res *llm.AnalysisResult) {
	if e == nil || e.Catalog == nil || res == nil {
		return
	}
	isbn := strings.TrimSpace(res.Metadata.ISBN.String())
	if isbn == "" {
		return
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultEnrichTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entry, err := e.Catalog.LookupISBN(ctx, isbn)
	if errors.Is(err, openlibrary.ErrNotFound) {
		log.Debug().Str("isbn", isbn).Msg("no catalog entry for isbn")
		return
	}
	if err != nil {
		msg := fmt.Sprintf("metadata enrichment failed: %v", err)
		log.Warn().Err(err).Str("isbn", isbn).Msg("metadata enrichment failed")
		res.AddError(msg)
		return
	}

	if res.ValidationSources == nil {
		res.ValidationSources = make(map[string]json.RawMessage)
	}
	res.ValidationSources[SourceOpenLibrary] = entry
	log.Info().Str("isbn", isbn).Msg("catalog data attached")
}
