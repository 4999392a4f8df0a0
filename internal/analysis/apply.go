package analysis

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/llm"
	"github.com/raine/bookrelist/internal/pricing"
)

const (
	UnknownTitle    = "Unbekannter Titel"
	UnknownAuthor   = "Unbekannter Autor"
	DefaultLanguage = "de"
	DefaultGenre    = "Books"
)

// Confidence score keys stored on the record.
const (
	ScoreCondition  = "condition"
	ScoreMarket     = "market"
	ScoreAdditional = "additional"
	ScoreDimensions = "dimensions"
)

// PriceRange derives the recommended price range from the market data,
// preferring the optimal recommendation over the quick-sale one.
func PriceRange(res *llm.AnalysisResult) pricing.Range {
	md := res.MarketData
	sale := md.PriceAnalysis.Recommendation.SalePrice
	return pricing.FromRecommendation(md.ConfidenceScore.Value,
		sale.Optimal.String(),
		sale.QuickSale.String(),
		md.RecommendedPrice.String(),
	)
}

// Apply maps an analysis result onto rec. An error envelope only sets the
// ERROR state; everything else is left untouched.
func Apply(rec *book.Record, res *llm.AnalysisResult, now time.Time) {
	raw, _ := json.Marshal(res)
	rec.AnalysisResults = raw
	rec.LastAnalysisAt = &now
	rec.UpdatedAt = now

	if res.Failed() {
		rec.ProcessingStatus = book.StatusError
		rec.ProcessingError = res.Error
		return
	}

	md := res.Metadata
	rec.Title = firstNonEmpty(md.GermanTitle.String(), md.OriginalTitle.String(), UnknownTitle)
	rec.Author = firstNonEmpty(md.Author.String(), UnknownAuthor)
	rec.ISBN = strings.TrimSpace(md.ISBN.String())
	rec.Publisher = md.Publisher.String()
	rec.Year = plausibleYear(md.Year.IntPtr())
	rec.Edition = md.Edition.String()
	rec.Language = firstNonEmpty(md.Language.String(), DefaultLanguage)
	rec.PageCount = positiveInt(md.PageCount.IntPtr())
	rec.Format = md.Format.String()
	rec.Genre = firstNonEmpty(md.Genre.String(), DefaultGenre)

	if dims, ok := dimensionsOf(res.PhysicalProperties.Dimensions); ok {
		rec.Dimensions = dims
	} else {
		rec.Dimensions = nil
	}

	ca := res.ConditionAnalysis
	rec.Condition = book.NormalizeCondition(ca.Assessment.String())
	rec.Description = joinNonEmpty("\n\n", ca.Description.String(), ca.Defects.String())
	rec.Summary = res.AdditionalInfo.Summary.String()

	rec.ConfidenceScores = confidenceScores(res)

	pr := PriceRange(res)
	rec.Price = pr.Recommended
	rec.PriceDetails = &book.PriceDetails{
		Min:         pr.Min,
		Max:         pr.Max,
		Recommended: pr.Recommended,
		Confidence:  pr.Confidence,
		Source:      pr.Source,
	}

	rec.ProcessingStatus = book.StatusCompleted
	rec.ProcessingError = ""
}

// dimensionsOf returns dimensions only when all three axes are known and
// positive.
func dimensionsOf(d llm.Dimensions) (*book.Dimensions, bool) {
	for _, n := range []llm.Number{d.Length, d.Width, d.Height} {
		if !n.Valid || n.Value <= 0 {
			return nil, false
		}
	}
	return &book.Dimensions{Length: d.Length.Value, Width: d.Width.Value, Height: d.Height.Value}, true
}

func confidenceScores(res *llm.AnalysisResult) map[string]float64 {
	scores := map[string]float64{}
	set := func(key string, n llm.Number) {
		if n.Valid {
			scores[key] = n.Value
		}
	}
	set(ScoreCondition, res.ConditionAnalysis.ConfidenceScore)
	set(ScoreMarket, res.MarketData.ConfidenceScore)
	set(ScoreAdditional, res.AdditionalInfo.ConfidenceScore)
	set(ScoreDimensions, res.PhysicalProperties.Dimensions.MeasurementConfidence)
	return scores
}

func plausibleYear(v *int) *int {
	if v == nil || *v < 1000 || *v > 2100 {
		return nil
	}
	return v
}

func positiveInt(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func joinNonEmpty(sep string, values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}
