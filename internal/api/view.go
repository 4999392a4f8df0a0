package api

import (
	"encoding/json"
	"time"

	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/service"
	"github.com/raine/bookrelist/internal/shipping"
)

type shippingResponse struct {
	AllOptions map[shipping.Carrier]map[shipping.Region]map[shipping.Service]shipping.Cents `json:"all_options"`
	CheapestDE shipping.Cents                                                               `json:"cheapest_de"`
	Error      string                                                                       `json:"error,omitempty"`
}

func newShippingResponse(rec *book.Record) shippingResponse {
	opts := service.Shipping(rec)
	return shippingResponse{
		AllOptions: opts.ByCarrier(),
		CheapestDE: shipping.CheapestDomestic(opts),
		Error:      opts.Error,
	}
}

// shippingTotal is the price plus the cheapest domestic postage.
func shippingTotal(price float64, ship shippingResponse) float64 {
	return (shipping.FromEuros(price) + ship.CheapestDE).Euros()
}

// bookResponse is the public JSON form of a record with the marketplace
// fields flattened.
type bookResponse struct {
	ID               int64              `json:"id"`
	Title            string             `json:"title"`
	Author           string             `json:"author"`
	ISBN             string             `json:"isbn"`
	Publisher        string             `json:"publisher"`
	Year             *int               `json:"publication_year"`
	Edition          string             `json:"edition"`
	Language         string             `json:"language"`
	Genre            string             `json:"genre"`
	PageCount        *int               `json:"page_count"`
	Format           string             `json:"format"`
	Weight           *float64           `json:"weight"`
	Dimensions       *book.Dimensions   `json:"dimensions"`
	Condition        book.Condition     `json:"condition"`
	Price            float64            `json:"price"`
	Category         string             `json:"category"`
	Description      string             `json:"description"`
	Summary          string             `json:"summary"`
	Shipping         shippingResponse   `json:"shipping"`
	TotalPrice       float64            `json:"total_price"`
	ImageURLs        []string           `json:"image_urls"`
	ProcessingStatus book.Status        `json:"processing_status"`
	ProcessingError  string             `json:"processing_error,omitempty"`
	AnalysisResults  json.RawMessage    `json:"image_analysis_results,omitempty"`
	ConfidenceScores map[string]float64 `json:"metadata_confidence,omitempty"`
	PriceDetails     *book.PriceDetails `json:"price_details,omitempty"`

	EbayListingID      string     `json:"ebay_listing_id,omitempty"`
	EbayListingStatus  string     `json:"ebay_listing_status,omitempty"`
	EbayListingError   string     `json:"ebay_listing_error,omitempty"`
	EbayLastSync       *time.Time `json:"ebay_last_sync,omitempty"`
	BooklookerFile     string     `json:"booklooker_listing_id,omitempty"`
	BooklookerStatus   string     `json:"booklooker_status,omitempty"`
	BooklookerImport   string     `json:"booklooker_import_status,omitempty"`
	BooklookerError    string     `json:"booklooker_listing_error,omitempty"`
	BooklookerLastSync *time.Time `json:"booklooker_last_sync,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastAnalysisAt *time.Time `json:"last_analysis_at,omitempty"`
}

func newBookResponse(rec *book.Record) bookResponse {
	ship := newShippingResponse(rec)
	urls := make([]string, 0, len(rec.ImageKeys))
	for _, key := range rec.ImageKeys {
		urls = append(urls, "/images/"+key)
	}
	return bookResponse{
		ID:               rec.ID,
		Title:            rec.Title,
		Author:           rec.Author,
		ISBN:             rec.ISBN,
		Publisher:        rec.Publisher,
		Year:             rec.Year,
		Edition:          rec.Edition,
		Language:         rec.Language,
		Genre:            rec.Genre,
		PageCount:        rec.PageCount,
		Format:           rec.Format,
		Weight:           rec.Weight,
		Dimensions:       rec.Dimensions,
		Condition:        rec.Condition,
		Price:            rec.Price,
		Category:         rec.Category,
		Description:      rec.Description,
		Summary:          rec.Summary,
		Shipping:         ship,
		TotalPrice:       shippingTotal(rec.Price, ship),
		ImageURLs:        urls,
		ProcessingStatus: rec.ProcessingStatus,
		ProcessingError:  rec.ProcessingError,
		AnalysisResults:  rec.AnalysisResults,
		ConfidenceScores: rec.ConfidenceScores,
		PriceDetails:     rec.PriceDetails,

		EbayListingID:      rec.Ebay.ListingID,
		EbayListingStatus:  rec.Ebay.Status,
		EbayListingError:   rec.Ebay.LastError,
		EbayLastSync:       rec.Ebay.LastSync,
		BooklookerFile:     rec.Booklooker.ListingID,
		BooklookerStatus:   rec.Booklooker.Status,
		BooklookerImport:   rec.Booklooker.ImportStatus,
		BooklookerError:    rec.Booklooker.LastError,
		BooklookerLastSync: rec.Booklooker.LastSync,

		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		LastAnalysisAt: rec.LastAnalysisAt,
	}
}
