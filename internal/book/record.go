// Package book defines the persisted book record and its invariants.
package book

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Status is the processing state of a record.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusError      Status = "ERROR"
)

// Dimensions are measured in centimetres.
type Dimensions struct {
	Length float64 `json:"length" validate:"gt=0"`
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

// PriceDetails keeps the price range a record's price was derived from.
type PriceDetails struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Recommended float64 `json:"recommended"`
	Confidence  float64 `json:"confidence"`
	Source      string  `json:"source,omitempty"`
}

// MarketplaceSync tracks the state of a record on one marketplace.
type MarketplaceSync struct {
	Status    string     `json:"status,omitempty"`
	ListingID string     `json:"listing_id,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	LastSync  *time.Time `json:"last_sync,omitempty"`
	// ImportStatus is the last polled import state, used by file based uploads.
	ImportStatus string `json:"import_status,omitempty"`
}

// Record is one physical book in the inventory.
type Record struct {
	ID int64 `json:"id"`

	Title     string `json:"title" validate:"max=500"`
	Author    string `json:"author" validate:"max=500"`
	ISBN      string `json:"isbn" validate:"max=32"`
	Publisher string `json:"publisher"`
	Year      *int   `json:"publication_year,omitempty" validate:"omitempty,gte=1000,lte=2100"`
	Edition   string `json:"edition"`
	Language  string `json:"language"`
	Genre     string `json:"genre"`
	PageCount *int   `json:"page_count,omitempty" validate:"omitempty,gt=0"`
	Format    string `json:"format"`

	Weight     *float64    `json:"weight,omitempty" validate:"omitempty,gt=0"`
	Dimensions *Dimensions `json:"dimensions,omitempty" validate:"omitempty"`

	Condition   Condition `json:"condition" validate:"omitempty,condition"`
	Price       float64   `json:"price" validate:"gte=0"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Summary     string    `json:"summary"`

	ProcessingStatus Status             `json:"processing_status"`
	ProcessingError  string             `json:"processing_error,omitempty"`
	AnalysisResults  json.RawMessage    `json:"analysis_results,omitempty"`
	ConfidenceScores map[string]float64 `json:"confidence_scores,omitempty"`
	PriceDetails     *PriceDetails      `json:"price_details,omitempty"`

	ImageKeys []string `json:"images"`

	Ebay       MarketplaceSync `json:"ebay"`
	Booklooker MarketplaceSync `json:"booklooker"`

	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastAnalysisAt *time.Time `json:"last_analysis_at,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("condition", func(fl validator.FieldLevel) bool {
		return Condition(fl.Field().String()).Valid()
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register condition validation: %v", err))
	}
	return v
}

// Validator returns the shared validator with the book specific rules
// registered. Callers use it for request payloads that carry book fields.
func Validator() *validator.Validate {
	return validate
}

// Validate checks the record invariants: non-negative price, positive weight
// and positive dimensions when present, and a known condition.
func (r *Record) Validate() error {
	return ValidateStruct(r)
}

// ValidateStruct runs the shared validator on v and returns one readable
// error naming every offending field.
func ValidateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return describeValidation(err)
	}
	return nil
}

// describeValidation turns validator errors into one readable error naming
// every offending field.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "lte", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "condition":
			msgs = append(msgs, fmt.Sprintf("%s %q is not a known condition", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// HasDimensions reports whether all three axes are known.
func (r *Record) HasDimensions() bool {
	return r.Dimensions != nil && r.Dimensions.Length > 0 && r.Dimensions.Width > 0 && r.Dimensions.Height > 0
}

// IntPtr and FloatPtr help building optional fields.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
