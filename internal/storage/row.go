package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/raine/bookrelist/internal/book"
)

type bookRow struct {
	ID               int64           `db:"id"`
	Title            string          `db:"title"`
	Author           string          `db:"author"`
	ISBN             string          `db:"isbn"`
	Publisher        string          `db:"publisher"`
	Year             sql.NullInt64   `db:"publication_year"`
	Edition          string          `db:"edition"`
	Language         string          `db:"language"`
	Genre            string          `db:"genre"`
	PageCount        sql.NullInt64   `db:"page_count"`
	Format           string          `db:"format"`
	Weight           sql.NullFloat64 `db:"weight"`
	Length           sql.NullFloat64 `db:"length"`
	Width            sql.NullFloat64 `db:"width"`
	Height           sql.NullFloat64 `db:"height"`
	Condition        string          `db:"condition"`
	Price            float64         `db:"price"`
	Category         string          `db:"category"`
	Description      string          `db:"description"`
	Summary          string          `db:"summary"`
	ProcessingStatus string          `db:"processing_status"`
	ProcessingError  string          `db:"processing_error"`
	AnalysisResults  sql.NullString  `db:"analysis_results"`
	ConfidenceScores sql.NullString  `db:"confidence_scores"`
	PriceDetails     sql.NullString  `db:"price_details"`
	Images           string          `db:"images"`
	Ebay             string          `db:"ebay"`
	Booklooker       string          `db:"booklooker"`
	CreatedAt        string          `db:"created_at"`
	UpdatedAt        string          `db:"updated_at"`
	LastAnalysisAt   sql.NullString  `db:"last_analysis_at"`
}

func toRow(rec *book.Record) (*bookRow, error) {
	row := &bookRow{
		ID:               rec.ID,
		Title:            rec.Title,
		Author:           rec.Author,
		ISBN:             rec.ISBN,
		Publisher:        rec.Publisher,
		Edition:          rec.Edition,
		Language:         rec.Language,
		Genre:            rec.Genre,
		Format:           rec.Format,
		Condition:        string(rec.Condition),
		Price:            rec.Price,
		Category:         rec.Category,
		Description:      rec.Description,
		Summary:          rec.Summary,
		ProcessingStatus: string(rec.ProcessingStatus),
		ProcessingError:  rec.ProcessingError,
		CreatedAt:        rec.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:        rec.UpdatedAt.UTC().Format(timeLayout),
	}
	if rec.Year != nil {
		row.Year = sql.NullInt64{Int64: int64(*rec.Year), Valid: true}
	}
	if rec.PageCount != nil {
		row.PageCount = sql.NullInt64{Int64: int64(*rec.PageCount), Valid: true}
	}
	if rec.Weight != nil {
		row.Weight = sql.NullFloat64{Float64: *rec.Weight, Valid: true}
	}
	if d := rec.Dimensions; d != nil {
		row.Length = sql.NullFloat64{Float64: d.Length, Valid: true}
		row.Width = sql.NullFloat64{Float64: d.Width, Valid: true}
		row.Height = sql.NullFloat64{Float64: d.Height, Valid: true}
	}
	if len(rec.AnalysisResults) > 0 {
		row.AnalysisResults = sql.NullString{String: string(rec.AnalysisResults), Valid: true}
	}
	if rec.LastAnalysisAt != nil {
		row.LastAnalysisAt = sql.NullString{String: rec.LastAnalysisAt.UTC().Format(timeLayout), Valid: true}
	}

	var err error
	if row.ConfidenceScores, err = nullJSON(rec.ConfidenceScores, len(rec.ConfidenceScores) > 0); err != nil {
		return nil, err
	}
	if row.PriceDetails, err = nullJSON(rec.PriceDetails, rec.PriceDetails != nil); err != nil {
		return nil, err
	}

	imageKeys := rec.ImageKeys
	if imageKeys == nil {
		imageKeys = []string{}
	}
	for dst, v := range map[*string]any{&row.Images: imageKeys, &row.Ebay: rec.Ebay, &row.Booklooker: rec.Booklooker} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode book column: %w", err)
		}
		*dst = string(b)
	}
	return row, nil
}

func nullJSON(v any, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode book column: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func (row *bookRow) toRecord() (*book.Record, error) {
	rec := &book.Record{
		ID:               row.ID,
		Title:            row.Title,
		Author:           row.Author,
		ISBN:             row.ISBN,
		Publisher:        row.Publisher,
		Edition:          row.Edition,
		Language:         row.Language,
		Genre:            row.Genre,
		Format:           row.Format,
		Condition:        book.Condition(row.Condition),
		Price:            row.Price,
		Category:         row.Category,
		Description:      row.Description,
		Summary:          row.Summary,
		ProcessingStatus: book.Status(row.ProcessingStatus),
		ProcessingError:  row.ProcessingError,
	}
	if row.Year.Valid {
		rec.Year = book.IntPtr(int(row.Year.Int64))
	}
	if row.PageCount.Valid {
		rec.PageCount = book.IntPtr(int(row.PageCount.Int64))
	}
	if row.Weight.Valid {
		rec.Weight = book.FloatPtr(row.Weight.Float64)
	}
	if row.Length.Valid && row.Width.Valid && row.Height.Valid {
		rec.Dimensions = &book.Dimensions{Length: row.Length.Float64, Width: row.Width.Float64, Height: row.Height.Float64}
	}
	if row.AnalysisResults.Valid {
		rec.AnalysisResults = json.RawMessage(row.AnalysisResults.String)
	}

	decode := func(column string, s string, dst any) error {
		if s == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(s), dst); err != nil {
			return fmt.Errorf("failed to decode %s of book %d: %w", column, row.ID, err)
		}
		return nil
	}
	if err := decode("confidence_scores", row.ConfidenceScores.String, &rec.ConfidenceScores); err != nil {
		return nil, err
	}
	if err := decode("price_details", row.PriceDetails.String, &rec.PriceDetails); err != nil {
		return nil, err
	}
	if err := decode("images", row.Images, &rec.ImageKeys); err != nil {
		return nil, err
	}
	if err := decode("ebay", row.Ebay, &rec.Ebay); err != nil {
		return nil, err
	}
	if err := decode("booklooker", row.Booklooker, &rec.Booklooker); err != nil {
		return nil, err
	}

	var err error
	if rec.CreatedAt, err = time.Parse(timeLayout, row.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at of book %d: %w", row.ID, err)
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, row.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at of book %d: %w", row.ID, err)
	}
	if row.LastAnalysisAt.Valid {
		t, err := time.Parse(timeLayout, row.LastAnalysisAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last_analysis_at of book %d: %w", row.ID, err)
		}
		rec.LastAnalysisAt = &t
	}
	return rec, nil
}
