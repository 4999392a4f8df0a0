// Package storage persists book records in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/raine/bookrelist/internal/book"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("book not found")

// Fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// BookStore keeps book records in a SQLite database.
type BookStore struct {
	db *sqlx.DB
}

// NewBookStore opens or creates the database at dbPath.
func NewBookStore(dbPath string) (*BookStore, error) {
	// WAL mode and busy timeout for concurrent readers
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &BookStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *BookStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		isbn TEXT NOT NULL DEFAULT '',
		publisher TEXT NOT NULL DEFAULT '',
		publication_year INTEGER,
		edition TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL DEFAULT '',
		page_count INTEGER,
		format TEXT NOT NULL DEFAULT '',
		weight REAL,
		length REAL,
		width REAL,
		height REAL,
		condition TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		processing_status TEXT NOT NULL DEFAULT 'PENDING',
		processing_error TEXT NOT NULL DEFAULT '',
		analysis_results TEXT,
		confidence_scores TEXT,
		price_details TEXT,
		images TEXT NOT NULL DEFAULT '[]',
		ebay TEXT NOT NULL DEFAULT '{}',
		booklooker TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		last_analysis_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_books_created_at ON books(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *BookStore) Close() error {
	return s.db.Close()
}

// Create inserts rec and sets its ID. Zero timestamps are set to now.
func (s *BookStore) Create(ctx context.Context, rec *book.Record) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	row, err := toRow(rec)
	if err != nil {
		return err
	}
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO books (
			title, author, isbn, publisher, publication_year, edition, language, genre,
			page_count, format, weight, length, width, height, condition, price, category,
			description, summary, processing_status, processing_error, analysis_results,
			confidence_scores, price_details, images, ebay, booklooker,
			created_at, updated_at, last_analysis_at
		) VALUES (
			:title, :author, :isbn, :publisher, :publication_year, :edition, :language, :genre,
			:page_count, :format, :weight, :length, :width, :height, :condition, :price, :category,
			:description, :summary, :processing_status, :processing_error, :analysis_results,
			:confidence_scores, :price_details, :images, :ebay, :booklooker,
			:created_at, :updated_at, :last_analysis_at
		)`, row)
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read book id: %w", err)
	}
	rec.ID = id
	return nil
}

// Get returns the record with the given id.
func (s *BookStore) Get(ctx context.Context, id int64) (*book.Record, error) {
	var row bookRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM books WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return row.toRecord()
}

// List returns all records, newest first.
func (s *BookStore) List(ctx context.Context) ([]*book.Record, error) {
	var rows []bookRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM books ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	out := make([]*book.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			log.Warn().Err(err).Int64("bookID", row.ID).Msg("skipping unreadable book row")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Update overwrites every column of an existing record.
func (s *BookStore) Update(ctx context.Context, rec *book.Record) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE books SET
			title = :title, author = :author, isbn = :isbn, publisher = :publisher,
			publication_year = :publication_year, edition = :edition, language = :language,
			genre = :genre, page_count = :page_count, format = :format, weight = :weight,
			length = :length, width = :width, height = :height, condition = :condition,
			price = :price, category = :category, description = :description, summary = :summary,
			processing_status = :processing_status, processing_error = :processing_error,
			analysis_results = :analysis_results, confidence_scores = :confidence_scores,
			price_details = :price_details, images = :images, ebay = :ebay,
			booklooker = :booklooker, updated_at = :updated_at, last_analysis_at = :last_analysis_at
		WHERE id = :id`, row)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the record with the given id.
func (s *BookStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ImageKeys returns the image keys referenced by any record.
func (s *BookStore) ImageKeys(ctx context.Context) (map[string]bool, error) {
	var lists []string
	if err := s.db.SelectContext(ctx, &lists, `SELECT images FROM books`); err != nil {
		return nil, fmt.Errorf("failed to list image keys: %w", err)
	}
	keys := make(map[string]bool)
	for _, l := range lists {
		var ks []string
		if err := json.Unmarshal([]byte(l), &ks); err != nil {
			continue
		}
		for _, k := range ks {
			keys[k] = true
		}
	}
	return keys, nil
}
