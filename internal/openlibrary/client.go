// Package openlibrary looks up book data in the OpenLibrary catalog.
package openlibrary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://openlibrary.org"
	DefaultTimeout = 5 * time.Second
)

// ErrNotFound is returned when the catalog has no entry for an ISBN.
var ErrNotFound = errors.New("isbn not found in catalog")

type ClientOpts struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond limits outgoing requests. Zero means one per second.
	RequestsPerSecond float64
}

type Client struct {
	httpClient *resty.Client
	limiter    *rate.Limiter
}

func NewClient(opts ClientOpts) *Client {
	baseURL := DefaultBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	timeout := DefaultTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if opts.UserAgent != "" {
		httpClient.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// LookupISBN returns the catalog entry for isbn as returned by
// /api/books?jscmd=data.
func (c *Client) LookupISBN(ctx context.Context, isbn string) (json.RawMessage, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("empty isbn")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	bibkey := "ISBN:" + isbn
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"bibkeys": bibkey,
			"format":  "json",
			"jscmd":   "data",
		}).
		Get("/api/books")
	if err != nil {
		return nil, fmt.Errorf("openlibrary request failed: %w", err)
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("openlibrary request failed (status: %d)", res.StatusCode())
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(res.Body(), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode openlibrary response: %w", err)
	}
	entry, ok := entries[bibkey]
	if !ok || isEmptyObject(entry) {
		return nil, ErrNotFound
	}
	return entry, nil
}

func isEmptyObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}"))
}
