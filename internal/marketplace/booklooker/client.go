// Package booklooker uploads book records to booklooker.de through its
// file import API.
package booklooker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/marketplace"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://api.booklooker.de/2.0"
	DefaultTimeout = 30 * time.Second

	// Raw tokens are answered as plain text of this length.
	rawTokenLength = 32
	statusOK       = "OK"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = fmt.Errorf("booklooker api key missing: %w", marketplace.ErrAuthFailed)

// Session is an authenticated API token.
type Session struct {
	Token    string
	IssuedAt time.Time
}

type ClientOpts struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retry   *marketplace.RetryPolicy
}

// Client talks to the Booklooker REST API. The session token is kept in
// memory and fetched again when missing.
type Client struct {
	httpClient *resty.Client
	apiKey     string
	retry      marketplace.RetryPolicy

	mu      sync.Mutex
	session *Session
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
	retry := marketplace.DefaultRetryPolicy()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	return &Client{
		httpClient: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout),
		apiKey: strings.Trim(opts.APIKey, `" `),
		retry:  retry,
	}
}

// apiResponse is the JSON envelope of every endpoint.
type apiResponse struct {
	Status      string          `json:"status"`
	ReturnValue json.RawMessage `json:"returnValue"`
}

func (r apiResponse) value() string {
	var s string
	if err := json.Unmarshal(r.ReturnValue, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(r.ReturnValue))
}

func decodeResponse(body []byte) (apiResponse, bool) {
	var r apiResponse
	if err := json.Unmarshal(body, &r); err != nil || r.Status == "" {
		return apiResponse{}, false
	}
	return r, true
}

// handleError converts transport failures and 5xx answers into retryable
// errors.
func handleError(res *resty.Response, err error, what string) error {
	if err != nil {
		return marketplace.Transient(fmt.Errorf("%s failed: %w", what, err))
	}
	if res.StatusCode() >= 500 {
		return marketplace.Transient(fmt.Errorf("%s failed (status: %d)", what, res.StatusCode()))
	}
	return nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if r := []rune(s); len(r) > 200 {
		return string(r[:200])
	}
	return s
}

// Authenticate exchanges the API key for a session token. The answer is
// either the JSON envelope or the bare token.
func (c *Client) Authenticate(ctx context.Context) (Session, error) {
	if c.apiKey == "" {
		return Session{}, ErrMissingAPIKey
	}

	var session Session
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		res, err := c.httpClient.R().
			SetContext(ctx).
			SetQueryParam("apiKey", c.apiKey).
			Post("/authenticate")
		if err := handleError(res, err, "booklooker authentication"); err != nil {
			return err
		}

		if r, ok := decodeResponse(res.Body()); ok {
			if r.Status == statusOK && r.value() != "" {
				session = Session{Token: r.value(), IssuedAt: time.Now()}
				return nil
			}
			return fmt.Errorf("%w: %s", marketplace.ErrAuthFailed, r.value())
		}
		if text := strings.TrimSpace(res.String()); len(text) == rawTokenLength {
			session = Session{Token: text, IssuedAt: time.Now()}
			return nil
		}
		return fmt.Errorf("%w: unexpected answer: %s", marketplace.ErrAuthFailed, snippet(res.Body()))
	})
	if err != nil {
		return Session{}, err
	}

	log.Info().Msg("booklooker authentication successful")
	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()
	return session, nil
}

// EnsureSession returns the cached session or authenticates.
func (c *Client) EnsureSession(ctx context.Context) (Session, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s != nil {
		return *s, nil
	}
	return c.Authenticate(ctx)
}

// Invalidate drops the cached session.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

// Upload sends one article file. It returns a RejectedError when the API
// refuses the file.
func (c *Client) Upload(ctx context.Context, s Session, filename string, content []byte) error {
	return c.retry.Do(ctx, func(ctx context.Context) error {
		res, err := c.httpClient.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"token":     s.Token,
				"fileType":  "article",
				"dataType":  "0",
				"mediaType": "0",
				"formatID":  "1",
				"encoding":  "UTF-8",
			}).
			SetMultipartField("file", filename, "text/plain; charset=utf-8", bytes.NewReader(content)).
			Post("/file_import")
		if err := handleError(res, err, "booklooker upload"); err != nil {
			return err
		}
		log.Debug().Int("status", res.StatusCode()).Str("body", snippet(res.Body())).Msg("booklooker upload answer")

		if res.StatusCode() == http.StatusUnauthorized {
			c.Invalidate()
			return fmt.Errorf("%w: token rejected", marketplace.ErrAuthFailed)
		}
		if r, ok := decodeResponse(res.Body()); ok {
			if r.Status == statusOK {
				return nil
			}
			reason := r.value()
			if reason == "" {
				reason = "Unbekannter Fehler"
			}
			return marketplace.Rejected("%s", reason)
		}
		text := res.String()
		if res.StatusCode() == http.StatusOK && (strings.Contains(text, statusOK) || strings.Contains(strings.ToLower(text), "success")) {
			return nil
		}
		return marketplace.Rejected("Unerwartete API-Antwort: %s", snippet(res.Body()))
	})
}

// FileStatus returns the import state of an uploaded file, like QUEUED or
// IMPORTED.
func (c *Client) FileStatus(ctx context.Context, s Session, filename string) (string, error) {
	var status string
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		res, err := c.httpClient.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"token":    s.Token,
				"filename": filename,
			}).
			Get("/file_status")
		if err := handleError(res, err, "booklooker file status"); err != nil {
			return err
		}
		if res.StatusCode() == http.StatusUnauthorized {
			c.Invalidate()
			return fmt.Errorf("%w: token rejected", marketplace.ErrAuthFailed)
		}
		if res.StatusCode() != http.StatusOK {
			return fmt.Errorf("booklooker file status failed (status: %d)", res.StatusCode())
		}
		r, ok := decodeResponse(res.Body())
		if !ok {
			return fmt.Errorf("failed to decode booklooker file status: %s", snippet(res.Body()))
		}
		if r.Status != statusOK {
			return marketplace.Rejected("%s", r.value())
		}
		status = r.value()
		return nil
	})
	return status, err
}

// Publish validates rec, formats it and uploads it. The handle of an
// accepted upload is the file name to poll with CheckStatus.
func (c *Client) Publish(ctx context.Context, rec *book.Record) marketplace.Result {
	if errs := marketplace.Validate(rec, false); len(errs) > 0 {
		return marketplace.ValidationFailure(errs)
	}

	s, err := c.EnsureSession(ctx)
	if err != nil {
		log.Error().Err(err).Int64("bookID", rec.ID).Msg("booklooker authentication failed")
		return marketplace.FromError("Authentifizierung bei Booklooker fehlgeschlagen", err)
	}

	content, err := FormatRecord(rec)
	if err != nil {
		return marketplace.FromError("Fehler beim Erstellen der Upload-Datei", err)
	}
	filename := Filename(rec)
	log.Info().Int64("bookID", rec.ID).Str("filename", filename).Int("bytes", len(content)).Msg("uploading book to booklooker")

	err = c.Upload(ctx, s, filename, content)
	if errors.Is(err, marketplace.ErrAuthFailed) {
		// The cached token expired; one fresh login.
		if s, err = c.Authenticate(ctx); err == nil {
			err = c.Upload(ctx, s, filename, content)
		}
	}
	if err != nil {
		log.Error().Err(err).Int64("bookID", rec.ID).Msg("booklooker upload failed")
		return marketplace.FromError("Upload zu Booklooker fehlgeschlagen", err)
	}
	return marketplace.Accepted(filename, StatusFileReceived, "Buch erfolgreich zu Booklooker hochgeladen")
}

// CheckStatus polls the import state of filename.
func (c *Client) CheckStatus(ctx context.Context, filename string) marketplace.Result {
	s, err := c.EnsureSession(ctx)
	if err != nil {
		return marketplace.FromError("Authentifizierung bei Booklooker fehlgeschlagen", err)
	}
	status, err := c.FileStatus(ctx, s, filename)
	if errors.Is(err, marketplace.ErrAuthFailed) {
		// The cached token expired; one fresh login.
		if s, err = c.Authenticate(ctx); err == nil {
			status, err = c.FileStatus(ctx, s, filename)
		}
	}
	if err != nil {
		return marketplace.FromError("Fehler beim Prüfen des Dateistatus", err)
	}
	res := marketplace.Accepted(filename, status, StatusMessage(status))
	if status == StatusRejected || status == StatusError {
		res.Success = false
		res.Kind = marketplace.KindRejected
	}
	return res
}

// Verify checks that the API key is accepted.
func (c *Client) Verify(ctx context.Context) marketplace.Result {
	if _, err := c.Authenticate(ctx); err != nil {
		return marketplace.FromError("Authentifizierung bei Booklooker fehlgeschlagen", err)
	}
	return marketplace.Accepted("", "", "Verbindung zu Booklooker erfolgreich")
}
