// Package ebay lists book records on eBay.de through the Trading API.
package ebay

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/marketplace"
	"github.com/rs/zerolog/log"
)

const (
	SandboxURL    = "https://api.sandbox.ebay.com/ws/api.dll"
	ProductionURL = "https://api.ebay.com/ws/api.dll"

	compatibilityLevel = "1199"
	siteID             = "77" // eBay.de
	DefaultTimeout     = 20 * time.Second
	DefaultPostalCode  = "10115"
)

// Credentials are the static Trading API keys and the user token.
type Credentials struct {
	AppID  string
	DevID  string
	CertID string
	Token  string
}

// Missing returns the names of the unset credentials.
func (c Credentials) Missing() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"EBAY_APP_ID", c.AppID},
		{"EBAY_CERT_ID", c.CertID},
		{"EBAY_DEV_ID", c.DevID},
		{"EBAY_TOKEN", c.Token},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Session is a verified set of credentials.
type Session struct {
	UserID     string
	VerifiedAt time.Time
}

type ClientOpts struct {
	Credentials Credentials
	Sandbox     bool
	// Endpoint overrides the URL chosen by Sandbox.
	Endpoint   string
	PostalCode string
	Timeout    time.Duration
	Retry      *marketplace.RetryPolicy
}

type Client struct {
	httpClient *resty.Client
	endpoint   string
	creds      Credentials
	sandbox    bool
	postalCode string
	retry      marketplace.RetryPolicy

	mu      sync.Mutex
	session *Session
}

func NewClient(opts ClientOpts) *Client {
	endpoint := ProductionURL
	if opts.Sandbox {
		endpoint = SandboxURL
	}
	if opts.Endpoint != "" {
		endpoint = opts.Endpoint
	}
	timeout := DefaultTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	postalCode := DefaultPostalCode
	if opts.PostalCode != "" {
		postalCode = opts.PostalCode
	}
	retry := marketplace.DefaultRetryPolicy()
	if opts.Retry != nil {
		retry = *opts.Retry
	}

	creds := opts.Credentials
	for _, v := range []*string{&creds.AppID, &creds.DevID, &creds.CertID, &creds.Token} {
		*v = strings.Trim(*v, `" `)
	}

	return &Client{
		httpClient: resty.New().SetTimeout(timeout),
		endpoint:   endpoint,
		creds:      creds,
		sandbox:    opts.Sandbox,
		postalCode: postalCode,
		retry:      retry,
	}
}

func (c *Client) credentials() requesterCredentials {
	return requesterCredentials{Token: c.creds.Token}
}

// call posts one Trading API request and decodes the answer into resp.
func (c *Client) call(ctx context.Context, callName string, req, resp any) error {
	body, err := xml.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", callName, err)
	}

	return c.retry.Do(ctx, func(ctx context.Context) error {
		res, err := c.httpClient.R().
			SetContext(ctx).
			SetHeaders(map[string]string{
				"Content-Type":                   "text/xml; charset=utf-8",
				"X-EBAY-API-CALL-NAME":           callName,
				"X-EBAY-API-COMPATIBILITY-LEVEL": compatibilityLevel,
				"X-EBAY-API-SITEID":              siteID,
				"X-EBAY-API-APP-NAME":            c.creds.AppID,
				"X-EBAY-API-DEV-NAME":            c.creds.DevID,
				"X-EBAY-API-CERT-NAME":           c.creds.CertID,
			}).
			SetBody(append([]byte(xml.Header), body...)).
			Post(c.endpoint)
		if err != nil {
			return marketplace.Transient(fmt.Errorf("ebay %s failed: %w", callName, err))
		}
		if res.StatusCode() >= 500 {
			return marketplace.Transient(fmt.Errorf("ebay %s failed (status: %d)", callName, res.StatusCode()))
		}
		if err := xml.Unmarshal(res.Body(), resp); err != nil {
			return fmt.Errorf("failed to decode ebay %s response (status: %d): %w", callName, res.StatusCode(), err)
		}
		return nil
	})
}

// Authenticate checks that all credentials are configured and verifies
// them with GetUser.
func (c *Client) Authenticate(ctx context.Context) (Session, error) {
	if missing := c.creds.Missing(); len(missing) > 0 {
		return Session{}, fmt.Errorf("%w: Fehlende eBay Credentials: %s", marketplace.ErrAuthFailed, strings.Join(missing, ", "))
	}

	var resp getUserResponse
	req := getUserRequest{Xmlns: xmlns, Credentials: c.credentials()}
	if err := c.call(ctx, "GetUser", req, &resp); err != nil {
		return Session{}, err
	}
	if errs, _ := resp.split(); len(errs) > 0 {
		return Session{}, fmt.Errorf("%w: %s", marketplace.ErrAuthFailed, errs[0].Message())
	}
	if resp.User.UserID == "" {
		return Session{}, fmt.Errorf("%w: Benutzerinformationen konnten nicht abgerufen werden", marketplace.ErrAuthFailed)
	}

	s := Session{UserID: resp.User.UserID, VerifiedAt: time.Now()}
	c.mu.Lock()
	c.session = &s
	c.mu.Unlock()
	log.Info().Str("user", s.UserID).Msg("ebay credentials verified")
	return s, nil
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

// Categories returns the site's category tree up to four levels deep.
func (c *Client) Categories(ctx context.Context, s Session) ([]Category, error) {
	var resp getCategoriesResponse
	req := getCategoriesRequest{
		Xmlns:          xmlns,
		Credentials:    c.credentials(),
		DetailLevel:    "ReturnAll",
		CategorySiteID: siteID,
		LevelLimit:     4,
	}
	if err := c.call(ctx, "GetCategories", req, &resp); err != nil {
		return nil, err
	}
	if errs, _ := resp.split(); len(errs) > 0 {
		return nil, marketplace.Rejected("%s", errs[0].Message())
	}
	return resp.Categories, nil
}

// SelectCategory picks the category for a book with the given description,
// falling back to FallbackCategory when the lookup fails.
func (c *Client) SelectCategory(ctx context.Context, s Session, description string) string {
	categories, err := c.Categories(ctx, s)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch ebay categories")
		return FallbackCategory
	}
	return BestCategory(categories, description)
}

// CreateListing submits a fixed price listing and returns its ItemID.
func (c *Client) CreateListing(ctx context.Context, s Session, item Item) (string, []string, error) {
	var resp addFixedPriceItemResponse
	req := addFixedPriceItemRequest{Xmlns: xmlns, Credentials: c.credentials(), Item: item}
	if err := c.call(ctx, "AddFixedPriceItem", req, &resp); err != nil {
		return "", nil, err
	}

	errs, warns := resp.split()
	warnings := make([]string, 0, len(warns))
	for _, w := range warns {
		warnings = append(warnings, w.Message())
	}
	if len(warnings) > 0 {
		log.Warn().Strs("warnings", warnings).Msg("ebay listing warnings")
	}
	if len(errs) > 0 {
		if errs[0].ErrorCode == ErrorCodeCreditCard {
			return "", warnings, marketplace.Rejected("%s", creditCardHint)
		}
		return "", warnings, marketplace.Rejected("%s", errs[0].Message())
	}
	if resp.ItemID == "" {
		return "", warnings, marketplace.Rejected("Keine Item-ID in der API-Antwort")
	}
	return resp.ItemID, warnings, nil
}

// ListingStatus returns the selling state of an item, like Active or Completed.
func (c *Client) ListingStatus(ctx context.Context, s Session, itemID string) (string, error) {
	var resp getItemResponse
	req := getItemRequest{Xmlns: xmlns, Credentials: c.credentials(), ItemID: itemID}
	if err := c.call(ctx, "GetItem", req, &resp); err != nil {
		return "", err
	}
	if errs, _ := resp.split(); len(errs) > 0 {
		return "", marketplace.Rejected("%s", errs[0].Message())
	}
	return resp.Item.ListingStatus, nil
}

// Publish validates rec, picks its category and lists it.
func (c *Client) Publish(ctx context.Context, rec *book.Record) marketplace.Result {
	if errs := marketplace.Validate(rec, true); len(errs) > 0 {
		return marketplace.ValidationFailure(errs)
	}

	s, err := c.EnsureSession(ctx)
	if err != nil {
		log.Error().Err(err).Int64("bookID", rec.ID).Msg("ebay authentication failed")
		return marketplace.FromError("Fehler bei der Verbindung zu eBay", err)
	}

	categoryID := c.SelectCategory(ctx, s, rec.Description)
	item := BuildListing(rec, categoryID, ListingOpts{PostalCode: c.postalCode, Sandbox: c.sandbox})
	if missing := item.missingFields(); len(missing) > 0 {
		errs := make([]string, len(missing))
		for i, f := range missing {
			errs[i] = "Fehlendes Pflichtfeld: " + f
		}
		return marketplace.ValidationFailure(errs)
	}

	log.Info().Int64("bookID", rec.ID).Str("category", categoryID).Msg("creating ebay listing")
	itemID, warnings, err := c.CreateListing(ctx, s, item)
	if err != nil {
		log.Error().Err(err).Int64("bookID", rec.ID).Msg("ebay listing failed")
		res := marketplace.FromError("Fehler beim Erstellen des eBay Listings", err)
		res.Warnings = warnings
		return res
	}
	res := marketplace.Accepted(itemID, "listed", "Artikel erfolgreich bei eBay eingestellt")
	res.Warnings = warnings
	return res
}

// CheckStatus reports the selling state of itemID.
func (c *Client) CheckStatus(ctx context.Context, itemID string) marketplace.Result {
	s, err := c.EnsureSession(ctx)
	if err != nil {
		return marketplace.FromError("Fehler bei der Verbindung zu eBay", err)
	}
	status, err := c.ListingStatus(ctx, s, itemID)
	if err != nil {
		return marketplace.FromError("Fehler beim Abrufen des Artikelstatus", err)
	}
	return marketplace.Accepted(itemID, status, "Artikelstatus: "+status)
}

// Verify checks the credentials with a fresh GetUser call.
func (c *Client) Verify(ctx context.Context) marketplace.Result {
	s, err := c.Authenticate(ctx)
	if err != nil {
		if errors.Is(err, marketplace.ErrAuthFailed) {
			return marketplace.FromError("Ungültige eBay Credentials", err)
		}
		return marketplace.FromError("Fehler bei der Verbindung zu eBay", err)
	}
	return marketplace.Accepted("", "", "Verbindung erfolgreich, Benutzer: "+s.UserID)
}
