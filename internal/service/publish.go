package service

import (
	"context"
	"fmt"

	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/marketplace"
	"github.com/raine/bookrelist/internal/marketplace/booklooker"
	"github.com/raine/bookrelist/internal/notify"
	"github.com/raine/bookrelist/internal/shipping"
)

// Marketplace sync states stored on the record.
const (
	SyncPending  = "pending"
	SyncActive   = "active"
	SyncImported = "imported"
	SyncRejected = "rejected"
	SyncError    = "error"
)

const (
	nameBooklooker = "Booklooker"
	nameEbay       = "eBay"
)

func (s *Service) markSync(sync *book.MarketplaceSync, res marketplace.Result, okStatus string) {
	now := s.now()
	sync.LastSync = &now
	if res.Success {
		sync.Status = okStatus
		sync.ListingID = res.Handle
		sync.LastError = ""
		return
	}
	sync.Status = SyncError
	sync.LastError = res.Message
}

// PublishBooklooker uploads a record to Booklooker and stores the outcome on
// it. Marketplace failures are reported in the Result; the error is only set
// when the record could not be loaded or saved.
func (s *Service) PublishBooklooker(ctx context.Context, id int64) (*book.Record, marketplace.Result, error) {
	rec, err := s.books.Get(ctx, id)
	if err != nil {
		return nil, marketplace.Result{}, err
	}
	if rec.Price <= 0 {
		return rec, marketplace.Failure(marketplace.KindValidation,
			"Bitte setzen Sie einen gültigen Preis für das Buch (größer als 0)",
			"Preis muss größer als 0 sein"), nil
	}

	res := s.booklooker.Publish(ctx, rec)
	if res.Kind == marketplace.KindValidation {
		return rec, res, nil
	}
	s.markSync(&rec.Booklooker, res, SyncPending)
	if res.Success {
		rec.Booklooker.ImportStatus = res.Status
	}
	if err := s.save(ctx, rec); err != nil {
		return nil, res, err
	}
	s.notify(ctx, notify.PublishMessage(nameBooklooker, rec, res))
	return rec, res, nil
}

// BooklookerStatus polls the import of the record's last upload.
func (s *Service) BooklookerStatus(ctx context.Context, id int64) (*book.Record, marketplace.Result, error) {
	rec, err := s.books.Get(ctx, id)
	if err != nil {
		return nil, marketplace.Result{}, err
	}
	if rec.Booklooker.ListingID == "" || rec.Booklooker.Status == SyncError {
		return rec, marketplace.Failure(marketplace.KindValidation, "Kein aktiver Upload vorhanden"), nil
	}

	res := s.booklooker.CheckStatus(ctx, rec.Booklooker.ListingID)
	if res.Status == "" {
		// Nothing was learned about the import.
		return rec, res, nil
	}
	now := s.now()
	rec.Booklooker.ImportStatus = res.Status
	rec.Booklooker.LastSync = &now
	switch res.Status {
	case booklooker.StatusImported:
		rec.Booklooker.Status = SyncImported
		rec.Booklooker.LastError = ""
	case booklooker.StatusRejected, booklooker.StatusError:
		rec.Booklooker.Status = SyncRejected
		rec.Booklooker.LastError = res.Message
	}
	if err := s.save(ctx, rec); err != nil {
		return nil, res, err
	}
	return rec, res, nil
}

// PublishEbay lists a record on eBay and stores the item id on it.
func (s *Service) PublishEbay(ctx context.Context, id int64) (*book.Record, marketplace.Result, error) {
	rec, err := s.books.Get(ctx, id)
	if err != nil {
		return nil, marketplace.Result{}, err
	}
	if rec.Ebay.Status == SyncActive && rec.Ebay.ListingID != "" {
		return rec, marketplace.Failure(marketplace.KindValidation,
			fmt.Sprintf("Buch ist bereits bei eBay eingestellt (%s)", rec.Ebay.ListingID)), nil
	}

	res := s.ebay.Publish(ctx, rec)
	if res.Kind == marketplace.KindValidation {
		return rec, res, nil
	}
	s.markSync(&rec.Ebay, res, SyncActive)
	if err := s.save(ctx, rec); err != nil {
		return nil, res, err
	}
	s.notify(ctx, notify.PublishMessage(nameEbay, rec, res))
	return rec, res, nil
}

// EbayStatus reports the selling state of the record's listing.
func (s *Service) EbayStatus(ctx context.Context, id int64) (*book.Record, marketplace.Result, error) {
	rec, err := s.books.Get(ctx, id)
	if err != nil {
		return nil, marketplace.Result{}, err
	}
	if rec.Ebay.ListingID == "" {
		return rec, marketplace.Failure(marketplace.KindValidation, "Kein eBay Listing vorhanden"), nil
	}
	return rec, s.ebay.CheckStatus(ctx, rec.Ebay.ListingID), nil
}

// VerifyBooklooker checks the Booklooker credentials.
func (s *Service) VerifyBooklooker(ctx context.Context) marketplace.Result {
	return s.booklooker.Verify(ctx)
}

// VerifyEbay checks the eBay credentials.
func (s *Service) VerifyEbay(ctx context.Context) marketplace.Result {
	return s.ebay.Verify(ctx)
}

// Shipping quotes every carrier for the record's weight and dimensions.
func Shipping(rec *book.Record) shipping.Options {
	return shipping.Calculate(rec.Weight, rec.Dimensions)
}

func (s *Service) save(ctx context.Context, rec *book.Record) error {
	rec.UpdatedAt = s.now()
	if err := s.books.Update(ctx, rec); err != nil {
		return fmt.Errorf("failed to save book %d: %w", rec.ID, err)
	}
	return nil
}
