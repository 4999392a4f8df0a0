// Package notify sends short operator messages about finished work.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/marketplace"
)

// Notifier delivers a plain text message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(ctx context.Context, text string) error { return nil }

// AnalysisMessage describes the outcome of an analysis run.
func AnalysisMessage(rec *book.Record) string {
	if rec.ProcessingStatus == book.StatusError {
		return fmt.Sprintf("❌ Analyse von Buch #%d fehlgeschlagen: %s", rec.ID, rec.ProcessingError)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📚 Buch #%d analysiert: %s", rec.ID, rec.Title)
	if rec.Author != "" {
		fmt.Fprintf(&b, " (%s)", rec.Author)
	}
	fmt.Fprintf(&b, "\nZustand: %s\nPreis: %.2f EUR", rec.Condition, rec.Price)
	return b.String()
}

// PublishMessage describes a marketplace upload.
func PublishMessage(market string, rec *book.Record, res marketplace.Result) string {
	if res.Success {
		return fmt.Sprintf("✅ %s: Buch #%d %q hochgeladen (%s)", market, rec.ID, rec.Title, res.Handle)
	}
	return fmt.Sprintf("⚠️ %s: Upload von Buch #%d fehlgeschlagen: %s", market, rec.ID, res.Message)
}

// Recorder keeps messages in memory. Used in tests.
type Recorder struct {
	mu       sync.Mutex
	Messages []string
	Err      error
}

func (r *Recorder) Notify(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, text)
	return r.Err
}

// All returns a copy of the recorded messages.
func (r *Recorder) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Messages...)
}
