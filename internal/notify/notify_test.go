package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/marketplace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestTelegramNotify(t *testing.T) {
	bot := &fakeBot{}
	n := NewTelegramWithAPI(bot, 42)

	require.NoError(t, n.Notify(context.Background(), "hallo"))
	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "hallo", msg.Text)

	bot.err = errors.New("blocked")
	assert.Error(t, n.Notify(context.Background(), "hallo"))
}

func TestMessages(t *testing.T) {
	rec := &book.Record{ID: 3, Title: "Momo", Author: "Michael Ende", Condition: book.ConditionGood, Price: 8, ProcessingStatus: book.StatusCompleted}
	assert.Equal(t, "📚 Buch #3 analysiert: Momo (Michael Ende)\nZustand: Good\nPreis: 8.00 EUR", AnalysisMessage(rec))

	rec.ProcessingStatus = book.StatusError
	rec.ProcessingError = "keine Bilder"
	assert.Contains(t, AnalysisMessage(rec), "fehlgeschlagen: keine Bilder")

	ok := marketplace.Accepted("book_3.txt", "FILE_RECEIVED", "")
	assert.Contains(t, PublishMessage("Booklooker", rec, ok), "book_3.txt")
	failed := marketplace.Failure(marketplace.KindRejected, "abgelehnt")
	assert.Contains(t, PublishMessage("eBay", rec, failed), "fehlgeschlagen: abgelehnt")
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var n Notifier = &r
	require.NoError(t, n.Notify(context.Background(), "eins"))
	assert.Equal(t, []string{"eins"}, r.All())
	assert.NoError(t, Nop{}.Notify(context.Background(), "x"))
}
