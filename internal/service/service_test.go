package service

import (
	"bytes"
	"context"
	"image/color"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/raine/bookrelist/internal/analysis"
	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/cache"
	"github.com/raine/bookrelist/internal/images"
	"github.com/raine/bookrelist/internal/llm"
	"github.com/raine/bookrelist/internal/marketplace"
	"github.com/raine/bookrelist/internal/notify"
	"github.com/raine/bookrelist/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelAnswer = "```json\n" + `{
  "metadata": {
    "deutscher_titel": "Momo",
    "autor": "Michael Ende",
    "isbn": "9783522202107",
    "verlag": "Thienemann",
    "erscheinungsjahr": 1973,
    "genre": "Roman"
  },
  "physical_properties": {"dimensions": {"length": 21, "width": 14, "height": null}},
  "condition_analysis": {"zustand_einschätzung": "Gut", "confidence_score": 0.8},
  "market_data": {
    "preisanalyse": {"empfehlung": {"verkaufspreis": {"optimal": "12-18 EUR"}}},
    "confidence_score": 0.6
  }
}` + "\n```"

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

// memRepo keeps records in memory and remembers every persisted status.
type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	books    map[int64]book.Record
	statuses map[int64][]book.Status
}

func newMemRepo() *memRepo {
	return &memRepo{books: map[int64]book.Record{}, statuses: map[int64][]book.Status{}}
}

func (r *memRepo) Create(ctx context.Context, rec *book.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.ID = r.nextID
	r.books[rec.ID] = *rec
	r.statuses[rec.ID] = append(r.statuses[rec.ID], rec.ProcessingStatus)
	return nil
}

func (r *memRepo) Get(ctx context.Context, id int64) (*book.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.books[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &rec, nil
}

func (r *memRepo) List(ctx context.Context) ([]*book.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*book.Record
	for _, rec := range r.books {
		rec := rec
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memRepo) Update(ctx context.Context, rec *book.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[rec.ID]; !ok {
		return storage.ErrNotFound
	}
	r.books[rec.ID] = *rec
	r.statuses[rec.ID] = append(r.statuses[rec.ID], rec.ProcessingStatus)
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.books, id)
	return nil
}

func (r *memRepo) history(id int64) []book.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]book.Status(nil), r.statuses[id]...)
}

type fakeMarket struct {
	PublishFunc     func(ctx context.Context, rec *book.Record) marketplace.Result
	CheckStatusFunc func(ctx context.Context, handle string) marketplace.Result
	VerifyFunc      func(ctx context.Context) marketplace.Result

	mu        sync.Mutex
	published []int64
}

func (f *fakeMarket) Publish(ctx context.Context, rec *book.Record) marketplace.Result {
	f.mu.Lock()
	f.published = append(f.published, rec.ID)
	f.mu.Unlock()
	if f.PublishFunc == nil {
		return marketplace.Accepted("handle-1", "ok", "ok")
	}
	return f.PublishFunc(ctx, rec)
}

func (f *fakeMarket) CheckStatus(ctx context.Context, handle string) marketplace.Result {
	return f.CheckStatusFunc(ctx, handle)
}

func (f *fakeMarket) Verify(ctx context.Context) marketplace.Result {
	return f.VerifyFunc(ctx)
}

func (f *fakeMarket) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

type testEnv struct {
	svc        *Service
	repo       *memRepo
	store      *images.DiskStore
	vision     *llm.MockVision
	cache      *cache.FileStore
	booklooker *fakeMarket
	ebay       *fakeMarket
	notifier   *notify.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := images.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	fc, err := cache.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	env := &testEnv{
		repo:       newMemRepo(),
		store:      store,
		vision:     &llm.MockVision{Text: modelAnswer},
		cache:      fc,
		booklooker: &fakeMarket{},
		ebay:       &fakeMarket{},
		notifier:   &notify.Recorder{},
	}
	orch := analysis.NewOrchestrator(env.vision, images.NewLoader(store, nil), analysis.NewEnricher(nil))
	orch.Now = func() time.Time { return fixedNow }

	env.svc = New(Deps{
		Books:      env.repo,
		Images:     store,
		Analyzer:   orch,
		Cache:      fc,
		Booklooker: env.booklooker,
		Ebay:       env.ebay,
		Notifier:   env.notifier,
		Limits:     UploadLimits{MaxFileSize: 1 << 20},
		Now:        func() time.Time { return fixedNow },
	})
	return env
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(20, 30, color.White), imaging.PNG))
	return buf.Bytes()
}

func uploadFile(t *testing.T, name string) UploadFile {
	data := pngImage(t)
	return UploadFile{Name: name, Size: int64(len(data)), Content: bytes.NewReader(data)}
}

func (env *testEnv) upload(t *testing.T) *book.Record {
	t.Helper()
	rec, err := env.svc.Upload(context.Background(), UploadInput{
		Files:  []UploadFile{uploadFile(t, "front.png"), uploadFile(t, "back.PNG")},
		Weight: "500",
	})
	require.NoError(t, err)
	return rec
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)
	rec := env.upload(t)

	assert.Equal(t, book.StatusCompleted, rec.ProcessingStatus)
	assert.Equal(t, []book.Status{book.StatusPending, book.StatusProcessing, book.StatusCompleted}, env.repo.history(rec.ID))
	assert.Equal(t, []int{2}, env.vision.Calls)

	assert.Equal(t, "Momo", rec.Title)
	assert.Equal(t, "Michael Ende", rec.Author)
	assert.Equal(t, 15.0, rec.Price)
	assert.Equal(t, 500.0, *rec.Weight)
	assert.Nil(t, rec.Dimensions, "height is missing")
	assert.Equal(t, book.ConditionGood, rec.Condition)
	require.Len(t, rec.ImageKeys, 2)
	assert.True(t, strings.HasSuffix(rec.ImageKeys[1], ".png"))

	files, err := env.store.List()
	require.NoError(t, err)
	assert.Len(t, files, 2)

	var price struct{ Recommended float64 }
	assert.True(t, cache.Lookup(context.Background(), env.cache, cache.ClassPrice, rec.ID, &price))
	assert.Equal(t, 15.0, price.Recommended)

	msgs := env.notifier.All()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Momo")
}

func TestUploadRejectsInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   UploadInput
		want string
	}{
		{"no files", UploadInput{Weight: "500"}, "Keine Bilder hochgeladen"},
		{"bad extension", UploadInput{Files: []UploadFile{{Name: "notes.txt", Size: 3, Content: strings.NewReader("abc")}}, Weight: "500"}, "Ungültige Datei"},
		{"too large", UploadInput{Files: []UploadFile{{Name: "a.jpg", Size: 2 << 20, Content: strings.NewReader("abc")}}, Weight: "500"}, "too large"},
		{"missing weight", UploadInput{Files: []UploadFile{uploadFile(t, "a.png")}}, "gültiges Gewicht"},
		{"decimal weight", UploadInput{Files: []UploadFile{uploadFile(t, "a.png")}, Weight: "12.5"}, "gültiges Gewicht"},
		{"zero weight", UploadInput{Files: []UploadFile{uploadFile(t, "a.png")}, Weight: "0"}, "gültiges Gewicht"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Upload(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	files, err := env.store.List()
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, 0, env.vision.CallCount())
}

func TestParseWeight(t *testing.T) {
	w, err := ParseWeight(" 750 ")
	require.NoError(t, err)
	assert.Equal(t, 750.0, w)

	for _, s := range []string{"", "-5", "abc", "1e3", "00"} {
		_, err := ParseWeight(s)
		assert.Error(t, err, s)
	}
}

func TestUploadAnalysisFailure(t *testing.T) {
	env := newTestEnv(t)
	env.vision.Text = "keine Ahnung"

	rec := env.upload(t)

	assert.Equal(t, book.StatusError, rec.ProcessingStatus)
	assert.Contains(t, rec.ProcessingError, llm.ErrMalformedResponse.Error())
	assert.Equal(t, "Wird analysiert...", rec.Title)
	assert.Equal(t, []book.Status{book.StatusPending, book.StatusProcessing, book.StatusError}, env.repo.history(rec.ID))

	var res llm.AnalysisResult
	assert.False(t, cache.Lookup(context.Background(), env.cache, cache.ClassMetadata, rec.ID, &res), "failures are not cached")
	assert.Contains(t, env.notifier.All()[0], "fehlgeschlagen")
}

func TestReanalyze(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := env.upload(t)

	_, err := env.svc.Update(ctx, rec.ID, UpdateInput{Price: book.FloatPtr(3)})
	require.NoError(t, err)

	got, err := env.svc.Reanalyze(ctx, rec.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, env.vision.CallCount(), "served from cache")
	assert.Equal(t, 15.0, got.Price)
	assert.Equal(t, book.StatusCompleted, got.ProcessingStatus)

	_, err = env.svc.Reanalyze(ctx, rec.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, env.vision.CallCount())

	_, err = env.svc.Reanalyze(ctx, 42, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReanalyzeClearsDimensions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.vision.Text = strings.Replace(modelAnswer, `"height": null`, `"height": 2`, 1)
	rec := env.upload(t)
	require.Equal(t, &book.Dimensions{Length: 21, Width: 14, Height: 2}, rec.Dimensions)

	env.vision.Text = modelAnswer
	got, err := env.svc.Reanalyze(ctx, rec.ID, false)
	require.NoError(t, err)
	assert.Nil(t, got.Dimensions)

	stored, err := env.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Dimensions)
}

func TestUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := env.upload(t)

	title := "  Momo (Sonderausgabe) "
	cond := book.ConditionVeryGood
	got, err := env.svc.Update(ctx, rec.ID, UpdateInput{
		Title:      &title,
		Condition:  &cond,
		Dimensions: &book.Dimensions{Length: 21, Width: 14, Height: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "Momo (Sonderausgabe)", got.Title)
	assert.Equal(t, book.ConditionVeryGood, got.Condition)
	assert.Equal(t, "Michael Ende", got.Author, "unset fields are kept")

	stored, err := env.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Title, stored.Title)

	bad := book.Condition("Zerfleddert")
	_, err = env.svc.Update(ctx, rec.ID, UpdateInput{Condition: &bad})
	assert.True(t, IsValidation(err))

	_, err = env.svc.Update(ctx, rec.ID, UpdateInput{Price: book.FloatPtr(-1)})
	assert.True(t, IsValidation(err))

	_, err = env.svc.Update(ctx, 99, UpdateInput{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := env.upload(t)

	require.NoError(t, env.svc.Delete(ctx, rec.ID))

	files, err := env.store.List()
	require.NoError(t, err)
	assert.Empty(t, files)
	var res llm.AnalysisResult
	assert.False(t, cache.Lookup(ctx, env.cache, cache.ClassMetadata, rec.ID, &res))

	assert.ErrorIs(t, env.svc.Delete(ctx, rec.ID), ErrNotFound)
	list, err := env.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPublishBooklooker(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := env.upload(t)

	env.booklooker.PublishFunc = func(ctx context.Context, rec *book.Record) marketplace.Result {
		return marketplace.Accepted("book_1.txt", "FILE_RECEIVED", "Datei empfangen")
	}
	got, res, err := env.svc.PublishBooklooker(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, SyncPending, got.Booklooker.Status)
	assert.Equal(t, "book_1.txt", got.Booklooker.ListingID)
	assert.Equal(t, "FILE_RECEIVED", got.Booklooker.ImportStatus)
	assert.Equal(t, fixedNow, *got.Booklooker.LastSync)

	env.booklooker.CheckStatusFunc = func(ctx context.Context, handle string) marketplace.Result {
		assert.Equal(t, "book_1.txt", handle)
		return marketplace.Accepted(handle, "IMPORTED", "Import erfolgreich")
	}
	got, res, err = env.svc.BooklookerStatus(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, SyncImported, got.Booklooker.Status)

	stored, err := env.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "IMPORTED", stored.Booklooker.ImportStatus)

	msgs := env.notifier.All()
	assert.Contains(t, msgs[len(msgs)-1], "Booklooker")
}

func TestPublishBooklookerRequiresPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := env.upload(t)
	_, err := env.svc.Update(ctx, rec.ID, UpdateInput{Price: book.FloatPtr(0)})
	require.NoError(t, err)

	_, res, err := env.svc.PublishBooklooker(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, marketplace.KindValidation, res.Kind)
	assert.Equal(t, 0, env.booklooker.calls())
}

func TestPublishBooklookerFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := env.upload(t)

	env.booklooker.PublishFunc = func(ctx context.Context, rec *book.Record) marketplace.Result {
		return marketplace.Failure(marketplace.KindConnection, "Verbindungsfehler: timeout")
	}
	got, res, err := env.svc.PublishBooklooker(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, SyncError, got.Booklooker.Status)
	assert.Equal(t, "Verbindungsfehler: timeout", got.Booklooker.LastError)

	_, res, err = env.svc.BooklookerStatus(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.KindValidation, res.Kind)
	assert.Equal(t, "Kein aktiver Upload vorhanden", res.Message)
}

func TestPublishEbay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := env.upload(t)

	env.ebay.PublishFunc = func(ctx context.Context, rec *book.Record) marketplace.Result {
		return marketplace.Accepted("110001", "listed", "Artikel eingestellt")
	}
	got, res, err := env.svc.PublishEbay(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, SyncActive, got.Ebay.Status)
	assert.Equal(t, "110001", got.Ebay.ListingID)

	_, res, err = env.svc.PublishEbay(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.KindValidation, res.Kind)
	assert.Equal(t, 1, env.ebay.calls(), "active listings are not listed twice")

	env.ebay.CheckStatusFunc = func(ctx context.Context, handle string) marketplace.Result {
		return marketplace.Accepted(handle, "Active", "")
	}
	_, res, err = env.svc.EbayStatus(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Active", res.Status)
}

func TestEbayStatusWithoutListing(t *testing.T) {
	env := newTestEnv(t)
	rec := env.upload(t)

	_, res, err := env.svc.EbayStatus(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.KindValidation, res.Kind)

	_, _, err = env.svc.EbayStatus(context.Background(), 77)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShipping(t *testing.T) {
	opts := Shipping(&book.Record{Weight: book.FloatPtr(500), Dimensions: &book.Dimensions{Length: 20, Width: 14, Height: 3}})
	assert.Empty(t, opts.Error)
	assert.NotEmpty(t, opts.Quotes)

	opts = Shipping(&book.Record{})
	assert.NotEmpty(t, opts.Error)
}
