package images

import (
	"context"
	"strings"
)

// Loader resolves image references: http(s) URLs are downloaded, everything
// else is read from the store.
type Loader struct {
	Store      Store
	Downloader *Downloader
}

func NewLoader(store Store, downloader *Downloader) *Loader {
	if downloader == nil {
		downloader = NewDownloader()
	}
	return &Loader{Store: store, Downloader: downloader}
}

// Load returns the bytes behind ref.
func (l *Loader) Load(ctx context.Context, ref string) ([]byte, error) {
	if IsURL(ref) {
		return l.Downloader.Download(ctx, ref)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Store.Read(ref)
}

// IsURL reports whether ref is an http(s) URL.
func IsURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
