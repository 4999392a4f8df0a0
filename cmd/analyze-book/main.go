package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/raine/bookrelist/config"
	"github.com/raine/bookrelist/internal/analysis"
	"github.com/raine/bookrelist/internal/app"
	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/images"
	"github.com/raine/bookrelist/internal/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// fileSource reads local paths and downloads URLs.
type fileSource struct {
	downloader *images.Downloader
}

func (s fileSource) Load(ctx context.Context, ref string) ([]byte, error) {
	if images.IsURL(ref) {
		return s.downloader.Download(ctx, ref)
	}
	return os.ReadFile(ref)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <weight-grams> <image-path-or-url>...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY - Required\n")
		os.Exit(1)
	}

	weight, err := service.ParseWeight(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	refs := os.Args[2:]

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	orch, err := app.Analyzer(ctx, cfg, fileSource{downloader: images.NewDownloader()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create analyzer: %v\n", err)
		os.Exit(1)
	}

	res := orch.Analyze(ctx, 0, refs)
	rec := &book.Record{Weight: &weight, ImageKeys: refs}
	analysis.Apply(rec, res, orch.Now())

	out, err := json.MarshalIndent(struct {
		Book     *book.Record `json:"book"`
		Shipping any          `json:"shipping"`
	}{rec, service.Shipping(rec)}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if rec.ProcessingStatus == book.StatusError {
		fmt.Fprintf(os.Stderr, "Analysis failed: %s\n", rec.ProcessingError)
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "Price: %s EUR\n", strconv.FormatFloat(rec.Price, 'f', 2, 64))
}
