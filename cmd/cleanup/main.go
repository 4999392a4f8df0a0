package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/raine/bookrelist/config"
	"github.com/raine/bookrelist/internal/app"
	"github.com/raine/bookrelist/internal/cleanup"
	"github.com/raine/bookrelist/internal/images"
	"github.com/raine/bookrelist/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	statsOnly := len(os.Args) >= 2 && os.Args[1] == "stats"
	if len(os.Args) >= 2 && !statsOnly {
		fmt.Fprintf(os.Stderr, "Usage: %s [stats]\n", os.Args[0])
		os.Exit(1)
	}

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	books, err := storage.NewBookStore(cfg.Storage.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open book store: %v\n", err)
		os.Exit(1)
	}
	defer books.Close()

	store, err := images.NewDiskStore(cfg.Upload.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image store: %v\n", err)
		os.Exit(1)
	}
	c, closeCache, err := app.Cache(cfg.Cache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open cache: %v\n", err)
		os.Exit(1)
	}
	defer closeCache()

	cleaner := &cleanup.Cleaner{Keys: books, Images: store, Cache: c, OrphanAge: cfg.Upload.OrphanAge}
	ctx := context.Background()

	var out any
	if statsOnly {
		st, err := cleaner.Stats(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to collect stats: %v\n", err)
			os.Exit(1)
		}
		out = st
	} else {
		out = cleaner.Run(ctx)
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
