package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/raine/bookrelist/config"
	"github.com/raine/bookrelist/internal/app"
	"github.com/raine/bookrelist/internal/marketplace/booklooker"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <filename> [poll-seconds]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  BOOKLOOKER_API_KEY - Required\n")
		os.Exit(1)
	}
	filename := os.Args[1]
	var interval time.Duration
	if len(os.Args) >= 3 {
		d, err := time.ParseDuration(os.Args[2] + "s")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid poll interval: %v\n", err)
			os.Exit(1)
		}
		interval = d
	}

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	client := app.Booklooker(cfg.Booklooker)
	ctx := context.Background()

	for {
		res := client.CheckStatus(ctx, filename)
		if res.Status == "" {
			fmt.Fprintf(os.Stderr, "Error: %s\n", res.Message)
			os.Exit(1)
		}
		fmt.Printf("%s  %-12s %s\n", time.Now().Format("15:04:05"), res.Status, res.Message)

		switch res.Status {
		case booklooker.StatusImported:
			return
		case booklooker.StatusRejected, booklooker.StatusError:
			os.Exit(2)
		}
		if interval == 0 {
			return
		}
		time.Sleep(interval)
	}
}
