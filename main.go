package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/raine/bookrelist/config"
	"github.com/raine/bookrelist/internal/api"
	"github.com/raine/bookrelist/internal/app"
	"github.com/raine/bookrelist/internal/images"
	"github.com/raine/bookrelist/internal/service"
	"github.com/raine/bookrelist/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const logFileName = "bookrelist.log"

func fatal(format string, args ...any) {
	log.Fatal().Msgf(format, args...)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	config.LoadEnvFile()

	if missing := config.CheckRequired(); len(missing) > 0 {
		fatal("missing required config: %s", strings.Join(missing, ", "))
	}

	// JOURNAL_STREAM is set by systemd when running as a service.
	// journald keeps the logs there, so skip the log file.
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fatal("failed to open log file: %v", err)
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("%v", err)
	}

	books, err := storage.NewBookStore(cfg.Storage.DBPath)
	if err != nil {
		fatal("failed to initialize book store: %v", err)
	}
	defer books.Close()
	log.Info().Str("dbPath", cfg.Storage.DBPath).Msg("book store initialized")

	store, err := images.NewDiskStore(cfg.Upload.Dir)
	if err != nil {
		fatal("failed to initialize image store: %v", err)
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	analyzer, err := app.Analyzer(ctx, cfg, images.NewLoader(store, images.NewDownloader()))
	if err != nil {
		fatal("failed to initialize gemini vision: %v", err)
	}
	log.Info().Str("model", cfg.Gemini.Model).Msg("gemini vision initialized")

	analysisCache, closeCache, err := app.Cache(cfg.Cache)
	if err != nil {
		fatal("failed to initialize cache: %v", err)
	}
	defer closeCache()

	svc := service.New(service.Deps{
		Books:      books,
		Images:     store,
		Analyzer:   analyzer,
		Cache:      analysisCache,
		Booklooker: app.Booklooker(cfg.Booklooker),
		Ebay:       app.Ebay(cfg.Ebay),
		Notifier:   app.Notifier(cfg.Telegram),
		Limits: service.UploadLimits{
			MaxFileSize: cfg.Upload.MaxFileSize,
			Extensions:  cfg.Upload.Extensions,
		},
	})

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      api.NewRouter(api.NewHandler(svc, store, api.UploadBodyLimit(cfg.Upload.MaxFileSize))),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("stopping http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
