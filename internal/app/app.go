// Package app builds the collaborators of the server and the command line
// tools from the configuration.
package app

import (
	"context"
	"fmt"

	"github.com/raine/bookrelist/config"
	"github.com/raine/bookrelist/internal/analysis"
	"github.com/raine/bookrelist/internal/cache"
	"github.com/raine/bookrelist/internal/llm"
	"github.com/raine/bookrelist/internal/marketplace/booklooker"
	"github.com/raine/bookrelist/internal/marketplace/ebay"
	"github.com/raine/bookrelist/internal/notify"
	"github.com/raine/bookrelist/internal/openlibrary"
	"github.com/rs/zerolog/log"
)

// Cache opens the configured cache backend. The returned close function is
// never nil.
func Cache(cfg config.CacheConfig) (cache.Store, func() error, error) {
	ttls := cache.TTLs{cache.ClassPrice: cfg.PriceTTL, cache.ClassMetadata: cfg.MetadataTTL}
	switch cfg.Type {
	case "redis":
		rs, err := cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, ttls)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis cache")
		return rs, rs.Close, nil
	case "file", "":
		fs, err := cache.NewFileStore(cfg.Dir, ttls)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dir", cfg.Dir).Msg("using file cache")
		return fs, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}

// Analyzer builds the Gemini backed orchestrator reading images from src.
func Analyzer(ctx context.Context, cfg *config.Config, src analysis.ImageSource) (*analysis.Orchestrator, error) {
	vision, err := llm.NewGeminiVision(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return nil, err
	}
	catalog := openlibrary.NewClient(openlibrary.ClientOpts{
		BaseURL:   cfg.Catalog.BaseURL,
		UserAgent: cfg.Catalog.UserAgent,
		Timeout:   cfg.Catalog.Timeout,
	})
	o := analysis.NewOrchestrator(vision, src, analysis.NewEnricher(catalog))
	o.MaxImageEdge = cfg.Upload.MaxImageEdge
	return o, nil
}

func Booklooker(cfg config.BooklookerConfig) *booklooker.Client {
	return booklooker.NewClient(booklooker.ClientOpts{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey})
}

func Ebay(cfg config.EbayConfig) *ebay.Client {
	return ebay.NewClient(ebay.ClientOpts{
		Credentials: ebay.Credentials{
			AppID:  cfg.AppID,
			DevID:  cfg.DevID,
			CertID: cfg.CertID,
			Token:  cfg.Token,
		},
		Sandbox:    cfg.Sandbox,
		PostalCode: cfg.PostalCode,
	})
}

// Notifier returns a Telegram notifier when configured. Failing to reach
// Telegram disables notifications instead of stopping the server.
func Notifier(cfg config.TelegramConfig) notify.Notifier {
	if !cfg.Enabled() {
		return notify.Nop{}
	}
	tg, err := notify.NewTelegram(cfg.BotToken, cfg.ChatID)
	if err != nil {
		log.Warn().Err(err).Msg("telegram notifications disabled")
		return notify.Nop{}
	}
	return tg
}
