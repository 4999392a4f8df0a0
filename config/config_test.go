package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, int64(20<<20), cfg.Upload.MaxFileSize)
	assert.Equal(t, []string{".jpg", ".jpeg", ".png", ".gif"}, cfg.Upload.Extensions)
	assert.Equal(t, 7*24*time.Hour, cfg.Upload.OrphanAge)
	assert.Equal(t, 24*time.Hour, cfg.Cache.PriceTTL)
	assert.Equal(t, "file", cfg.Cache.Type)
	assert.True(t, cfg.Ebay.Sandbox)
	assert.False(t, cfg.Telegram.Enabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CACHE_TYPE", "redis")
	t.Setenv("EBAY_SANDBOX", "false")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.False(t, cfg.Ebay.Sandbox)
	assert.True(t, cfg.Telegram.Enabled())

	t.Setenv("SERVER_PORT", "nope")
	_, err = Load()
	assert.Error(t, err)
}

func TestCheckRequired(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	assert.Equal(t, []string{"GEMINI_API_KEY"}, CheckRequired())

	t.Setenv("GEMINI_API_KEY", "key")
	assert.Empty(t, CheckRequired())
}
