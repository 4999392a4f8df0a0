package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	AppName     = "bookrelist"
	EnvFileName = "config.env"
)

// Config holds all settings read from the environment.
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Upload     UploadConfig
	Gemini     GeminiConfig
	Cache      CacheConfig
	Ebay       EbayConfig
	Booklooker BooklookerConfig
	Catalog    CatalogConfig
	Telegram   TelegramConfig
}

type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"300s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type StorageConfig struct {
	DBPath string `envconfig:"BOOKS_DB_PATH" default:"books.db"`
}

type UploadConfig struct {
	Dir          string   `envconfig:"UPLOAD_DIR" default:"uploads"`
	MaxFileSize  int64    `envconfig:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`
	Extensions   []string `envconfig:"UPLOAD_EXTENSIONS" default:".jpg,.jpeg,.png,.gif"`
	MaxImageEdge int      `envconfig:"UPLOAD_MAX_IMAGE_EDGE" default:"2048"`
	// OrphanAge is how old an unreferenced upload must be before cleanup removes it.
	OrphanAge time.Duration `envconfig:"UPLOAD_ORPHAN_AGE" default:"168h"`
}

type GeminiConfig struct {
	APIKey string `envconfig:"GEMINI_API_KEY"`
	Model  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-pro"`
}

type CacheConfig struct {
	Type        string        `envconfig:"CACHE_TYPE" default:"file"`
	Dir         string        `envconfig:"CACHE_DIR" default:"cache"`
	PriceTTL    time.Duration `envconfig:"CACHE_PRICE_TTL" default:"24h"`
	MetadataTTL time.Duration `envconfig:"CACHE_METADATA_TTL" default:"168h"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

type EbayConfig struct {
	AppID      string `envconfig:"EBAY_APP_ID"`
	DevID      string `envconfig:"EBAY_DEV_ID"`
	CertID     string `envconfig:"EBAY_CERT_ID"`
	Token      string `envconfig:"EBAY_TOKEN"`
	Sandbox    bool   `envconfig:"EBAY_SANDBOX" default:"true"`
	PostalCode string `envconfig:"POSTAL_CODE" default:"10115"`
}

type BooklookerConfig struct {
	APIKey  string `envconfig:"BOOKLOOKER_API_KEY"`
	BaseURL string `envconfig:"BOOKLOOKER_API_URL" default:"https://api.booklooker.de/2.0"`
}

type CatalogConfig struct {
	BaseURL   string        `envconfig:"OPENLIBRARY_URL" default:"https://openlibrary.org"`
	Timeout   time.Duration `envconfig:"OPENLIBRARY_TIMEOUT" default:"5s"`
	UserAgent string        `envconfig:"OPENLIBRARY_USER_AGENT" default:"bookrelist/1.0"`
}

// TelegramConfig enables operator notifications when both fields are set.
type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

// Address returns host:port for the HTTP listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Enabled reports whether Telegram notifications are configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

// requiredEnvVars lists the variables without which the server cannot analyze books.
var requiredEnvVars = []string{"GEMINI_API_KEY"}

// CheckRequired returns the names of required variables that are not set.
func CheckRequired() []string {
	var missing []string
	for _, v := range requiredEnvVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory, then from ./.env. Errors are ignored since the files may
// not exist.
func LoadEnvFile() {
	if configBase, err := os.UserConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
	}
	_ = godotenv.Load()
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
