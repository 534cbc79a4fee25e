package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "INGREDIENTSCOUT"

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Kroger      KrogerConfig      `mapstructure:"kroger"`
	Spoonacular SpoonacularConfig `mapstructure:"spoonacular"`
	Mongo       MongoConfig       `mapstructure:"mongo"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Scrape      ScrapeConfig      `mapstructure:"scrape"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port" validate:"required,numeric"`
	Environment    string   `mapstructure:"environment" validate:"required"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// KrogerConfig holds catalog API configuration
type KrogerConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	TokenURL       string        `mapstructure:"token_url" validate:"required,url"`
	ClientID       string        `mapstructure:"client_id" validate:"required"`
	ClientSecret   string        `mapstructure:"client_secret" validate:"required"`
	Scope          string        `mapstructure:"scope"`
	LocationID     string        `mapstructure:"location_id" validate:"required"`
	PageSize       int           `mapstructure:"page_size" validate:"gt=0"`
	MaxOffset      int           `mapstructure:"max_offset" validate:"gt=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	RateLimit      float64       `mapstructure:"rate_limit" validate:"gte=0"` // requests per second, 0 disables
	Burst          int           `mapstructure:"burst" validate:"gte=0"`
}

// SpoonacularConfig holds recipe API configuration
type SpoonacularConfig struct {
	BaseURL         string        `mapstructure:"base_url" validate:"required,url"`
	APIKeys         []string      `mapstructure:"api_keys" validate:"required,min=1,dive,required"`
	RecipeCount     int           `mapstructure:"recipe_count" validate:"gt=0"`
	RotationBackoff time.Duration `mapstructure:"rotation_backoff" validate:"gte=0"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

// MongoConfig holds document store configuration
type MongoConfig struct {
	URL                    string        `mapstructure:"url" validate:"required"`
	Database               string        `mapstructure:"database" validate:"required"`
	Collection             string        `mapstructure:"collection" validate:"required"`
	ServerSelectionTimeout time.Duration `mapstructure:"server_selection_timeout" validate:"gt=0"`
}

// CacheConfig holds credential store configuration
type CacheConfig struct {
	Type      string `mapstructure:"type" validate:"oneof=memory redis"`
	RedisURL  string `mapstructure:"redis_url" validate:"required_if=Type redis"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ScrapeConfig holds scrape run configuration
type ScrapeConfig struct {
	Concurrency int    `mapstructure:"concurrency" validate:"gt=0"`
	SourceID    string `mapstructure:"source_id" validate:"required"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ingredientscout/")

	// Environment variable settings, e.g. kroger.client_id becomes INGREDIENTSCOUT_KROGER_CLIENT_ID
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.Spoonacular.APIKeys = splitKeys(config.Spoonacular.APIKeys)

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a .env file from the working directory if present.
// Variables already set in the environment win.
func loadEnvFile() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values. Every key gets one so AutomaticEnv can bind it.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("log.level", "info")

	// Catalog API defaults
	v.SetDefault("kroger.base_url", "https://api.kroger.com/v1")
	v.SetDefault("kroger.token_url", "https://api.kroger.com/v1/connect/oauth2/token")
	v.SetDefault("kroger.client_id", "")
	v.SetDefault("kroger.client_secret", "")
	v.SetDefault("kroger.scope", "product.compact")
	v.SetDefault("kroger.location_id", "")
	v.SetDefault("kroger.page_size", 50)
	v.SetDefault("kroger.max_offset", 250)
	v.SetDefault("kroger.request_timeout", "10s")
	v.SetDefault("kroger.rate_limit", 0)
	v.SetDefault("kroger.burst", 1)

	// Recipe API defaults
	v.SetDefault("spoonacular.base_url", "https://api.spoonacular.com")
	v.SetDefault("spoonacular.api_keys", []string{})
	v.SetDefault("spoonacular.recipe_count", 100)
	v.SetDefault("spoonacular.rotation_backoff", "2s")
	v.SetDefault("spoonacular.request_timeout", "10s")

	// Document store defaults
	v.SetDefault("mongo.url", "")
	v.SetDefault("mongo.database", "")
	v.SetDefault("mongo.collection", "")
	v.SetDefault("mongo.server_selection_timeout", "3s")

	// Credential store defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.key_prefix", "ingredientscout:")

	v.SetDefault("scrape.concurrency", 16)
	v.SetDefault("scrape.source_id", "spoonacular")
}

// splitKeys flattens comma-separated entries and drops blanks
func splitKeys(raw []string) []string {
	keys := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, key := range strings.Split(entry, ",") {
			if key = strings.TrimSpace(key); key != "" {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// validate validates the configuration
func validate(config *Config) error {
	err := structValidator.Struct(config)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
