package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSupportedCurrencies is used when SUPPORTED_CURRENCIES is not set.
var DefaultSupportedCurrencies = []string{
	"USD", "EUR", "GBP", "CAD", "AUD", "JPY", "CHF", "CNY",
	"INR", "MXN", "BRL", "KRW", "SGD", "NZD", "NOK", "SEK",
	"DKK", "PLN", "CZK", "HUF", "RUB", "TRY", "ZAR", "THB",
}

// Rate limit backends.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Config holds application configuration.
type Config struct {
	Port         string `validate:"required,numeric"`
	IsProduction bool
	LogLevel     string `validate:"oneof=debug info warn error"`
	Debug        bool

	DatabaseURL    string
	MigrationsPath string

	// Cache
	RedisURL                 string
	CacheTTL                 time.Duration `validate:"gt=0"`
	CacheMaxBytes            int           `validate:"gt=0"`
	CacheMaintenanceInterval time.Duration `validate:"gt=0"`

	// Auth and admission
	APIKey           string `validate:"required"`
	RateLimitPerHour int64  `validate:"gt=0"`
	RateLimitBackend string `validate:"oneof=memory redis"`
	AdminRateLimit   string `validate:"required"`

	// Currencies
	BaseCurrency        string   `validate:"len=3,alpha"`
	SupportedCurrencies []string `validate:"min=1,dive,len=3,alpha"`

	// Scheduling
	DailyFetchTime           string         `validate:"required"`
	Timezone                 string         `validate:"required"`
	Location                 *time.Location `validate:"-"`
	SchedulerDistributedLock bool

	// Providers
	ExchangeAPIKey  string
	FixerAPIKey     string
	ProviderTimeout time.Duration `validate:"gt=0"`

	// Events
	KafkaBrokers    []string
	KafkaRatesTopic string

	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEBUG", false)
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CACHE_TTL_SECONDS", 86400)
	v.SetDefault("CACHE_MAX_BYTES", 64*1024*1024)
	v.SetDefault("CACHE_MAINTENANCE_INTERVAL", "4h")
	v.SetDefault("API_KEY", "dev-api-key")
	v.SetDefault("RATE_LIMIT_PER_HOUR", 1000)
	v.SetDefault("RATE_LIMIT_BACKEND", RateLimitBackendMemory)
	v.SetDefault("ADMIN_RATE_LIMIT", "30-M")
	v.SetDefault("BASE_CURRENCY", "USD")
	v.SetDefault("SUPPORTED_CURRENCIES", strings.Join(DefaultSupportedCurrencies, ","))
	v.SetDefault("DAILY_FETCH_TIME", "06:00")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("SCHEDULER_DISTRIBUTED_LOCK", false)
	v.SetDefault("EXCHANGE_API_KEY", "")
	v.SetDefault("FIXER_API_KEY", "")
	v.SetDefault("PROVIDER_TIMEOUT", "30s")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_RATES_TOPIC", "fx.rates.refreshed")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                     v.GetString("PORT"),
		IsProduction:             v.GetBool("IS_PRODUCTION"),
		LogLevel:                 strings.ToLower(v.GetString("LOG_LEVEL")),
		Debug:                    v.GetBool("DEBUG"),
		DatabaseURL:              v.GetString("PGSQL_URL"),
		MigrationsPath:           v.GetString("MIGRATIONS_PATH"),
		RedisURL:                 v.GetString("REDIS_URL"),
		CacheTTL:                 time.Duration(v.GetInt64("CACHE_TTL_SECONDS")) * time.Second,
		CacheMaxBytes:            v.GetInt("CACHE_MAX_BYTES"),
		APIKey:                   v.GetString("API_KEY"),
		RateLimitPerHour:         v.GetInt64("RATE_LIMIT_PER_HOUR"),
		RateLimitBackend:         strings.ToLower(v.GetString("RATE_LIMIT_BACKEND")),
		AdminRateLimit:           v.GetString("ADMIN_RATE_LIMIT"),
		BaseCurrency:             strings.ToUpper(strings.TrimSpace(v.GetString("BASE_CURRENCY"))),
		SupportedCurrencies:      splitList(v.GetString("SUPPORTED_CURRENCIES"), strings.ToUpper),
		DailyFetchTime:           v.GetString("DAILY_FETCH_TIME"),
		Timezone:                 v.GetString("TIMEZONE"),
		SchedulerDistributedLock: v.GetBool("SCHEDULER_DISTRIBUTED_LOCK"),
		ExchangeAPIKey:           v.GetString("EXCHANGE_API_KEY"),
		FixerAPIKey:              v.GetString("FIXER_API_KEY"),
		KafkaBrokers:             splitList(v.GetString("KAFKA_BROKERS"), nil),
		KafkaRatesTopic:          v.GetString("KAFKA_RATES_TOPIC"),
		CORSAllowedOrigins:       splitList(v.GetString("CORS_ALLOWED_ORIGINS"), nil),
	}

	var err error
	if cfg.CacheMaintenanceInterval, err = parseDuration(v, "CACHE_MAINTENANCE_INTERVAL", 4*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ProviderTimeout, err = parseDuration(v, "PROVIDER_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set. Using the in-process cache; state is not shared between instances.")
		if cfg.RateLimitBackend == RateLimitBackendRedis {
			return nil, fmt.Errorf("RATE_LIMIT_BACKEND=redis requires REDIS_URL")
		}
		if cfg.SchedulerDistributedLock {
			return nil, fmt.Errorf("SCHEDULER_DISTRIBUTED_LOCK requires REDIS_URL")
		}
	}
	if cfg.APIKey == "dev-api-key" {
		if cfg.IsProduction {
			return nil, fmt.Errorf("API_KEY must be set in production")
		}
		log.Println("Warning: API_KEY not set. Using the development key.")
	}
	if cfg.ExchangeAPIKey == "" && cfg.FixerAPIKey == "" {
		log.Println("Warning: no provider credentials set. Only the free rate provider is enabled.")
	}

	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	baseSupported := false
	for _, c := range cfg.SupportedCurrencies {
		if c == cfg.BaseCurrency {
			baseSupported = true
			break
		}
	}
	if !baseSupported {
		return nil, fmt.Errorf("BASE_CURRENCY %s is not in SUPPORTED_CURRENCIES", cfg.BaseCurrency)
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func splitList(raw string, transform func(string) string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if transform != nil {
			part = transform(part)
		}
		out = append(out, part)
	}
	return out
}
