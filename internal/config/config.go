package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	LLM      LLMConfig
	Forecast ForecastConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver   string // "pgx" or "postgres"
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AppConfig struct {
	ExportDir string
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	CatalogTTLSeconds int
}

type LLMConfig struct {
	Provider       string // "openai", "gemini" or "none"
	Model          string
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// CallTimeout is the bound applied to every outbound model call.
func (c LLMConfig) CallTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type ForecastConfig struct {
	DefaultTimeframe  string
	MarketTemperature float64
	DemandTemperature float64
	BatchConcurrency  int
	HistoryDays       int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_EXPORT_DIR"))

		instance = fromViper()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("DB_DRIVER", "pgx")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "reseller")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("APP_EXPORT_DIR", "./data/exports")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_CATALOG_TTL_SECONDS", 300)
	viper.SetDefault("LLM_PROVIDER", "openai")
	viper.SetDefault("LLM_MODEL", "gpt-4o-mini")
	viper.SetDefault("LLM_API_KEY", "")
	viper.SetDefault("LLM_BASE_URL", "")
	viper.SetDefault("LLM_TIMEOUT_SECONDS", 20)
	viper.SetDefault("FORECAST_DEFAULT_TIMEFRAME", "30d")
	viper.SetDefault("FORECAST_MARKET_TEMPERATURE", 0.3)
	viper.SetDefault("FORECAST_DEMAND_TEMPERATURE", 0.2)
	viper.SetDefault("FORECAST_BATCH_CONCURRENCY", 4)
	viper.SetDefault("FORECAST_HISTORY_DAYS", 365)
	viper.SetDefault("STORAGE_ENABLED", false)
	viper.SetDefault("STORAGE_ENDPOINT", "")
	viper.SetDefault("STORAGE_ACCESS_KEY", "")
	viper.SetDefault("STORAGE_SECRET_KEY", "")
	viper.SetDefault("STORAGE_BUCKET", "forecast-reports")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PREFIX", "predictions/")
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			URL:      viper.GetString("DATABASE_URL"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		App: AppConfig{
			ExportDir: viper.GetString("APP_EXPORT_DIR"),
		},
		Cache: CacheConfig{
			Enabled:           viper.GetBool("CACHE_ENABLED"),
			RedisURL:          viper.GetString("REDIS_URL"),
			RedisHost:         viper.GetString("REDIS_HOST"),
			RedisPort:         viper.GetString("REDIS_PORT"),
			RedisPassword:     viper.GetString("REDIS_PASSWORD"),
			RedisDB:           viper.GetInt("REDIS_DB"),
			CatalogTTLSeconds: viper.GetInt("CACHE_CATALOG_TTL_SECONDS"),
		},
		LLM: LLMConfig{
			Provider:       viper.GetString("LLM_PROVIDER"),
			Model:          viper.GetString("LLM_MODEL"),
			APIKey:         viper.GetString("LLM_API_KEY"),
			BaseURL:        viper.GetString("LLM_BASE_URL"),
			TimeoutSeconds: viper.GetInt("LLM_TIMEOUT_SECONDS"),
		},
		Forecast: ForecastConfig{
			DefaultTimeframe:  viper.GetString("FORECAST_DEFAULT_TIMEFRAME"),
			MarketTemperature: viper.GetFloat64("FORECAST_MARKET_TEMPERATURE"),
			DemandTemperature: viper.GetFloat64("FORECAST_DEMAND_TEMPERATURE"),
			BatchConcurrency:  viper.GetInt("FORECAST_BATCH_CONCURRENCY"),
			HistoryDays:       viper.GetInt("FORECAST_HISTORY_DAYS"),
		},
		Storage: StorageConfig{
			Enabled:   viper.GetBool("STORAGE_ENABLED"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
		},
	}
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
