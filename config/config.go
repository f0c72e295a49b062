package config

import (
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Server struct {
		// Address the console listens on
		Addr string `env:"SERVER_ADDR" envDefault:":8080"`

		// Key used to sign the browser session cookie
		SessionSecret string `env:"SESSION_SECRET" envDefault:"change-me"`

		// Origins allowed to call the JSON endpoints
		AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

		// Local sqlite file for session tokens and the upload failure log
		DatabasePath string `env:"DATABASE_PATH" envDefault:"data/console.db"`

		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	}

	Backend struct {
		URL            string `env:"BACKEND_URL" envDefault:"http://localhost:5000/api"`
		AdminsPath     string `env:"BACKEND_ADMINS_PATH" envDefault:"/admins"`
		UsersPath      string `env:"BACKEND_USERS_PATH" envDefault:"/users"`
		PropertiesPath string `env:"BACKEND_PROPERTIES_PATH" envDefault:"/properties"`
		ListingsPath   string `env:"BACKEND_LISTINGS_PATH" envDefault:"/houses"`
		ReportsPath    string `env:"BACKEND_REPORTS_PATH" envDefault:"/reports"`
	}

	Storage struct {
		// Leave empty to run without uploads
		Endpoint  string `env:"STORAGE_ENDPOINT"`
		AccessKey string `env:"STORAGE_ACCESS_KEY"`
		SecretKey string `env:"STORAGE_SECRET_KEY"`
		Bucket    string `env:"STORAGE_BUCKET" envDefault:"housing"`
		UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"true"`

		// Base of the public object URLs, defaults to the endpoint
		PublicURL string `env:"STORAGE_PUBLIC_URL"`

		// Per-file cap in bytes
		MaxFileSize int64 `env:"STORAGE_MAX_FILE_SIZE" envDefault:"10485760"`
	}

	Geocoding struct {
		Enabled   bool          `env:"GEOCODING_ENABLED" envDefault:"false"`
		BaseURL   string        `env:"GEOCODING_URL" envDefault:"https://nominatim.openstreetmap.org"`
		UserAgent string        `env:"GEOCODING_USER_AGENT" envDefault:"HousingAdminConsole/1.0"`
		CacheFile string        `env:"GEOCODING_CACHE_FILE" envDefault:"cache/geocoding.json"`
		Interval  time.Duration `env:"GEOCODING_INTERVAL" envDefault:"1s"`
	}

	Maintenance struct {
		// Tokens not refreshed for this long are purged
		TokenRetention time.Duration `env:"TOKEN_RETENTION" envDefault:"168h"`

		// Upload failures older than this are pruned
		FailureRetention time.Duration `env:"FAILURE_RETENTION" envDefault:"720h"`

		Interval time.Duration `env:"MAINTENANCE_INTERVAL" envDefault:"1h"`
	}

	Failures struct {
		QueueSize  int           `env:"FAILURE_QUEUE_SIZE" envDefault:"100"`
		MaxRetries int           `env:"FAILURE_MAX_RETRIES" envDefault:"3"`
		RetryDelay time.Duration `env:"FAILURE_RETRY_DELAY" envDefault:"1s"`
	}

	Status struct {
		// Optional JSON file restricting status transitions
		TransitionsFile string `env:"STATUS_TRANSITIONS_FILE"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StorageConfigured reports whether uploads can be stored.
func (c *Config) StorageConfigured() bool {
	return c.Storage.Endpoint != "" && c.Storage.AccessKey != ""
}
