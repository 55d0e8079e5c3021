package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Scraper ScraperConfig
	Browser BrowserConfig
	Storage StorageConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	// ConcurrentLimit bounds how many browser instances may run at once.
	ConcurrentLimit int
	// RequestTimeout wraps an entire extraction, choreography included.
	RequestTimeout    time.Duration
	NavigationTimeout time.Duration
	LandmarkTimeout   time.Duration
}

type BrowserConfig struct {
	Headless bool
	Timeout  time.Duration
}

type StorageConfig struct {
	DataDir    string
	HistoryDir string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Best-effort: a missing .env file is fine in production.
	godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "3001"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Scraper: ScraperConfig{
			ConcurrentLimit:   getIntOrDefault("SCRAPER_CONCURRENT_LIMIT", 2),
			RequestTimeout:    getDurationOrDefault("SCRAPER_REQUEST_TIMEOUT", 3*time.Minute),
			NavigationTimeout: getDurationOrDefault("SCRAPER_NAVIGATION_TIMEOUT", 60*time.Second),
			LandmarkTimeout:   getDurationOrDefault("SCRAPER_LANDMARK_TIMEOUT", 30*time.Second),
		},
		Browser: BrowserConfig{
			Headless: getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:  getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			DataDir:    getEnvOrDefault("STORAGE_DATA_DIR", "data"),
			HistoryDir: getEnvOrDefault("STORAGE_HISTORY_DIR", "history"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.ConcurrentLimit < 1 {
		return fmt.Errorf("SCRAPER_CONCURRENT_LIMIT must be at least 1")
	}

	if c.Scraper.RequestTimeout < c.Scraper.NavigationTimeout {
		return fmt.Errorf("SCRAPER_REQUEST_TIMEOUT cannot be shorter than SCRAPER_NAVIGATION_TIMEOUT")
	}

	if c.Storage.DataDir == "" || c.Storage.HistoryDir == "" {
		return fmt.Errorf("storage directories cannot be empty")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
