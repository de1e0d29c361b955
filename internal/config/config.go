package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Browser BrowserConfig
	Scraper ScraperConfig
	Cache   CacheConfig
	Catalog CatalogConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type BrowserConfig struct {
	Headless       bool
	TimeoutSeconds int
	Proxy          string
}

type ScraperConfig struct {
	MaxResults        int
	NavTimeoutSeconds int
	SettleSeconds     int
	MinDelaySeconds   int
	MaxDelaySeconds   int
	Warmup            bool
}

type CacheConfig struct {
	Size       int
	TTLSeconds int
	// RedisAddr switches the result cache from in-process LRU to a shared
	// Redis instance when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type CatalogConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvInt("PORT", 8090),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 15)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 120)) * time.Second,
			IdleTimeout:  time.Duration(getEnvInt("SERVER_IDLE_TIMEOUT", 60)) * time.Second,
		},
		Browser: BrowserConfig{
			Headless:       getEnvBool("BROWSER_HEADLESS", true),
			TimeoutSeconds: getEnvInt("BROWSER_TIMEOUT", 60),
			Proxy:          getEnv("BROWSER_PROXY", ""),
		},
		Scraper: ScraperConfig{
			MaxResults:        getEnvInt("SCRAPER_MAX_RESULTS", 10),
			NavTimeoutSeconds: getEnvInt("SCRAPER_NAV_TIMEOUT", 60),
			SettleSeconds:     getEnvInt("SCRAPER_SETTLE", 5),
			MinDelaySeconds:   getEnvInt("SCRAPER_MIN_DELAY", 2),
			MaxDelaySeconds:   getEnvInt("SCRAPER_MAX_DELAY", 5),
			Warmup:            getEnvBool("SCRAPER_WARMUP", true),
		},
		Cache: CacheConfig{
			Size:          getEnvInt("CACHE_SIZE", 256),
			TTLSeconds:    getEnvInt("CACHE_TTL", 900),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Scraper.MaxResults < 1 {
		return fmt.Errorf("at least 1 result is required")
	}

	if c.Scraper.MinDelaySeconds < 0 || c.Scraper.MaxDelaySeconds < c.Scraper.MinDelaySeconds {
		return fmt.Errorf("invalid scraper delay range: %d-%d",
			c.Scraper.MinDelaySeconds, c.Scraper.MaxDelaySeconds)
	}

	if c.Cache.Size < 1 {
		return fmt.Errorf("cache size must be positive: %d", c.Cache.Size)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.Logging.Level)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
