package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr = ":8080"
	defaultCacheTTL = 10 * time.Minute
	defaultLogLevel = "info"
)

// Config holds service settings. Values come from defaults, then an optional
// YAML file, then the environment.
type Config struct {
	HTTPAddr      string        `yaml:"http_addr"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	LogLevel      string        `yaml:"log_level"`
}

func Default() Config {
	return Config{
		HTTPAddr: defaultHTTPAddr,
		CacheTTL: defaultCacheTTL,
		LogLevel: defaultLogLevel,
	}
}

// Load reads path (skipped when empty) over the defaults and applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.HTTPAddr = readEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.RedisAddr = readEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = readEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = readEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.CacheTTL = readEnvDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.LogLevel = readEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// CacheEnabled reports whether a Redis address was configured.
func (c Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

func readEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func readEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func readEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
