// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront/cart"
	"storefront/checkout"
)

// Cart persistence backends.
const (
	PersistMemory = "memory"
	PersistRedis  = "redis"
	PersistMongo  = "mongo"
)

type Config struct {
	Port             string
	APIBaseURL       string
	APITimeout       time.Duration
	CartKey          cart.KeyFunc
	ClearPolicy      checkout.Policy
	CartPersist      string
	CartTTL          time.Duration
	RedisURL         string
	RedisPassword    string
	MongoURL         string
	MongoDatabase    string
	OrderRate        float64
	OrderConcurrency int
	RateLimit        float64
	AllowedOrigins   []string
	LogLevel         string
	SecureCookie     bool
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return FromEnv(os.Getenv)
}

// FromEnv reads the configuration through getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		APIBaseURL:    get("API_BASE_URL", "http://localhost:5000/api"),
		CartPersist:   get("CART_PERSIST", PersistMemory),
		RedisURL:      get("REDIS_URL", ""),
		RedisPassword: getenv("REDIS_PASSWORD"),
		MongoURL:      get("MONGO_URL", ""),
		MongoDatabase: get("MONGO_DB", "storefront"),
		LogLevel:      get("LOG_LEVEL", "info"),
	}

	cfg.Port = get("PORT", ":8080")
	if cfg.Port[0] != ':' {
		cfg.Port = ":" + cfg.Port
	}

	var err error
	if cfg.APITimeout, err = time.ParseDuration(get("API_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("API_TIMEOUT: %w", err)
	}
	if cfg.CartTTL, err = time.ParseDuration(get("CART_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("CART_TTL: %w", err)
	}
	if cfg.CartKey, err = cart.KeyFuncFor(get("CART_KEY", "product")); err != nil {
		return nil, fmt.Errorf("CART_KEY: %w", err)
	}
	if cfg.ClearPolicy, err = checkout.ParsePolicy(get("CLEAR_POLICY", "always")); err != nil {
		return nil, fmt.Errorf("CLEAR_POLICY: %w", err)
	}
	if cfg.OrderRate, err = strconv.ParseFloat(get("ORDER_RATE", "10"), 64); err != nil || cfg.OrderRate <= 0 {
		return nil, fmt.Errorf("ORDER_RATE: must be a positive number")
	}
	if cfg.OrderConcurrency, err = strconv.Atoi(get("ORDER_CONCURRENCY", "0")); err != nil || cfg.OrderConcurrency < 0 {
		return nil, fmt.Errorf("ORDER_CONCURRENCY: must be zero or a positive integer")
	}
	if cfg.RateLimit, err = strconv.ParseFloat(get("RATE_LIMIT", "20"), 64); err != nil || cfg.RateLimit <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT: must be a positive number")
	}
	if cfg.SecureCookie, err = strconv.ParseBool(get("SECURE_COOKIE", "false")); err != nil {
		return nil, fmt.Errorf("SECURE_COOKIE: %w", err)
	}

	switch cfg.CartPersist {
	case PersistMemory:
	case PersistRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("CART_PERSIST=redis needs REDIS_URL")
		}
	case PersistMongo:
		if cfg.MongoURL == "" {
			return nil, fmt.Errorf("CART_PERSIST=mongo needs MONGO_URL")
		}
	default:
		return nil, fmt.Errorf("CART_PERSIST: unknown backend %q", cfg.CartPersist)
	}

	for _, o := range strings.Split(get("ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}
	return cfg, nil
}
