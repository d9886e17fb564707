// Package config handles proxy configuration from environment variables
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all proxy configuration
type Config struct {
	// Upstream CVE API
	APIBaseURL      string        `env:"API_BASE_URL" envDefault:"https://services.nvd.nist.gov/rest/json/cves/2.0"`
	APIKey          string        `env:"API_KEY"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`
	UserAgent       string        `env:"USER_AGENT" envDefault:"cve-cache-proxy/0.1.0"`

	// HTTP listener
	Port string `env:"PORT" envDefault:"3000"`

	Redis RedisConfig

	// CacheTTL is the entry lifetime in seconds
	CacheTTL     int  `env:"CACHE_TTL" envDefault:"3600"`
	SingleFlight bool `env:"SINGLE_FLIGHT" envDefault:"true"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// RedisConfig holds cache store connection settings
type RedisConfig struct {
	Addr     string `env:"REDIS_HOST" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the proxy cannot start with
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}

	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1-65535, got %q", c.Port)
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be a positive number of seconds, got %d", c.CacheTTL)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	return nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return net.JoinHostPort("", c.Port)
}

// CacheTTLDuration returns CacheTTL as a duration
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}
