// Package config loads server configuration from an optional YAML file with
// environment variable overrides. Every field has a working default so the
// server starts with no file and no env at all.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the server needs at startup.
type Config struct {
	// Port the HTTP server listens on.
	Port string `yaml:"port"`
	// RedisAddr is the redis host:port backing the session and credential
	// stores. Empty selects the in-memory stores (development only — the
	// snapshot then does not survive a server restart).
	RedisAddr string `yaml:"redisAddr"`
	// GitHubBaseURL overrides the GitHub API endpoint, e.g. a mock server.
	// Empty selects the public API.
	GitHubBaseURL string `yaml:"githubBaseUrl"`
	// RetryBudget is the total attempt count for transient GitHub failures.
	RetryBudget int `yaml:"retryBudget"`
	// BackoffBase is the linear backoff base between attempts.
	BackoffBase time.Duration `yaml:"backoffBase"`
	// OTelEnabled turns on OTLP trace/metric export.
	OTelEnabled bool `yaml:"otelEnabled"`
}

func defaults() Config {
	return Config{
		Port:        "8080",
		RetryBudget: 3,
		BackoffBase: time.Second,
	}
}

// Load reads the YAML file at path (skipped when path is empty or missing)
// and then applies env overrides: PORT, REDIS_ADDR, GITHUB_API_URL,
// RETRY_BUDGET, BACKOFF_BASE, OTEL_ENABLED.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("GITHUB_API_URL"); v != "" {
		cfg.GitHubBaseURL = v
	}
	if v := os.Getenv("RETRY_BUDGET"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse RETRY_BUDGET %q: %w", v, err)
		}
		cfg.RetryBudget = n
	}
	if v := os.Getenv("BACKOFF_BASE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse BACKOFF_BASE %q: %w", v, err)
		}
		cfg.BackoffBase = d
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parse OTEL_ENABLED %q: %w", v, err)
		}
		cfg.OTelEnabled = b
	}

	return &cfg, nil
}
