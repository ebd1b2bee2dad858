package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr    string `yaml:"http_addr" env:"HTTP_ADDR"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`

	// APIBaseURL is where the dashboard finds the subscriptions API.
	APIBaseURL       string        `yaml:"api_base_url" env:"API_BASE_URL"`
	RemoteTimeout    time.Duration `yaml:"remote_timeout" env:"REMOTE_TIMEOUT"`
	RemoteMaxRetries int           `yaml:"remote_max_retries" env:"REMOTE_MAX_RETRIES"`

	SessionSecret string        `yaml:"session_secret" env:"SESSION_SECRET"`
	SessionTTL    time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	SecureCookies bool          `yaml:"secure_cookies" env:"SECURE_COOKIES"`

	MetricsUser         string `yaml:"metrics_user" env:"METRICS_USER"`
	MetricsPasswordHash string `yaml:"metrics_password_hash" env:"METRICS_PASSWORD_HASH"`

	NATSURL     string   `yaml:"nats_url" env:"NATS_URL"`
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	RateLimit   int      `yaml:"rate_limit" env:"RATE_LIMIT"`
}

func defaults() *Config {
	return &Config{
		HTTPAddr:         ":8080",
		RemoteTimeout:    10 * time.Second,
		RemoteMaxRetries: 2,
		SessionTTL:       30 * time.Minute,
		CORSOrigins:      []string{"http://localhost:3000", "http://localhost:5173"},
		RateLimit:        100,
	}
}

// Load layers configuration: built-in defaults, then the YAML file named by
// CONFIG_FILE (if any), then .env, then the process environment.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) fill() {
	if c.APIBaseURL == "" {
		addr := c.HTTPAddr
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		c.APIBaseURL = "http://" + addr
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	if c.MetricsUser != "" && c.MetricsPasswordHash == "" {
		errs = append(errs, errors.New("METRICS_PASSWORD_HASH is required when METRICS_USER is set"))
	}
	if c.RemoteMaxRetries < 0 {
		errs = append(errs, errors.New("REMOTE_MAX_RETRIES must not be negative"))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}
