package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"codeplay/internal/sandbox"
)

// Config holds all proxy configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Sandbox   SandboxConfig   `yaml:"sandbox"`
	Provision ProvisionConfig `yaml:"provision"`
	Database  DatabaseConfig  `yaml:"database"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Security  SecurityConfig  `yaml:"security"`
	TLS       TLSConfig       `yaml:"tls"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBody  int64         `yaml:"max_request_body_bytes"`
}

// SandboxConfig points at the Piston-compatible execution engine.
type SandboxConfig struct {
	URL            string         `yaml:"url"` // API root, e.g. http://piston:2000/api/v2
	RequestTimeout time.Duration  `yaml:"request_timeout"`
	Limits         sandbox.Limits `yaml:"limits"`
}

type ProvisionConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

type DatabaseConfig struct {
	DSN         string `yaml:"dsn"`
	AuditBuffer int    `yaml:"audit_buffer"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SecurityConfig struct {
	APIKeyHeader      string        `yaml:"api_key_header"`
	AllowedKeys       []string      `yaml:"allowed_keys"` // empty leaves the API open
	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
}

// TLSConfig controls HTTPS/TLS termination.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path comes from CONFIG_PATH or hardcoded default
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults for all configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second, // > sandbox request timeout
			ShutdownTimeout: 15 * time.Second,
			MaxRequestBody:  1 << 20, // 1MB
		},
		Sandbox: SandboxConfig{
			URL:            "http://piston:2000/api/v2",
			RequestTimeout: 10 * time.Second,
			Limits:         sandbox.DefaultLimits(),
		},
		Provision: ProvisionConfig{
			Enabled: true,
			Timeout: 5 * time.Minute,
		},
		Database: DatabaseConfig{
			AuditBuffer: 10000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Security: SecurityConfig{
			APIKeyHeader:      "X-API-Key",
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			AllowedOrigins:    []string{"*"},
		},
	}
}

// ApplyEnv overrides file values with PORT, PISTON_URL and API_KEYS
// (comma-separated) when set.
func (c *Config) ApplyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
		log.Info().Int("port", p).Msg("using port from environment")
	}
	if u := os.Getenv("PISTON_URL"); u != "" {
		c.Sandbox.URL = normalizeSandboxURL(u)
		log.Info().Str("url", c.Sandbox.URL).Msg("using sandbox URL from environment")
	}
	if keys := os.Getenv("API_KEYS"); keys != "" {
		c.Security.AllowedKeys = c.Security.AllowedKeys[:0]
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.Security.AllowedKeys = append(c.Security.AllowedKeys, k)
			}
		}
		log.Info().Int("keys", len(c.Security.AllowedKeys)).Msg("using API keys from environment")
	}
	return c.Validate()
}

// normalizeSandboxURL accepts a bare host URL (http://piston:2000) and
// appends the API root.
func normalizeSandboxURL(raw string) string {
	raw = strings.TrimRight(raw, "/")
	u, err := url.Parse(raw)
	if err != nil || u.Path != "" {
		return raw
	}
	return raw + "/api/v2"
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Sandbox.URL == "" {
		return fmt.Errorf("sandbox.url is required")
	}
	if u, err := url.Parse(c.Sandbox.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("sandbox.url must be an http(s) URL, got %q", c.Sandbox.URL)
	}
	if c.Sandbox.RequestTimeout <= 0 {
		return fmt.Errorf("sandbox.request_timeout must be > 0")
	}
	if err := c.Sandbox.Limits.Validate(); err != nil {
		return fmt.Errorf("sandbox.limits: %w", err)
	}
	if c.Security.RateLimitRequests < 1 {
		return fmt.Errorf("security.rate_limit_requests must be >= 1")
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("security.rate_limit_window must be >= 1s")
	}
	if len(c.Security.AllowedKeys) > 0 && c.Security.APIKeyHeader == "" {
		return fmt.Errorf("security.api_key_header is required when allowed_keys is set")
	}
	if c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("tls.cert_file and tls.key_file are required when TLS is enabled")
		}
	}
	if c.Database.DSN != "" && strings.Contains(c.Database.DSN, "sslmode=disable") {
		log.Warn().Msg("database DSN has sslmode=disable, connections to Postgres are unencrypted")
	}
	return nil
}

// Address returns the listen address string.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
