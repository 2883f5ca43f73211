package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"wingman-relay/internal/domain"
)

// Deployment names with an embedded catalog.
const (
	DeploymentServer = "server"
	DeploymentEdge   = "edge"
)

// Config is the top-level application configuration.
type Config struct {
	Deployment  string           `yaml:"deployment"`             // "server" or "edge"
	CatalogFile string           `yaml:"catalog_file,omitempty"` // overrides the embedded catalog
	Server      ServerConfig     `yaml:"server"`
	Upstream    UpstreamConfig   `yaml:"upstream"`
	Credential  CredentialConfig `yaml:"credential"`
	Logger      LoggerConfig     `yaml:"logger"`
	Tracer      TracerConfig     `yaml:"tracer"`
	Includes    []string         `yaml:"includes,omitempty"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	TrustedProxies    []string      `yaml:"trusted_proxies,omitempty"` // honored for X-Forwarded-For in access logs
}

// UpstreamConfig holds settings for the hosted model provider.
type UpstreamConfig struct {
	Name           string               `yaml:"name"`
	BaseURL        string               `yaml:"base_url"`
	Referer        string               `yaml:"referer"`
	Title          string               `yaml:"title"`
	ConnTimeout    time.Duration        `yaml:"conn_timeout"`
	RespTimeout    time.Duration        `yaml:"resp_timeout"`
	Pool           PoolConfig           `yaml:"pool"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for upstream calls.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// PoolConfig holds HTTP connection pool settings for the upstream client.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// CredentialConfig holds the syntactic credential check.
type CredentialConfig struct {
	Prefix string `yaml:"prefix"`
}

// LoggerConfig holds logging settings.
// MaxSizeMB, MaxBackups, MaxAgeDays and Compress apply to file output only.
type LoggerConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Deployment: DeploymentEdge,
		Server: ServerConfig{
			Addr:              ":8787",
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      180 * time.Second,
			MaxBodyBytes:      1 << 20,
		},
		Upstream: UpstreamConfig{
			Name:        "openrouter",
			BaseURL:     "https://openrouter.ai/api/v1",
			Referer:     "https://wingman-ai.vercel.app",
			Title:       "Wingman AI",
			ConnTimeout: 30 * time.Second,
			RespTimeout: 120 * time.Second,
			// Opt-in: an open breaker masks the upstream's own status.
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     false,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Credential: CredentialConfig{
			Prefix: "sk-",
		},
		Logger: LoggerConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 14,
			Compress:   true,
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file and applies env var overrides.
// A missing file is not an error: defaults plus env overrides are used.
// Read, parse and include failures wrap domain.ErrConfigLoad; invalid values
// are reported as a *ValidationError.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: read config: %w", domain.ErrConfigLoad, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve config path: %w", domain.ErrConfigLoad, err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfigLoad, err)
	}

	// First pass: unmarshal to get the includes list.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config: %w", domain.ErrConfigLoad, err)
	}

	if len(cfg.Includes) > 0 {
		visited := map[string]bool{absPath: true}
		if err := processIncludes(cfg, filepath.Dir(absPath), visited, 0); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrConfigLoad, err)
		}

		// Second pass: the main file takes precedence over its includes.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config (second pass): %w", domain.ErrConfigLoad, err)
		}
		cfg.Includes = nil
	}

	// A relative catalog_file is resolved against the config file's directory.
	if cfg.CatalogFile != "" && !filepath.IsAbs(cfg.CatalogFile) {
		cfg.CatalogFile = filepath.Join(filepath.Dir(absPath), cfg.CatalogFile)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps WINGMAN_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WINGMAN_DEPLOYMENT"); v != "" {
		cfg.Deployment = strings.ToLower(v)
	}
	if v := os.Getenv("WINGMAN_CATALOG_FILE"); v != "" {
		cfg.CatalogFile = v
	}
	if v := os.Getenv("WINGMAN_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("WINGMAN_SERVER_TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = splitAndTrim(v, ",")
	}
	if v := os.Getenv("WINGMAN_SERVER_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Server.MaxBodyBytes = n
		}
	}
	if v := os.Getenv("WINGMAN_UPSTREAM_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("WINGMAN_UPSTREAM_REFERER"); v != "" {
		cfg.Upstream.Referer = v
	}
	if v := os.Getenv("WINGMAN_UPSTREAM_TITLE"); v != "" {
		cfg.Upstream.Title = v
	}
	if v := os.Getenv("WINGMAN_UPSTREAM_CONN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Upstream.ConnTimeout = d
		}
	}
	if v := os.Getenv("WINGMAN_UPSTREAM_RESP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Upstream.RespTimeout = d
		}
	}
	switch os.Getenv("WINGMAN_CIRCUIT_BREAKER_ENABLED") {
	case "true":
		cfg.Upstream.CircuitBreaker.Enabled = true
	case "false":
		cfg.Upstream.CircuitBreaker.Enabled = false
	}
	if v := os.Getenv("WINGMAN_CIRCUIT_BREAKER_MAX_FAILURES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
			cfg.Upstream.CircuitBreaker.MaxFailures = uint32(n)
		}
	}
	if v, ok := os.LookupEnv("WINGMAN_CREDENTIAL_PREFIX"); ok {
		cfg.Credential.Prefix = v
	}
	if v := os.Getenv("WINGMAN_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("WINGMAN_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("WINGMAN_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("WINGMAN_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("WINGMAN_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
