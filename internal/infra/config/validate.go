package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateDeployment(cfg, ve)
	validateServer(cfg, ve)
	validateUpstream(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateDeployment(cfg *Config, ve *ValidationError) {
	switch cfg.Deployment {
	case DeploymentServer, DeploymentEdge:
	case "":
		ve.Add("deployment must not be empty")
	default:
		// Custom deployments need their own catalog.
		if cfg.CatalogFile == "" {
			ve.Add("deployment %q has no embedded catalog (want: server, edge, or set catalog_file)", cfg.Deployment)
		}
	}
}

func validateServer(cfg *Config, ve *ValidationError) {
	s := cfg.Server
	if s.Addr == "" {
		ve.Add("server.addr must not be empty")
	} else if _, _, err := net.SplitHostPort(s.Addr); err != nil {
		ve.Add("server.addr %q is not a valid host:port", s.Addr)
	}
	if s.ReadHeaderTimeout <= 0 {
		ve.Add("server.read_header_timeout must be > 0")
	}
	if s.WriteTimeout <= 0 {
		ve.Add("server.write_timeout must be > 0")
	}
	if s.MaxBodyBytes <= 0 {
		ve.Add("server.max_body_bytes must be > 0")
	}
	for i, p := range s.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			ve.Add("server.trusted_proxies[%d] %q is not an IP or CIDR", i, p)
		}
	}
}

func validateUpstream(cfg *Config, ve *ValidationError) {
	u := cfg.Upstream
	if u.BaseURL == "" {
		ve.Add("upstream.base_url must not be empty")
	} else if parsed, err := url.Parse(u.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		ve.Add("upstream.base_url %q is not an absolute URL", u.BaseURL)
	}
	if u.RespTimeout <= 0 {
		ve.Add("upstream.resp_timeout must be > 0")
	}
	if u.ConnTimeout < 0 {
		ve.Add("upstream.conn_timeout must be >= 0")
	}
	if u.CircuitBreaker.Enabled {
		if u.CircuitBreaker.MaxFailures == 0 {
			ve.Add("upstream.circuit_breaker.max_failures must be > 0 when the breaker is enabled")
		}
		if u.CircuitBreaker.Timeout <= 0 {
			ve.Add("upstream.circuit_breaker.timeout must be > 0 when the breaker is enabled")
		}
	}
	if u.Pool.MaxIdleConns < 0 || u.Pool.MaxIdleConnsPerHost < 0 || u.Pool.MaxConnsPerHost < 0 {
		ve.Add("upstream.pool sizes must be >= 0")
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validLogFormats = map[string]bool{"text": true, "json": true}

func validateLogger(cfg *Config, ve *ValidationError) {
	l := cfg.Logger
	if !validLogLevels[strings.ToLower(l.Level)] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", l.Level)
	}
	if !validLogFormats[l.Format] {
		ve.Add("logger.format %q is invalid (want: text, json)", l.Format)
	}
	if l.Output == "" {
		ve.Add("logger.output must not be empty")
	}
	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		ve.Add("logger rotation settings must be >= 0")
	}
}

var validExporters = map[string]bool{"noop": true, "stdout": true}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	if !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is invalid (want: noop, stdout)", cfg.Tracer.Exporter)
	}
}
