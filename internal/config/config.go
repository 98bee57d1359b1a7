// Package config defines the storefront service configuration.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/config/configloader"
)

var (
	_ configloader.Validator = (*Config)(nil)
	_ configloader.Defaulter = (*Config)(nil)
)

type Config struct {
	HTTPServer config.HTTPConfig      `koanf:"server"`
	Log        config.LogConfig       `koanf:"log"`
	PProf      config.PProfConfig     `koanf:"pprof"`
	Shutdown   config.ShutdownConfig  `koanf:"shutdown"`
	Telemetry  config.TelemetryConfig `koanf:"telemetry"`
	Nats       config.NATSConfig      `koanf:"nats"`
	Catalog    CatalogConfig          `koanf:"catalog"`
	Alert      AlertConfig            `koanf:"alert"`
	Session    SessionConfig          `koanf:"session"`
}

// CatalogConfig locates the remote product catalog.
type CatalogConfig struct {
	URL            string                      `koanf:"url"`
	Timeout        time.Duration               `koanf:"timeout"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
}

type AlertConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// SessionConfig controls the visitor session cookie and idle eviction.
type SessionConfig struct {
	CookieName    string        `koanf:"cookiename"`
	CookieSecure  bool          `koanf:"cookiesecure"`
	IdleTimeout   time.Duration `koanf:"idletimeout"`
	SweepInterval time.Duration `koanf:"sweepinterval"`
}

// Defaults are the built-in values; config.yaml, .env and STOREFRONT_* variables
// override them in that order.
func (c *Config) Defaults() map[string]any {
	return map[string]any{
		"server.port":               8080,
		"server.maxheaderbytes":     1 << 20,
		"server.timeout.read":       "5s",
		"server.timeout.write":      "10s",
		"server.timeout.idle":       "120s",
		"server.timeout.readheader": "2s",

		"log.level":        "info",
		"pprof.enabled":    false,
		"pprof.addr":       "localhost:6060",
		"shutdown.timeout": "5s",

		"telemetry.traces.otlphttp.timeout": "5s",
		"telemetry.metrics.enabled":         true,
		"telemetry.metrics.path":            "/metrics",
		"nats.timeout":                      "5s",
		"nats.stream":                       "STOREFRONT",

		"catalog.url":                                "https://fakestoreapi.com/products",
		"catalog.timeout":                            "10s",
		"catalog.circuitbreaker.consecutivefailures": 3,
		"catalog.circuitbreaker.errorratepercent":    50,
		"catalog.circuitbreaker.opentimeout":         "30s",
		"catalog.circuitbreaker.halfopenrequests":    1,

		"alert.ttl":             "3s",
		"session.cookiename":    "sf_session",
		"session.cookiesecure":  false,
		"session.idletimeout":   "30m",
		"session.sweepinterval": "1m",
	}
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Nats.String())

	b.WriteString("\n--- Catalog ---\n")
	b.WriteString(fmt.Sprintf("  url: %s\n", c.Catalog.URL))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Catalog.Timeout))
	b.WriteString(c.Catalog.CircuitBreaker.String())

	b.WriteString("\n--- Application Behavior ---\n")
	b.WriteString(fmt.Sprintf("  alert.ttl: %s\n", c.Alert.TTL))
	b.WriteString(fmt.Sprintf("  session.cookiename: %s\n", c.Session.CookieName))
	b.WriteString(fmt.Sprintf("  session.cookiesecure: %t\n", c.Session.CookieSecure))
	b.WriteString(fmt.Sprintf("  session.idletimeout: %s\n", c.Session.IdleTimeout))
	b.WriteString(fmt.Sprintf("  session.sweepinterval: %s\n", c.Session.SweepInterval))
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Nats.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	if c.Alert.TTL <= 0 {
		return fmt.Errorf("alert.ttl must be greater than 0")
	}
	return c.Session.Validate()
}

func (c *CatalogConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("catalog.url must be an absolute http(s) URL: %q", c.URL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("catalog.timeout must be greater than 0")
	}
	return c.CircuitBreaker.Validate()
}

func (c *SessionConfig) Validate() error {
	if c.CookieName == "" {
		return fmt.Errorf("session.cookiename is not configured")
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("session.idletimeout must not be negative")
	}
	if c.IdleTimeout > 0 && c.SweepInterval <= 0 {
		return fmt.Errorf("session.sweepinterval must be greater than 0 when idle expiry is on")
	}
	return nil
}
