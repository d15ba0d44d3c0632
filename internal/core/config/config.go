// Package config provides configuration management for routekeeper services.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

// ServerConfig holds configuration for the gRPC rule service.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MetricsAddr    string // empty disables the metrics listener
}

// CatalogConfig points at the optional catalog files. Empty paths select
// the embedded action catalog, an empty variable catalog and an empty user
// directory.
type CatalogConfig struct {
	ActionsFile   string
	VariablesFile string
	UsersFile     string
}

// PreviewConfig bounds editor previews and the editor sessions kept for
// them. A session idle for SessionTTL is forgotten; past MaxSessions the
// least recently used one is.
type PreviewConfig struct {
	Timeout     time.Duration
	SessionTTL  time.Duration
	MaxSessions int
}

// CompletionConfig controls in-process completion state. Finished steps
// and fired joins are remembered for Retention so late callers still get
// an already-completed answer.
type CompletionConfig struct {
	Retention   time.Duration
	MaxFinished int
}

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig
	Catalog    CatalogConfig
	Preview    PreviewConfig
	Completion CompletionConfig
}

// Addr returns the gRPC listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50061,
			RequestTimeout: 30 * time.Second,
			MetricsAddr:    ":9161",
		},
		Preview: PreviewConfig{
			Timeout:     2 * time.Second,
			SessionTTL:  30 * time.Minute,
			MaxSessions: 1024,
		},
		Completion: CompletionConfig{
			Retention:   15 * time.Minute,
			MaxFinished: 100000,
		},
	}
}

// DatabaseURL returns the database URL from RK_DB_URL, or fallback when the
// variable is unset. Credentials are environment-only, so the URL never
// comes from the config file.
func DatabaseURL(fallback string) string {
	if v := os.Getenv("RK_DB_URL"); v != "" {
		return v
	}
	return fallback
}

// hasCredentials reports whether a database URL embeds a password.
func hasCredentials(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return false
	}
	_, ok := u.User.Password()
	return ok
}
