package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults matching DefaultConfig
	d := DefaultConfig()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.metrics_addr", d.Server.MetricsAddr)
	v.SetDefault("catalog.actions_file", "")
	v.SetDefault("catalog.variables_file", "")
	v.SetDefault("catalog.users_file", "")
	v.SetDefault("preview.timeout", d.Preview.Timeout.String())
	v.SetDefault("preview.session_ttl", d.Preview.SessionTTL.String())
	v.SetDefault("preview.max_sessions", d.Preview.MaxSessions)
	v.SetDefault("completion.retention", d.Completion.Retention.String())
	v.SetDefault("completion.max_finished", d.Completion.MaxFinished)

	// Bind environment variables with RK_ prefix
	v.SetEnvPrefix("RK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MetricsAddr:    v.GetString("server.metrics_addr"),
		},
		Catalog: CatalogConfig{
			ActionsFile:   v.GetString("catalog.actions_file"),
			VariablesFile: v.GetString("catalog.variables_file"),
			UsersFile:     v.GetString("catalog.users_file"),
		},
		Preview: PreviewConfig{
			Timeout:     v.GetDuration("preview.timeout"),
			SessionTTL:  v.GetDuration("preview.session_ttl"),
			MaxSessions: v.GetInt("preview.max_sessions"),
		},
		Completion: CompletionConfig{
			Retention:   v.GetDuration("completion.retention"),
			MaxFinished: v.GetInt("completion.max_finished"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range and positive timeouts.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Preview.Timeout <= 0 {
		return fmt.Errorf("preview.timeout must be positive, got %v", cfg.Preview.Timeout)
	}
	if cfg.Preview.Timeout > cfg.Server.RequestTimeout {
		return fmt.Errorf("preview.timeout (%v) must not exceed request_timeout (%v)", cfg.Preview.Timeout, cfg.Server.RequestTimeout)
	}
	if cfg.Preview.SessionTTL <= 0 {
		return fmt.Errorf("preview.session_ttl must be positive, got %v", cfg.Preview.SessionTTL)
	}
	if cfg.Preview.MaxSessions <= 0 {
		return fmt.Errorf("preview.max_sessions must be positive, got %d", cfg.Preview.MaxSessions)
	}
	if cfg.Completion.Retention <= 0 {
		return fmt.Errorf("completion.retention must be positive, got %v", cfg.Completion.Retention)
	}
	if cfg.Completion.MaxFinished <= 0 {
		return fmt.Errorf("completion.max_finished must be positive, got %d", cfg.Completion.MaxFinished)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only database credentials.
func validateNoSecretsInConfig(v *viper.Viper) error {
	for _, key := range []string{"db_url", "database.url"} {
		if v.InConfig(key) && hasCredentials(v.GetString(key)) {
			return fmt.Errorf("database credentials not allowed in config files (use RK_DB_URL environment variable)")
		}
	}
	return nil
}
