package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Initialize loads config.yaml from path, expands environment variables,
// merges it over the built-in defaults, parses duration strings, and
// validates the result. path may be empty, in which case only the built-in
// defaults apply (useful for tests and for running against an all-default
// local setup).
func Initialize(path string) (*Config, error) {
	log := slog.With("config_path", path)

	userCfg, err := loadYAMLFile(path)
	if err != nil {
		return nil, err
	}

	resolved := DefaultYAMLConfig()
	if userCfg != nil {
		if err := mergo.Merge(resolved, userCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("config: merge user config: %w", err)
		}
	}

	cfg, err := resolve(resolved)
	if err != nil {
		return nil, fmt.Errorf("config: resolve: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	log.Info("configuration initialized", "backend", cfg.Database.Backend, "http_addr", cfg.HTTP.Addr)
	return cfg, nil
}

// loadYAMLFile reads and env-expands path. An empty path or a missing file
// is not an error — it simply yields no user overrides.
func loadYAMLFile(path string) (*YAMLConfig, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &cfg, nil
}

// resolve converts a fully-merged YAMLConfig into a typed Config, parsing
// every duration string field.
func resolve(y *YAMLConfig) (*Config, error) {
	maxConnLifetime, err := time.ParseDuration(y.Database.MaxConnLifetime)
	if err != nil {
		return nil, fmt.Errorf("database.max_conn_lifetime: %w", err)
	}
	maxConnIdleTime, err := time.ParseDuration(y.Database.MaxConnIdleTime)
	if err != nil {
		return nil, fmt.Errorf("database.max_conn_idle_time: %w", err)
	}
	sessionTimeout, err := time.ParseDuration(y.Session.Timeout)
	if err != nil {
		return nil, fmt.Errorf("session.timeout: %w", err)
	}
	cleanupInterval, err := time.ParseDuration(y.Session.CleanupInterval)
	if err != nil {
		return nil, fmt.Errorf("session.cleanup_interval: %w", err)
	}
	hitlTimeout, err := time.ParseDuration(y.HITL.Timeout)
	if err != nil {
		return nil, fmt.Errorf("hitl.timeout: %w", err)
	}

	return &Config{
		Database: DatabaseConfig{
			Backend:         y.Database.Backend,
			Host:            y.Database.Host,
			Port:            y.Database.Port,
			User:            y.Database.User,
			Password:        y.Database.Password,
			Database:        y.Database.Database,
			SSLMode:         y.Database.SSLMode,
			MaxConns:        y.Database.MaxConns,
			MinConns:        y.Database.MinConns,
			MaxConnLifetime: maxConnLifetime,
			MaxConnIdleTime: maxConnIdleTime,
		},
		HTTP: HTTPConfig{
			Addr: y.HTTP.Addr,
		},
		Session: SessionConfig{
			Timeout:         sessionTimeout,
			CleanupInterval: cleanupInterval,
			AutoCleanup:     y.Session.AutoCleanup != nil && *y.Session.AutoCleanup,
		},
		HITL: HITLConfig{
			Timeout: hitlTimeout,
		},
		Stream: StreamConfig{
			MaxConnections: y.Stream.MaxConnections,
		},
		MCP: MCPConfig{
			MaxConnectionsPerUser: y.MCP.MaxConnectionsPerUser,
			MaxConnectionsTotal:   y.MCP.MaxConnectionsTotal,
		},
		Rules: RulesConfig{
			MaxContentSize: y.Rules.MaxContentSize,
		},
		Memory: MemoryConfig{
			DataRoot:    y.Memory.DataRoot,
			AppName:     y.Memory.AppName,
			MultiTenant: y.Memory.MultiTenant != nil && *y.Memory.MultiTenant,
		},
		Auth: AuthConfig{
			Disabled:     y.Auth.Disabled,
			TenantHeader: y.Auth.TenantHeader,
		},
	}, nil
}

var validate = validator.New()

// Validate runs struct-tag validation (see types.go's validate tags on the
// typed DatabaseConfig, HTTPConfig, StreamConfig, MCPConfig and RulesConfig
// sections) plus a handful of cross-field checks that don't fit a single tag.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg.Database); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := validate.Struct(cfg.HTTP); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if cfg.Database.MinConns > cfg.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) cannot exceed database.max_conns (%d)", cfg.Database.MinConns, cfg.Database.MaxConns)
	}
	if err := validate.Struct(cfg.Stream); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	if err := validate.Struct(cfg.MCP); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	if err := validate.Struct(cfg.Rules); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if cfg.Database.Backend == "postgres" && cfg.Database.Password == "" {
		return fmt.Errorf("database.password is required when database.backend is \"postgres\"")
	}
	return nil
}
