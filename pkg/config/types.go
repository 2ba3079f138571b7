package config

import "time"

// YAMLConfig is the raw shape of the on-disk config file, before defaults
// are merged in and duration strings are parsed. Every field is optional;
// Initialize fills in a DefaultYAMLConfig underneath anything left unset.
type YAMLConfig struct {
	Database *DatabaseYAML `yaml:"database,omitempty"`
	HTTP     *HTTPYAML     `yaml:"http,omitempty"`
	Session  *SessionYAML  `yaml:"session,omitempty"`
	HITL     *HITLYAML     `yaml:"hitl,omitempty"`
	Stream   *StreamYAML   `yaml:"stream,omitempty"`
	MCP      *MCPYAML      `yaml:"mcp,omitempty"`
	Rules    *RulesYAML    `yaml:"rules,omitempty"`
	Memory   *MemoryYAML   `yaml:"memory,omitempty"`
	Auth     *AuthYAML     `yaml:"auth,omitempty"`
}

// DatabaseYAML configures the shared PostgreSQL pool (pkg/database.Config).
// Password is read from an environment variable, never written to the file
// in plaintext — use ${DB_PASSWORD} expansion.
type DatabaseYAML struct {
	Host            string `yaml:"host,omitempty"`
	Port            int    `yaml:"port,omitempty"`
	User            string `yaml:"user,omitempty"`
	Password        string `yaml:"password,omitempty"`
	Database        string `yaml:"database,omitempty"`
	SSLMode         string `yaml:"sslmode,omitempty"`
	MaxConns        int32  `yaml:"max_conns,omitempty"`
	MinConns        int32  `yaml:"min_conns,omitempty"`
	MaxConnLifetime string `yaml:"max_conn_lifetime,omitempty"`
	MaxConnIdleTime string `yaml:"max_conn_idle_time,omitempty"`
	// Backend selects "postgres" or "memory". "memory" skips Database
	// entirely and wires every store's in-memory peer implementation.
	Backend string `yaml:"backend,omitempty"`
}

// HTTPYAML configures the API server's bind address.
type HTTPYAML struct {
	Addr string `yaml:"addr,omitempty"`
}

// SessionYAML configures session lifetime and background cleanup.
type SessionYAML struct {
	Timeout         string `yaml:"timeout,omitempty"`
	CleanupInterval string `yaml:"cleanup_interval,omitempty"`
	AutoCleanup     *bool  `yaml:"auto_cleanup,omitempty"`
}

// HITLYAML configures the human-in-the-loop approval timeout.
type HITLYAML struct {
	Timeout string `yaml:"timeout,omitempty"`
}

// StreamYAML configures the connection manager's capacity cap.
type StreamYAML struct {
	MaxConnections int `yaml:"max_connections,omitempty"`
}

// MCPYAML configures the MCP connection pool's capacity caps.
type MCPYAML struct {
	MaxConnectionsPerUser int `yaml:"max_connections_per_user,omitempty"`
	MaxConnectionsTotal   int `yaml:"max_connections_total,omitempty"`
}

// RulesYAML configures the rule engine's merge pipeline.
type RulesYAML struct {
	MaxContentSize int `yaml:"max_content_size,omitempty"`
}

// MemoryYAML configures the long-term memory loader's paths.
type MemoryYAML struct {
	DataRoot    string `yaml:"data_root,omitempty"`
	AppName     string `yaml:"app_name,omitempty"`
	MultiTenant *bool  `yaml:"multi_tenant,omitempty"`
}

// AuthYAML configures how the HTTP layer authenticates callers.
type AuthYAML struct {
	// Disabled trusts a caller-supplied header for the tenant identity,
	// for local development only.
	Disabled     bool   `yaml:"disabled,omitempty"`
	TenantHeader string `yaml:"tenant_header,omitempty"`
}

// Config is the fully resolved, validated configuration ready for wiring
// into cmd/agentrelay's constructors.
type Config struct {
	Database DatabaseConfig
	HTTP     HTTPConfig
	Session  SessionConfig
	HITL     HITLConfig
	Stream   StreamConfig
	MCP      MCPConfig
	Rules    RulesConfig
	Memory   MemoryConfig
	Auth     AuthConfig
}

type DatabaseConfig struct {
	Backend         string `validate:"oneof=postgres memory"`
	Host            string
	Port            int `validate:"omitempty,min=1,max=65535"`
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConns        int32 `validate:"min=1"`
	MinConns        int32 `validate:"min=0"`
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type HTTPConfig struct {
	Addr string `validate:"required"`
}

type SessionConfig struct {
	Timeout         time.Duration
	CleanupInterval time.Duration
	AutoCleanup     bool
}

type HITLConfig struct {
	Timeout time.Duration
}

type StreamConfig struct {
	MaxConnections int `validate:"min=1"`
}

type MCPConfig struct {
	MaxConnectionsPerUser int `validate:"min=1"`
	MaxConnectionsTotal   int `validate:"min=1"`
}

type RulesConfig struct {
	MaxContentSize int `validate:"min=0"`
}

type MemoryConfig struct {
	DataRoot    string
	AppName     string
	MultiTenant bool
}

type AuthConfig struct {
	Disabled     bool
	TenantHeader string
}
