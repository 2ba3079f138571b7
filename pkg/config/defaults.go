package config

import "os"

// DefaultYAMLConfig returns the built-in baseline merged underneath whatever
// the user's YAML file provides. mergo.WithOverride copies every non-zero
// field of the user file over this baseline; a field left at its zero value
// here (database.password, auth.disabled) takes the user's value when one is
// given and stays zero otherwise.
func DefaultYAMLConfig() *YAMLConfig {
	trueVal := true
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &YAMLConfig{
		Database: &DatabaseYAML{
			Backend:         "postgres",
			Host:            "localhost",
			Port:            5432,
			User:            "agentrelay",
			Database:        "agentrelay",
			SSLMode:         "disable",
			MaxConns:        25,
			MinConns:        2,
			MaxConnLifetime: "1h",
			MaxConnIdleTime: "15m",
		},
		HTTP: &HTTPYAML{
			Addr: ":8080",
		},
		Session: &SessionYAML{
			Timeout:         "1h",
			CleanupInterval: "5m",
			AutoCleanup:     &trueVal,
		},
		HITL: &HITLYAML{
			Timeout: "300s",
		},
		Stream: &StreamYAML{
			MaxConnections: 1000,
		},
		MCP: &MCPYAML{
			MaxConnectionsPerUser: 10,
			MaxConnectionsTotal:   500,
		},
		Rules: &RulesYAML{
			MaxContentSize: 50_000,
		},
		Memory: &MemoryYAML{
			DataRoot:    home + "/.agentrelay",
			AppName:     "agentrelay",
			MultiTenant: &trueVal,
		},
		Auth: &AuthYAML{
			Disabled:     false,
			TenantHeader: "X-User-ID",
		},
	}
}
