package config

import (
	"os"
	"regexp"
)

// envDefaultPattern matches ${VAR:-default} tokens so a default can be
// supplied inline without requiring the variable to be set.
var envDefaultPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*):-([^}]*)\}`)

// ExpandEnv expands environment variables in YAML content. It first resolves
// ${VAR:-default} tokens (default used when VAR is unset or empty), then
// hands the result to os.ExpandEnv for plain ${VAR} / $VAR substitution.
// Variables that remain unset expand to an empty string.
func ExpandEnv(data []byte) []byte {
	withDefaults := envDefaultPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		groups := envDefaultPattern.FindSubmatch(match)
		name, def := string(groups[1]), string(groups[2])
		if val, ok := os.LookupEnv(name); ok && val != "" {
			return []byte(val)
		}
		return []byte(def)
	})
	expanded := os.ExpandEnv(string(withDefaults))
	return []byte(expanded)
}
