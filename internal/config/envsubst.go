package config

import (
	"os"
	"regexp"
)

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// ExpandEnv expands ${VAR} and ${VAR:-default} references in config file
// content against the process environment, before the result is parsed
// as JSON or YAML.
func ExpandEnv(content string) string {
	return envPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		varName := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}
