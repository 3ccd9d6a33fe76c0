package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format represents the file format of a config file.
type Format int

const (
	FormatUnknown Format = iota
	FormatYAML
	FormatTOML
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// detectFormat determines the file format from the extension, sniffing the
// content when there is none.
func detectFormat(path string, content []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	}
	return sniffFormat(content)
}

var (
	tomlKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_."-]+\s*=`)
	yamlKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_."-]+\s*:`)
)

// sniffFormat decides on the first significant line.
func sniffFormat(content []byte) Format {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "{"):
			return FormatJSON
		case strings.HasPrefix(line, "["), tomlKeyPattern.MatchString(line):
			return FormatTOML
		case yamlKeyPattern.MatchString(line), strings.HasPrefix(line, "---"):
			return FormatYAML
		}
		return FormatUnknown
	}
	return FormatUnknown
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} references. An unset or
// empty variable takes the default.
func expandEnvVars(content []byte) []byte {
	return envVarPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		parts := envVarPattern.FindSubmatch(match)
		value := os.Getenv(string(parts[1]))
		if value == "" {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// parse decodes content over the defaults.
func parse(content []byte, format Format) (*Config, error) {
	content = expandEnvVars(content)
	cfg := Defaults()

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("YAML parse error: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("TOML parse error: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("JSON parse error: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown file format")
	}

	return cfg, nil
}
