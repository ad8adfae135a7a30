// Package config loads the runner's injected configuration: the
// command alias table and the batch/interactive timeouts. Precedence,
// lowest to highest: built-in defaults, an optional JSON config file
// (schema-validated), then environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Config is the configuration surface the host CLI hands to the core.
type Config struct {
	AliasTable           map[string]string `json:"alias_table" ignored:"true"`
	ShellTimeoutSeconds  int               `json:"shell_timeout_seconds" envconfig:"SHELL_TIMEOUT_SECONDS"`
	ExpectTimeoutSeconds int               `json:"expect_timeout_seconds" envconfig:"EXPECT_TIMEOUT_SECONDS"`
	Verbose              bool              `json:"verbose" envconfig:"VERBOSE"`
}

// ShellTimeout and ExpectTimeout return the configured timeouts as
// time.Duration for use by the process driver.
func (c Config) ShellTimeout() time.Duration {
	return time.Duration(c.ShellTimeoutSeconds) * time.Second
}

func (c Config) ExpectTimeout() time.Duration {
	return time.Duration(c.ExpectTimeoutSeconds) * time.Second
}

// configSchema governs the shape of an optional JSON config file. It is
// intentionally permissive about alias_table's values (plain strings)
// since aliases are resolved, not executed, by the schema.
const configSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"alias_table": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		},
		"shell_timeout_seconds": {"type": "integer", "minimum": 1},
		"expect_timeout_seconds": {"type": "integer", "minimum": 1},
		"verbose": {"type": "boolean"}
	}
}`

var compiledSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("shellspec-config.json", strings.NewReader(configSchema)); err != nil {
		panic(fmt.Sprintf("config: invalid embedded schema: %v", err))
	}
	s, err := compiler.Compile("shellspec-config.json")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema failed to compile: %v", err))
	}
	compiledSchema = s
}

// Default returns the built-in configuration with no aliases and
// 30-second timeouts.
func Default() Config {
	return Config{
		AliasTable:           map[string]string{},
		ShellTimeoutSeconds:  30,
		ExpectTimeoutSeconds: 30,
	}
}

// Load builds a Config starting from Default, merging in an optional
// JSON file at path (skipped entirely if path is ""), then applying
// SHELLSPEC_* environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}

		var generic interface{}
		if err := json.Unmarshal(data, &generic); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		if err := compiledSchema.Validate(generic); err != nil {
			return Config{}, fmt.Errorf("config file %s failed validation: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decoding config file %s: %w", path, err)
		}
		if cfg.AliasTable == nil {
			cfg.AliasTable = map[string]string{}
		}
	}

	if err := envconfig.Process("shellspec", &cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment configuration: %w", err)
	}

	return cfg, nil
}
