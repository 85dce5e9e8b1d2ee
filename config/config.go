// Package config provides YAML configuration parsing for the tinystore
// binary.
//
// A configuration names the counters that make up the store's state and
// an optional script of actions to dispatch at startup.
//
// Example configuration:
//
//	title: Bug tracker counters
//	port: 8080
//	log_level: info
//	log_format: json
//	shutdown_timeout: 10s
//
//	counters: [bugs, projects, users]
//
//	script:
//	  - type: bugs/inc
//	  - type: bugs/inc
//	    payload: 2
//	  - payload: {note: no type}
//	  - type: users/reset
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/tinystore"
)

const (
	defaultTitle           = "tinystore"
	defaultPort            = 8080
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultShutdownTimeout = 10 * time.Second
)

// Config is the root configuration structure for the tinystore binary.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is shown by the inspector. Defaults to "tinystore".
	Title string `yaml:"title"`

	// Port is the inspector HTTP port. Defaults to 8080.
	Port int `yaml:"port"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`

	// LogFormat is json or text. Defaults to json.
	LogFormat string `yaml:"log_format"`

	// ShutdownTimeout bounds graceful shutdown of "serve". Defaults to 10s.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// Counters names the counter slices of the store state.
	Counters []string `yaml:"counters"`

	// Script lists actions dispatched in order at startup. Entries
	// without a type are kept; they exercise the malformed-action path.
	Script []tinystore.Action `yaml:"script"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// The given .env files are loaded into the environment first; with none
// given, ".env" is tried. Missing .env files are ignored and variables
// already set are not overridden.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// non-fatal: .env files are optional
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses YAML configuration data.
//
// ${VAR} and ${VAR:-default} references are expanded in title,
// log_level, log_format, counter names and script action types after
// the YAML is decoded; other fields and comments are taken literally. Defaults are then applied
// for Title, Port, LogLevel, LogFormat and ShutdownTimeout.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expand(); err != nil {
		return nil, err
	}

	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaultLogFormat
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(defaultShutdownTimeout)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expand replaces environment variable references in the string fields
// that accept them.
func (c *Config) expand() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"title", &c.Title},
		{"log_level", &c.LogLevel},
		{"log_format", &c.LogFormat},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = expanded
	}

	for i := range c.Counters {
		expanded, err := expandEnvVars(c.Counters[i])
		if err != nil {
			return fmt.Errorf("counters[%d]: %w", i, err)
		}
		c.Counters[i] = expanded
	}

	for i := range c.Script {
		expanded, err := expandEnvVars(c.Script[i].Type)
		if err != nil {
			return fmt.Errorf("script[%d]: type: %w", i, err)
		}
		c.Script[i].Type = expanded
	}

	return nil
}

// validate checks field ranges and counter names.
func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log_format must be json or text, got %q", c.LogFormat)
	}

	if c.ShutdownTimeout.Duration() < 0 {
		return fmt.Errorf("shutdown_timeout cannot be negative, got %s", c.ShutdownTimeout.Duration())
	}

	if len(c.Counters) == 0 {
		return errors.New("at least one counter must be defined")
	}

	seen := make(map[string]struct{}, len(c.Counters))
	for i, name := range c.Counters {
		if name == "" {
			return fmt.Errorf("counters[%d]: name is required", i)
		}
		if strings.Contains(name, "/") {
			return fmt.Errorf("counters[%d] (%s): name must not contain '/'", i, name)
		}
		if _, exists := seen[name]; exists {
			return fmt.Errorf("counters[%d]: duplicate counter name %q", i, name)
		}
		seen[name] = struct{}{}
	}

	return nil
}

// parseLevel maps a log_level value to a slog level.
func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s)
	}
}

// Logger builds a logger writing to w with the configured level and format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Actions returns a copy of the startup script.
func (c *Config) Actions() []tinystore.Action {
	actions := make([]tinystore.Action, len(c.Script))
	copy(actions, c.Script)
	return actions
}

// MalformedCount returns how many script actions have no type.
func (c *Config) MalformedCount() int {
	n := 0
	for _, a := range c.Script {
		if a.Type == "" {
			n++
		}
	}
	return n
}
