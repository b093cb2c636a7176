package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, QWENRELAY_CONFIG env, ./config.yaml, /etc/qwenrelay/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. QWENRELAY_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/qwenrelay/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("QWENRELAY_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/qwenrelay/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps QWENRELAY_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QWENRELAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QWENRELAY_MASTER_KEY"); v != "" {
		cfg.Auth.MasterKey = v
	}
	if v := os.Getenv("QWENRELAY_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("QWENRELAY_ACCOUNTS_FILE"); v != "" {
		cfg.Accounts.File = v
	}
	if v := os.Getenv("QWENRELAY_MODELS"); v != "" {
		cfg.Models = splitAndTrim(v)
	}
	if v := os.Getenv("QWENRELAY_CONVERSATION_URL"); v != "" {
		cfg.Upstream.ConversationURL = v
	}
	if v := os.Getenv("QWENRELAY_PREWARM_URL"); v != "" {
		cfg.Upstream.PrewarmURL = v
	}
	if v := os.Getenv("QWENRELAY_COMPLETIONS_URL"); v != "" {
		cfg.Upstream.CompletionsURL = v
	}
	if v := os.Getenv("QWENRELAY_TASK_STATUS_URL"); v != "" {
		cfg.Upstream.TaskStatusURL = v
	}
	if v := os.Getenv("QWENRELAY_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Upstream.PollInterval = d
		}
	}
	if v := os.Getenv("QWENRELAY_POLL_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Upstream.PollMaxAttempts = n
		}
	}
}

// splitAndTrim splits a comma-separated list and trims whitespace,
// dropping empty entries.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is empty
// and the file field is set, the file is read, whitespace is trimmed, and
// the value field is populated.
func resolveFileReferences(cfg *Config) error {
	if cfg.Auth.MasterKeyFile != "" && cfg.Auth.MasterKey == "" {
		val, err := readSecretFile(cfg.Auth.MasterKeyFile)
		if err != nil {
			return fmt.Errorf("auth.master_key_file: %w", err)
		}
		cfg.Auth.MasterKey = val
	}

	if cfg.Auth.JWTSecretFile != "" && cfg.Auth.JWTSecret == "" {
		val, err := readSecretFile(cfg.Auth.JWTSecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt_secret_file: %w", err)
		}
		cfg.Auth.JWTSecret = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
