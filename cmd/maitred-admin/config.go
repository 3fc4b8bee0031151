// ABOUTME: Configuration loading for the maitred-admin ops CLI
// ABOUTME: Loads TOML config with environment variable expansion

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Escalation EscalationConfig `toml:"escalation"`
	Admin      AdminConfig      `toml:"admin"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type EscalationConfig struct {
	ChatWebhookURL string `toml:"chat_webhook_url"`
}

type AdminConfig struct {
	BaseURL    string `toml:"base_url"`
	LinkSecret string `toml:"link_secret"`
	LinkTTLRaw string `toml:"link_ttl"`

	LinkTTL time.Duration `toml:"-"`
}

// configPath resolves the config location: MAITRED_ADMIN_CONFIG, then
// ./maitred-admin.toml, then ~/.config/maitred/maitred-admin.toml.
func configPath() string {
	if p := os.Getenv("MAITRED_ADMIN_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("maitred-admin.toml"); err == nil {
		return "maitred-admin.toml"
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "maitred-admin.toml"
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "maitred", "maitred-admin.toml")
}

// loadConfig reads config from the given path, expanding environment variables.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables (${VAR} syntax)
	expanded := expandEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Database.Path == "" {
		return nil, fmt.Errorf("database.path is required")
	}
	if cfg.Admin.LinkTTLRaw != "" {
		d, err := time.ParseDuration(cfg.Admin.LinkTTLRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid admin.link_ttl: %w", err)
		}
		cfg.Admin.LinkTTL = d
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}
