// ABOUTME: Configuration loading and parsing for maitred
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete maitred configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Payments   PaymentsConfig   `yaml:"payments"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Carrier    CarrierConfig    `yaml:"carrier"`
	Escalation EscalationConfig `yaml:"escalation"`
	Admin      AdminConfig      `yaml:"admin"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	// BaseURL is the external URL of this service, used to build the
	// placement callback URL handed to the agent.
	BaseURL string `yaml:"base_url"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// PaymentsConfig holds payment-processor configuration
type PaymentsConfig struct {
	WebhookSecret string `yaml:"webhook_secret"`
	// MinimumChargeCents floors every authorization; processors reject
	// holds below their minimum.
	MinimumChargeCents int64 `yaml:"minimum_charge_cents"`
}

// DispatchConfig holds placement-queue configuration
type DispatchConfig struct {
	CallbackSecret string `yaml:"callback_secret"`
	// AgentURL is the placement agent's job intake endpoint. Empty means
	// no built-in delivery; jobs stay queued for an external consumer.
	AgentURL string `yaml:"agent_url"`

	PollInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	PollIntervalRaw string `yaml:"poll_interval"`
}

// CarrierConfig holds the messaging-carrier configuration
type CarrierConfig struct {
	Enabled     bool   `yaml:"enabled"`
	AccountSID  string `yaml:"account_sid"`
	AuthToken   string `yaml:"auth_token"`
	FromNumber  string `yaml:"from_number"`
	GuestNumber string `yaml:"guest_number"`
}

// EscalationConfig holds escalation delivery configuration
type EscalationConfig struct {
	ChatWebhookURL string   `yaml:"chat_webhook_url"`
	SMSNumbers     []string `yaml:"sms_numbers"`
}

// AdminConfig holds admin UI link configuration
type AdminConfig struct {
	BaseURL    string `yaml:"base_url"`
	LinkSecret string `yaml:"link_secret"`

	LinkTTL time.Duration `yaml:"-"`

	LinkTTLRaw string `yaml:"link_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Dispatch.CallbackSecret == "" {
		return fmt.Errorf("dispatch.callback_secret is required")
	}
	if c.Payments.WebhookSecret == "" {
		return fmt.Errorf("payments.webhook_secret is required")
	}
	if c.Carrier.Enabled {
		if c.Carrier.AccountSID == "" || c.Carrier.AuthToken == "" {
			return fmt.Errorf("carrier.account_sid and carrier.auth_token are required when carrier is enabled")
		}
		if c.Carrier.FromNumber == "" {
			return fmt.Errorf("carrier.from_number is required when carrier is enabled")
		}
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Dispatch.PollIntervalRaw != "" {
		cfg.Dispatch.PollInterval, err = time.ParseDuration(cfg.Dispatch.PollIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing poll_interval %q: %w", cfg.Dispatch.PollIntervalRaw, err)
		}
	}

	if cfg.Admin.LinkTTLRaw != "" {
		cfg.Admin.LinkTTL, err = time.ParseDuration(cfg.Admin.LinkTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing link_ttl %q: %w", cfg.Admin.LinkTTLRaw, err)
		}
	}

	return nil
}
