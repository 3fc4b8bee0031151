// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validConfig = `
server:
  http_addr: "0.0.0.0:8080"
  base_url: "https://maitred.example.com"

database:
  path: "./test.db"

payments:
  webhook_secret: "whsec-test"
  minimum_charge_cents: 50

dispatch:
  callback_secret: "cb-test"
  poll_interval: "2s"

carrier:
  enabled: true
  account_sid: "AC-test"
  auth_token: "tok-test"
  from_number: "+15558000"

escalation:
  chat_webhook_url: "https://chat.example.com/hooks/ops"
  sms_numbers:
    - "+15550001"
    - "+15550002"

admin:
  base_url: "https://admin.example.com"
  link_secret: "link-test"
  link_ttl: "24h"

logging:
  level: "debug"
  format: "json"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Server.BaseURL != "https://maitred.example.com" {
		t.Errorf("Server.BaseURL = %q, want %q", cfg.Server.BaseURL, "https://maitred.example.com")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Payments.WebhookSecret != "whsec-test" {
		t.Errorf("Payments.WebhookSecret = %q, want %q", cfg.Payments.WebhookSecret, "whsec-test")
	}
	if cfg.Payments.MinimumChargeCents != 50 {
		t.Errorf("Payments.MinimumChargeCents = %d, want 50", cfg.Payments.MinimumChargeCents)
	}
	if cfg.Dispatch.CallbackSecret != "cb-test" {
		t.Errorf("Dispatch.CallbackSecret = %q, want %q", cfg.Dispatch.CallbackSecret, "cb-test")
	}
	if cfg.Dispatch.PollInterval != 2*time.Second {
		t.Errorf("Dispatch.PollInterval = %v, want %v", cfg.Dispatch.PollInterval, 2*time.Second)
	}
	if !cfg.Carrier.Enabled {
		t.Error("Carrier.Enabled = false, want true")
	}
	if cfg.Carrier.FromNumber != "+15558000" {
		t.Errorf("Carrier.FromNumber = %q, want %q", cfg.Carrier.FromNumber, "+15558000")
	}
	if len(cfg.Escalation.SMSNumbers) != 2 {
		t.Errorf("Escalation.SMSNumbers len = %d, want 2", len(cfg.Escalation.SMSNumbers))
	}
	if cfg.Admin.LinkTTL != 24*time.Hour {
		t.Errorf("Admin.LinkTTL = %v, want %v", cfg.Admin.LinkTTL, 24*time.Hour)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_WEBHOOK_SECRET", "whsec-from-env")
	t.Setenv("TEST_CALLBACK_SECRET", "cb-from-env")

	configContent := `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

payments:
  webhook_secret: "${TEST_WEBHOOK_SECRET}"

dispatch:
  callback_secret: "${TEST_CALLBACK_SECRET}"
`
	cfg, err := Load(writeConfig(t, configContent))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Payments.WebhookSecret != "whsec-from-env" {
		t.Errorf("Payments.WebhookSecret = %q, want %q", cfg.Payments.WebhookSecret, "whsec-from-env")
	}
	if cfg.Dispatch.CallbackSecret != "cb-from-env" {
		t.Errorf("Dispatch.CallbackSecret = %q, want %q", cfg.Dispatch.CallbackSecret, "cb-from-env")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configContent := `
server:
  http_addr "missing colon"
`
	_, err := Load(writeConfig(t, configContent))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configContent := `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
payments:
  webhook_secret: "whsec"
dispatch:
  callback_secret: "cb"
  poll_interval: "invalid-duration"
`
	_, err := Load(writeConfig(t, configContent))
	if err == nil {
		t.Error("Load() expected error for invalid duration, got nil")
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name          string
		configContent string
		wantErrSubstr string
	}{
		{
			name: "missing http_addr",
			configContent: `
server:
  http_addr: ""
database:
  path: "./test.db"
payments:
  webhook_secret: "whsec"
dispatch:
  callback_secret: "cb"
`,
			wantErrSubstr: "server.http_addr is required",
		},
		{
			name: "missing database path",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: ""
payments:
  webhook_secret: "whsec"
dispatch:
  callback_secret: "cb"
`,
			wantErrSubstr: "database.path is required",
		},
		{
			name: "missing callback secret",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
payments:
  webhook_secret: "whsec"
`,
			wantErrSubstr: "dispatch.callback_secret is required",
		},
		{
			name: "missing webhook secret",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
dispatch:
  callback_secret: "cb"
`,
			wantErrSubstr: "payments.webhook_secret is required",
		},
		{
			name: "carrier enabled without credentials",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
payments:
  webhook_secret: "whsec"
dispatch:
  callback_secret: "cb"
carrier:
  enabled: true
`,
			wantErrSubstr: "carrier.account_sid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.configContent))
			if err == nil {
				t.Errorf("Load() expected error containing %q, got nil", tt.wantErrSubstr)
				return
			}
			if !strings.Contains(err.Error(), tt.wantErrSubstr) {
				t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.wantErrSubstr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single env var",
			input:    "${FOO}",
			expected: "bar",
		},
		{
			name:     "env var with surrounding text",
			input:    "prefix-${FOO}-suffix",
			expected: "prefix-bar-suffix",
		},
		{
			name:     "multiple env vars",
			input:    "${FOO}/${BAZ}",
			expected: "bar/qux",
		},
		{
			name:     "no env vars",
			input:    "no-vars-here",
			expected: "no-vars-here",
		},
		{
			name:     "unset env var",
			input:    "${UNSET_VAR}",
			expected: "",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
