// Package config handles configuration loading for maitred.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from MAITRED_CONFIG environment variable
//  2. ./maitred.yaml (current directory)
//  3. ~/.config/maitred/maitred.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	payments:
//	  webhook_secret: "${MAITRED_WEBHOOK_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	dispatch:
//	  poll_interval: "2s"
//	admin:
//	  link_ttl: "24h"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  base_url: "https://maitred.example.com"   # callback URL origin
//
// Database:
//
//	database:
//	  path: "/var/lib/maitred/maitred.db"
//
// Payments:
//
//	payments:
//	  webhook_secret: "${MAITRED_WEBHOOK_SECRET}"
//	  minimum_charge_cents: 50
//
// Dispatch:
//
//	dispatch:
//	  callback_secret: "${MAITRED_CALLBACK_SECRET}"
//	  poll_interval: "2s"
//
// Carrier (guest and on-call SMS):
//
//	carrier:
//	  enabled: true
//	  account_sid: "${CARRIER_ACCOUNT_SID}"
//	  auth_token: "${CARRIER_AUTH_TOKEN}"
//	  from_number: "+15558000"
//
// Escalation delivery:
//
//	escalation:
//	  chat_webhook_url: "https://chat.example.com/hooks/ops"
//	  sms_numbers: ["+15550001"]
//
// Admin links:
//
//	admin:
//	  base_url: "https://admin.example.com"
//	  link_secret: "${MAITRED_LINK_SECRET}"
//	  link_ttl: "24h"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/maitred/maitred.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
