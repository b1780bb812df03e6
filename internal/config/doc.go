// Package config handles configuration loading for realtime-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${GATEWAY_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # API and socket endpoint
//
// Database:
//
//	database:
//	  path: "/var/lib/realtime-gateway/gateway.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${GATEWAY_JWT_SECRET}"  # required
//	  token_ttl: "24h"
//	  admin_handles:
//	    - "ops"
//
// Ingestion hooks:
//
//	hooks:
//	  secret: "${GATEWAY_HOOK_SECRET}"
//	  dedupe_window: "10m"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Duration values use Go's time.ParseDuration syntax.
package config
