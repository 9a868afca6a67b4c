// Package config provides configuration management for the Aegis safety
// service.
//
// Configuration is read from YAML, layered over built-in defaults and
// overridden by environment variables.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("aegis.yaml")                 // file only
//	cfg, err := config.LoadConfigWithEnvOverrides("aegis.yaml") // file + env
//
// An empty path loads the defaults, so the service runs without any file.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention AEGIS_SECTION_FIELD:
//
//   - AEGIS_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - AEGIS_SAFETY_PASS_THRESHOLD overrides safety.pass_threshold
//   - AEGIS_SERVER_AUTH_KEYS replaces server.auth.keys ("ci=key1,ops=key2")
//   - AEGIS_PATTERNS_FILE overrides patterns.file
//   - AEGIS_AUDIT_SQLITE_PATH overrides audit.sqlite.path
//   - AEGIS_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (Defaults)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// Because the file is decoded on top of Defaults, options that default to
// true (such as safety.block_on_critical) can be switched off in YAML.
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8420"
//	  auth:
//	    enabled: true
//	    keys:
//	      - name: "ci"
//	        key: "change-me"
//	  rate_limit:
//	    enabled: true
//	    requests_per_second: 5
//
//	safety:
//	  pass_threshold: 60
//	  detectors:
//	    bias: false
//
//	patterns:
//	  file: "./patterns"
//	  watch: true
//
//	audit:
//	  backend: "sqlite"
//	  retention:
//	    days: 14
//
//	telemetry:
//	  logging:
//	    level: "debug"
//	    format: "text"
package config
