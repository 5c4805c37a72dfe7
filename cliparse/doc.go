// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: SQLite path or PostgreSQL connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - TokenSecret: HS256 secret shared with the identity provider (required, 16+ bytes)
  - LogLevel: debug, info, warn or error (default: info)
  - OTELEndpoint: OTLP/HTTP trace endpoint; empty disables tracing
  - RequestTimeout: per-request deadline (default: 10s)

# CLI Flags

	-p                Server port
	-d                Database URL
	-t                Database type
	--token-secret    Bearer token secret
	--log-level       Log level
	--otel-endpoint   Trace endpoint
	--request-timeout Request timeout

# Environment Variables

Environment variables are read first (with github.com/caarlos0/env):

	PORT            → -p
	DATABASE_URL    → -d
	DATABASE_TYPE   → -t
	TOKEN_SECRET    → --token-secret
	LOG_LEVEL       → --log-level
	OTEL_ENDPOINT   → --otel-endpoint
	REQUEST_TIMEOUT → --request-timeout

CLI flags take precedence over environment variables. main also loads a .env
file, if present, before calling ParseFlags.
*/
package cliparse
