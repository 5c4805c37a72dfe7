// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the ballotbox API server.

Ballotbox is an election ledger: administrators set up elections and a
guest list of voter identity hashes, voters cast one encrypted ballot each,
and once the election is closed the ballots are decrypted and tallied.
Ballots carry no voter column; the guest list only records that a voter
has voted.

# Starting the Server

Settings come from the environment (optionally a .env file) and can be
overridden by flags:

	TOKEN_SECRET=... DATABASE_URL=ballotbox.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -token-secret ...

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - TOKEN_SECRET (-token-secret): HS256 secret shared with the identity provider

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - LOG_LEVEL (-log-level): debug, info, warn or error (default: info)
  - OTEL_ENDPOINT (-otel-endpoint): OTLP/HTTP collector; tracing is off when empty
  - REQUEST_TIMEOUT (-request-timeout): per-request deadline (default: 10s)

# Architecture

  - handlers: HTTP request handlers (elections, voting, results)
  - election, ballot, tally: the operations behind them
  - guard: status, window and lock rules shared by the services
  - ledger: the store, including the atomic cast transaction
  - cipher: ballot encryption and digests
  - auth: bearer token verification
  - router, middleware, db, cliparse, telemetry: plumbing

See package documentation for each component.
*/
package main
