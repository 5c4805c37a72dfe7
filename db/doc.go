// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the ledger database and creates its schema.

# Connecting

	conn, err := db.Open(ctx, db.SQLite, "ballots.db")
	conn, err := db.Open(ctx, db.Postgres, "postgres://...")

Open pings the database, checks that SQLite foreign keys are on, and runs
CreateSchema. SQLite connections are capped at one so transactions run
strictly one after another.

# Schema Creation

CreateSchema is safe to call multiple times - it uses IF NOT EXISTS for all
tables and indexes.

# Tables

  - elections: title, voting window, lifecycle status
  - candidates: per-election choices, unique by name within an election
  - election_voters: guest list keyed by (election_id, voter_hash) with has_voted
  - votes: encrypted ballots with integrity and receipt hashes

# Relationships

	elections 1──* candidates
	elections 1──* election_voters
	elections 1──* votes

Foreign keys have no ON DELETE CASCADE: an election with ballots cannot be
removed. The votes table rejects UPDATE and DELETE through a trigger on both
backends.
*/
package db
