// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the ballot API.

# Handler Types

Each handler is a thin struct over one service:

  - ElectionHandler: election setup, candidates, lifecycle, guest list
  - VotingHandler: ballot casting and receipt checks
  - ResultsHandler: tallying and integrity audit

Handlers parse the request, call the service and translate its typed error
with middleware.WriteError. They hold no state of their own.

# Election Lifecycle

Elections progress DRAFT → ACTIVE ⇄ PAUSED → CLOSED:

	POST  /setup-election   → CreateElection (DRAFT)
	POST  /add-candidate    → AddCandidate (DRAFT only, else 403)
	PATCH /edit-candidate   → EditCandidate (DRAFT only, else 403)
	PATCH /election-status  → SetStatus
	POST  /register-voters  → RegisterVoters (idempotent)

Admin operations require a bearer token with role "admin".

# Voting Flow

	POST /cast-vote            → CastVote (returns the receipt)
	GET  /receipts/{receipt}   → VerifyReceipt

The voter is identified only by the bearer token's subject hash.

# Results

	GET /tally/{electionId}?decryptionKey=...  → Tally (CLOSED only)
	GET /audit/{electionId}                    → Audit
*/
package handlers
