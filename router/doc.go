// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the ballot API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(store, cfg, logger)

# Endpoints

Health:

	GET /health

Election management (bearer token, role admin):

	GET   /elections        - List elections
	GET   /elections/{id}   - Election, candidates and guest-list counts
	POST  /setup-election   - Create election (DRAFT)
	POST  /add-candidate    - Add candidate (DRAFT only)
	PATCH /edit-candidate   - Edit candidate (DRAFT only)
	PATCH /election-status  - Activate, pause, resume or close
	POST  /register-voters  - Bulk authorize identity hashes

Results (bearer token, role admin):

	GET /tally/{electionId}?decryptionKey= - Counts (CLOSED only)
	GET /audit/{electionId}                - Integrity check

Voting (bearer token, role voter):

	POST /cast-vote           - Cast the caller's ballot
	GET  /receipts/{receipt}  - Check a receipt

# Handler Initialization

The router builds the services over the shared ledger store and hands one to
each handler. The store's lifetime belongs to main.
*/
package router
