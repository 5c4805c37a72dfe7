// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the ledger's domain types and the HTTP request/response
shapes.

# Domain Types

  - Election: lifecycle state (DRAFT, ACTIVE, PAUSED, CLOSED) and voting window
  - Candidate: a choice on an election's ballot, frozen once the election leaves DRAFT
  - VoterAuthorization: one guest-list row with its has-voted flag
  - Ballot: an encrypted, append-only vote row with integrity and receipt digests

Ballot deliberately has no voter field. The only link between a voter and an
election is the has-voted flag on their guest-list row.

# Wire Types

Request types mirror the JSON bodies accepted by the handlers:

	type CastVoteRequest struct {
		ElectionID    string `json:"electionId"`
		Vote          string `json:"vote"`
		EncryptionKey string `json:"encryptionKey"`
	}

Election times travel as epoch seconds (start_time, end_time). ElectionView
converts a domain Election into that form.

# Tally

TallyResult lists per-candidate counts plus discardedCount, the number of
ballots that could not be decrypted to a known candidate name.
*/
package models
