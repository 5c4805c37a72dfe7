// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/danielhkuo/ballotbox/auth"
	"github.com/danielhkuo/ballotbox/ballot"
	"github.com/danielhkuo/ballotbox/election"
	"github.com/danielhkuo/ballotbox/ledger"
	"github.com/danielhkuo/ballotbox/middleware"
	"github.com/danielhkuo/ballotbox/models"
	"github.com/danielhkuo/ballotbox/tally"
	"github.com/danielhkuo/ballotbox/testutil"
)

// newTestMux wires the handlers over store the way the router does, with an
// injectable clock for the casting service.
func newTestMux(t *testing.T, store *ledger.Store, now func() time.Time) *http.ServeMux {
	t.Helper()

	verifier := auth.NewVerifier(testutil.TestTokenSecret, nil)
	eh := NewElectionHandler(election.NewService(store, nil))
	vh := NewVotingHandler(ballot.NewService(store, nil, now))
	rh := NewResultsHandler(tally.NewService(store, nil))

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireRole(verifier, models.RoleAdmin, h)
	}
	voter := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireRole(verifier, models.RoleVoter, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /elections", admin(eh.ListElections))
	mux.HandleFunc("GET /elections/{id}", admin(eh.GetElection))
	mux.HandleFunc("POST /setup-election", admin(eh.CreateElection))
	mux.HandleFunc("POST /add-candidate", admin(eh.AddCandidate))
	mux.HandleFunc("PATCH /edit-candidate", admin(eh.EditCandidate))
	mux.HandleFunc("PATCH /election-status", admin(eh.SetStatus))
	mux.HandleFunc("POST /register-voters", admin(eh.RegisterVoters))
	mux.HandleFunc("GET /tally/{electionId}", admin(rh.Tally))
	mux.HandleFunc("GET /audit/{electionId}", admin(rh.Audit))
	mux.HandleFunc("POST /cast-vote", voter(vh.CastVote))
	mux.HandleFunc("GET /receipts/{receipt}", voter(vh.VerifyReceipt))
	return mux
}

func adminHeader(t *testing.T) map[string]string {
	return testutil.BearerHeader(t, "admin-h", models.RoleAdmin)
}

func voterHeader(t *testing.T, subject string) map[string]string {
	return testutil.BearerHeader(t, subject, models.RoleVoter)
}
