// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/ballotbox/auth"
	"github.com/danielhkuo/ballotbox/ballot"
	"github.com/danielhkuo/ballotbox/cliparse"
	"github.com/danielhkuo/ballotbox/election"
	"github.com/danielhkuo/ballotbox/handlers"
	"github.com/danielhkuo/ballotbox/ledger"
	"github.com/danielhkuo/ballotbox/middleware"
	"github.com/danielhkuo/ballotbox/models"
	"github.com/danielhkuo/ballotbox/tally"
)

func NewRouter(store *ledger.Store, cfg cliparse.Config, logger *slog.Logger) *http.ServeMux {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	// Initialize services and handlers
	verifier := auth.NewVerifier(cfg.TokenSecret, nil)
	electionHandler := handlers.NewElectionHandler(election.NewService(store, logger))
	votingHandler := handlers.NewVotingHandler(ballot.NewService(store, logger, nil))
	resultsHandler := handlers.NewResultsHandler(tally.NewService(store, logger))

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireRole(verifier, models.RoleAdmin, h))
	}
	voter := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireRole(verifier, models.RoleVoter, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.Error("health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("UNAVAILABLE"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Election management (admin operations)
	mux.HandleFunc("GET /elections", admin(electionHandler.ListElections))
	mux.HandleFunc("GET /elections/{id}", admin(electionHandler.GetElection))
	mux.HandleFunc("POST /setup-election", admin(electionHandler.CreateElection))
	mux.HandleFunc("POST /add-candidate", admin(electionHandler.AddCandidate))
	mux.HandleFunc("PATCH /edit-candidate", admin(electionHandler.EditCandidate))
	mux.HandleFunc("PATCH /election-status", admin(electionHandler.SetStatus))
	mux.HandleFunc("POST /register-voters", admin(electionHandler.RegisterVoters))

	// Results (admin, sealed until closed)
	mux.HandleFunc("GET /tally/{electionId}", admin(resultsHandler.Tally))
	mux.HandleFunc("GET /audit/{electionId}", admin(resultsHandler.Audit))

	// Voting operations (voter bearer token)
	mux.HandleFunc("POST /cast-vote", voter(votingHandler.CastVote))
	mux.HandleFunc("GET /receipts/{receipt}", voter(votingHandler.VerifyReceipt))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ballotbox API v1"))
	})

	return mux
}
