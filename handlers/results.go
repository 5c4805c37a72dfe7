// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/ballotbox/middleware"
	"github.com/danielhkuo/ballotbox/tally"
)

type ResultsHandler struct {
	svc *tally.Service
}

func NewResultsHandler(svc *tally.Service) *ResultsHandler {
	return &ResultsHandler{svc: svc}
}

// Tally handles GET /tally/{electionId}?decryptionKey=...
// Results are sealed until the election is CLOSED.
func (h *ResultsHandler) Tally(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("electionId")
	if err := requireElectionID(electionID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	result, err := h.svc.Tally(r.Context(), electionID, r.URL.Query().Get("decryptionKey"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, result)
}

// Audit handles GET /audit/{electionId}
func (h *ResultsHandler) Audit(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("electionId")
	if err := requireElectionID(electionID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	report, err := h.svc.Audit(r.Context(), electionID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, report)
}
