// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/ballotbox/apperr"
	"github.com/danielhkuo/ballotbox/auth"
	"github.com/danielhkuo/ballotbox/ballot"
	"github.com/danielhkuo/ballotbox/middleware"
	"github.com/danielhkuo/ballotbox/models"
)

const castMessage = "Vote recorded. Keep this receipt to check that your ballot was stored."

type VotingHandler struct {
	svc *ballot.Service
}

func NewVotingHandler(svc *ballot.Service) *VotingHandler {
	return &VotingHandler{svc: svc}
}

// CastVote handles POST /cast-vote
// The voter is the bearer token's subject; the body never names the voter.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		middleware.WriteError(w, auth.ErrMissingToken)
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := requireElectionID(req.ElectionID); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if req.EncryptionKey == "" {
		middleware.WriteError(w, apperr.New(apperr.CodeInvalidInput, "encryptionKey is required"))
		return
	}

	receipt, err := h.svc.CastVote(r.Context(), req.ElectionID, req.Vote, req.EncryptionKey, id.SubjectHash)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CastVoteResponse{
		Receipt: receipt,
		Message: castMessage,
	})
}

// VerifyReceipt handles GET /receipts/{receipt}
func (h *VotingHandler) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.VerifyReceipt(r.Context(), r.PathValue("receipt"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}
