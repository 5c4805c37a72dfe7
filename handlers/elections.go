// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/ballotbox/apperr"
	"github.com/danielhkuo/ballotbox/auth"
	"github.com/danielhkuo/ballotbox/election"
	"github.com/danielhkuo/ballotbox/middleware"
	"github.com/danielhkuo/ballotbox/models"
)

// ElectionHandler serves the administrator endpoints.
type ElectionHandler struct {
	svc *election.Service
}

func NewElectionHandler(svc *election.Service) *ElectionHandler {
	return &ElectionHandler{svc: svc}
}

// requireElectionID rejects requests that name no election.
func requireElectionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.New(apperr.CodeInvalidInput, "electionId is required")
	}
	return nil
}

// fromEpoch converts optional epoch seconds. An absent value stays the zero
// time so validation can report it as missing.
func fromEpoch(seconds *int64) time.Time {
	if seconds == nil {
		return time.Time{}
	}
	return time.Unix(*seconds, 0).UTC()
}

// ListElections handles GET /elections
func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.svc.ListElections(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	views := make([]models.ElectionView, 0, len(elections))
	for _, e := range elections {
		views = append(views, models.NewElectionView(e))
	}
	middleware.JSONResponse(w, http.StatusOK, views)
}

// GetElection handles GET /elections/{id}
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetElection(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, detail)
}

// CreateElection handles POST /setup-election
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	id, _ := auth.FromContext(r.Context())
	e, err := h.svc.CreateElection(r.Context(), models.NewElection{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   fromEpoch(req.StartTime),
		EndTime:     fromEpoch(req.EndTime),
		CreatedBy:   id.SubjectHash,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreateElectionResponse{
		ElectionID: e.ID,
		Status:     e.Status,
	})
}

// AddCandidate handles POST /add-candidate
func (h *ElectionHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	var req models.AddCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := requireElectionID(req.ElectionID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	c, err := h.svc.AddCandidate(r.Context(), req.ElectionID, req.Name, req.Party)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, c)
}

// EditCandidate handles PATCH /edit-candidate
func (h *ElectionHandler) EditCandidate(w http.ResponseWriter, r *http.Request) {
	var req models.EditCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := requireElectionID(req.ElectionID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	c, err := h.svc.EditCandidate(r.Context(), req.ElectionID, req.CandidateID, req.Name, req.Party)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, c)
}

// SetStatus handles PATCH /election-status
func (h *ElectionHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req models.SetStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := requireElectionID(req.ElectionID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	e, err := h.svc.SetStatus(r.Context(), req.ElectionID, req.Status)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.SetStatusResponse{
		ElectionID: e.ID,
		Status:     e.Status,
	})
}

// RegisterVoters handles POST /register-voters
func (h *ElectionHandler) RegisterVoters(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterVotersRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := requireElectionID(req.ElectionID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	added, err := h.svc.AuthorizeVoters(r.Context(), req.ElectionID, req.VoterHashes)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.RegisterVotersResponse{
		ElectionID: req.ElectionID,
		Added:      added,
		Submitted:  len(req.VoterHashes),
	})
}
