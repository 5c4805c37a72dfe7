// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package election implements the administrator operations on elections:
// setup, candidates, lifecycle transitions, and the guest list.
package election

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/ballotbox/apperr"
	"github.com/danielhkuo/ballotbox/guard"
	"github.com/danielhkuo/ballotbox/ledger"
	"github.com/danielhkuo/ballotbox/models"
)

const (
	maxTitleLen     = 200
	maxNameLen      = 120
	maxVoterBatch   = 10_000
	maxVoterHashLen = 256
)

// Service runs the administrator operations against the ledger.
type Service struct {
	store  *ledger.Store
	logger *slog.Logger
}

// NewService builds an administration service. logger defaults to slog.Default.
func NewService(store *ledger.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// CreateElection validates the request and stores a new DRAFT election.
func (s *Service) CreateElection(ctx context.Context, in models.NewElection) (models.Election, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return models.Election{}, apperr.New(apperr.CodeInvalidInput, "title is required")
	}
	if len(in.Title) > maxTitleLen {
		return models.Election{}, apperr.New(apperr.CodeInvalidInput, "title is too long")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return models.Election{}, apperr.New(apperr.CodeInvalidInput, "start_time and end_time are required")
	}
	if !in.EndTime.After(in.StartTime) {
		return models.Election{}, apperr.New(apperr.CodeInvalidInput, "end_time must be after start_time")
	}

	e, err := s.store.CreateElection(ctx, in)
	if err != nil {
		return models.Election{}, err
	}

	s.logger.Info("election created", "election_id", e.ID, "created_by", e.CreatedBy,
		"start_time", e.StartTime.Format(time.RFC3339), "end_time", e.EndTime.Format(time.RFC3339))
	return e, nil
}

// GetElection returns the election with its candidates and guest-list counts.
func (s *Service) GetElection(ctx context.Context, id string) (models.ElectionDetail, error) {
	e, err := s.store.GetElection(ctx, id)
	if err != nil {
		return models.ElectionDetail{}, err
	}
	candidates, err := s.store.ListCandidates(ctx, id)
	if err != nil {
		return models.ElectionDetail{}, err
	}
	stats, err := s.store.GuestListStats(ctx, id)
	if err != nil {
		return models.ElectionDetail{}, err
	}
	return models.ElectionDetail{
		Election:   models.NewElectionView(e),
		Candidates: candidates,
		GuestList:  stats,
	}, nil
}

func (s *Service) ListElections(ctx context.Context) ([]models.Election, error) {
	return s.store.ListElections(ctx)
}

func validateCandidate(name, party string) (string, string, error) {
	name = strings.TrimSpace(name)
	party = strings.TrimSpace(party)
	if name == "" {
		return "", "", apperr.New(apperr.CodeInvalidInput, "name is required")
	}
	if len(name) > maxNameLen || len(party) > maxNameLen {
		return "", "", apperr.New(apperr.CodeInvalidInput, "name and party must be at most 120 characters")
	}
	return name, party, nil
}

// AddCandidate adds a candidate while the election is in DRAFT.
func (s *Service) AddCandidate(ctx context.Context, electionID, name, party string) (models.Candidate, error) {
	name, party, err := validateCandidate(name, party)
	if err != nil {
		return models.Candidate{}, err
	}

	c, err := s.store.AddCandidate(ctx, electionID, name, party)
	if err != nil {
		return models.Candidate{}, err
	}

	s.logger.Info("candidate added", "election_id", electionID, "candidate_id", c.ID)
	return c, nil
}

// EditCandidate changes a candidate while the election is in DRAFT.
func (s *Service) EditCandidate(ctx context.Context, electionID, candidateID, name, party string) (models.Candidate, error) {
	if strings.TrimSpace(candidateID) == "" {
		return models.Candidate{}, apperr.New(apperr.CodeInvalidInput, "candidateId is required")
	}
	name, party, err := validateCandidate(name, party)
	if err != nil {
		return models.Candidate{}, err
	}

	c, err := s.store.EditCandidate(ctx, electionID, candidateID, name, party)
	if err != nil {
		return models.Candidate{}, err
	}

	s.logger.Info("candidate edited", "election_id", electionID, "candidate_id", c.ID)
	return c, nil
}

// SetStatus applies one lifecycle transition. The write is compare-and-set on
// the status that was checked, so two admins racing on the same election
// cannot both apply a transition from the same state.
func (s *Service) SetStatus(ctx context.Context, electionID, status string) (models.Election, error) {
	status = strings.ToUpper(strings.TrimSpace(status))

	e, err := s.store.GetElection(ctx, electionID)
	if err != nil {
		return models.Election{}, err
	}
	if err := guard.CheckTransition(e.Status, status); err != nil {
		return models.Election{}, err
	}
	if status == models.StatusActive && e.Status == models.StatusDraft {
		candidates, err := s.store.ListCandidates(ctx, electionID)
		if err != nil {
			return models.Election{}, err
		}
		if len(candidates) == 0 {
			return models.Election{}, apperr.New(apperr.CodeInvalidTransition, "Add at least one candidate before activating the election")
		}
	}

	if err := s.store.TransitionElectionStatus(ctx, electionID, e.Status, status); err != nil {
		return models.Election{}, err
	}

	s.logger.Info("election status changed", "election_id", electionID, "from", e.Status, "to", status)
	e.Status = status
	return e, nil
}

// AuthorizeVoters adds identity hashes to the guest list. Blank entries are
// dropped; duplicates are ignored. Returns how many were new.
func (s *Service) AuthorizeVoters(ctx context.Context, electionID string, identityHashes []string) (int, error) {
	if len(identityHashes) == 0 {
		return 0, apperr.New(apperr.CodeInvalidInput, "voterHashes must not be empty")
	}
	if len(identityHashes) > maxVoterBatch {
		return 0, apperr.New(apperr.CodeInvalidInput, "too many voterHashes in one request (max 10000)")
	}

	cleaned := make([]string, 0, len(identityHashes))
	for _, h := range identityHashes {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if len(h) > maxVoterHashLen {
			return 0, apperr.New(apperr.CodeInvalidInput, "voter hash is too long")
		}
		cleaned = append(cleaned, h)
	}
	if len(cleaned) == 0 {
		return 0, apperr.New(apperr.CodeInvalidInput, "voterHashes must contain at least one non-empty hash")
	}

	e, err := s.store.GetElection(ctx, electionID)
	if err != nil {
		return 0, err
	}
	if err := guard.CheckVoterRegistration(e); err != nil {
		return 0, err
	}

	added, err := s.store.BulkAuthorizeVoters(ctx, electionID, cleaned)
	if err != nil {
		return 0, err
	}

	s.logger.Info("voters authorized", "election_id", electionID, "submitted", len(cleaned), "added", added)
	return added, nil
}
