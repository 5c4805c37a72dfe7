// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package guard

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/ballotbox/apperr"
	"github.com/danielhkuo/ballotbox/models"
)

// transitions lists every allowed status change. Nothing leaves CLOSED and
// nothing returns to DRAFT.
var transitions = map[string][]string{
	models.StatusDraft:  {models.StatusActive},
	models.StatusActive: {models.StatusPaused, models.StatusClosed},
	models.StatusPaused: {models.StatusActive, models.StatusClosed},
}

// CanTransition reports whether an election may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns INVALID_TRANSITION when from -> to is not allowed.
func CheckTransition(from, to string) error {
	if !models.ValidStatus(to) {
		return apperr.New(apperr.CodeInvalidInput, "status must be one of DRAFT, ACTIVE, PAUSED, CLOSED")
	}
	if CanTransition(from, to) {
		return nil
	}
	switch {
	case from == models.StatusClosed:
		return apperr.New(apperr.CodeInvalidTransition, "Election is closed; its status can no longer change")
	case to == models.StatusDraft:
		return apperr.New(apperr.CodeInvalidTransition, "An election cannot return to DRAFT")
	case from == to:
		return apperr.New(apperr.CodeInvalidTransition, fmt.Sprintf("Election is already %s", to))
	default:
		return apperr.New(apperr.CodeInvalidTransition, fmt.Sprintf("Cannot change election status from %s to %s", from, to))
	}
}

// CheckCandidateMutation enforces the integrity lock: candidates may only be
// added or edited while the election is in DRAFT.
func CheckCandidateMutation(e models.Election) error {
	if e.Status != models.StatusDraft {
		return apperr.New(apperr.CodeIntegrityLocked, "Candidates are locked once the election leaves DRAFT")
	}
	return nil
}

// CheckVoterRegistration rejects guest-list changes for closed elections.
func CheckVoterRegistration(e models.Election) error {
	if e.Status == models.StatusClosed {
		return apperr.New(apperr.CodeNotActive, "Election is closed; the guest list can no longer change")
	}
	return nil
}

// CheckCast runs every eligibility rule for one cast-vote attempt, in order:
// status, voting window, guest list, has-voted. A nil auth means the voter has
// no guest-list row for this election.
func CheckCast(e models.Election, auth *models.VoterAuthorization, now time.Time) error {
	switch e.Status {
	case models.StatusActive:
	case models.StatusDraft:
		return apperr.New(apperr.CodeNotActive, "Election has not been opened for voting yet")
	case models.StatusPaused:
		return apperr.New(apperr.CodeNotActive, "Voting is paused for this election")
	case models.StatusClosed:
		return apperr.New(apperr.CodeNotActive, "Election is closed")
	default:
		return apperr.New(apperr.CodeNotActive, "Election is not active")
	}

	if err := CheckWindow(e, now); err != nil {
		return err
	}

	if auth == nil {
		return apperr.New(apperr.CodeNotAuthorized, "You are not on the voter list for this election")
	}
	if auth.HasVoted {
		return apperr.New(apperr.CodeAlreadyVoted, "Vote already cast for this election")
	}
	return nil
}

// CheckWindow requires now to fall within [StartTime, EndTime], inclusive at
// both ends.
func CheckWindow(e models.Election, now time.Time) error {
	if now.Before(e.StartTime) {
		return apperr.New(apperr.CodeOutOfWindow,
			"Election has not started yet; voting opens "+humanize.RelTime(e.StartTime, now, "ago", "from now"))
	}
	if now.After(e.EndTime) {
		return apperr.New(apperr.CodeOutOfWindow,
			"Election has ended; voting closed "+humanize.RelTime(e.EndTime, now, "ago", "from now"))
	}
	return nil
}

// CheckTally allows decryption and counting only for CLOSED elections.
func CheckTally(e models.Election) error {
	if e.Status != models.StatusClosed {
		return apperr.New(apperr.CodeTallyingNotAllowed,
			fmt.Sprintf("Election must be CLOSED before tallying (currently %s)", e.Status))
	}
	return nil
}
