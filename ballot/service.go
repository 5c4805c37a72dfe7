// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballot

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielhkuo/ballotbox/apperr"
	"github.com/danielhkuo/ballotbox/cipher"
	"github.com/danielhkuo/ballotbox/guard"
	"github.com/danielhkuo/ballotbox/ledger"
	"github.com/danielhkuo/ballotbox/models"
	"github.com/danielhkuo/ballotbox/telemetry"
)

// Service casts ballots and verifies receipts.
type Service struct {
	store  *ledger.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a casting service. now defaults to time.Now.
func NewService(store *ledger.Store, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, logger: logger, now: now}
}

// CastVote encrypts choice with pin and records it as the voter's only ballot
// in the election. It returns the receipt digest and nothing else.
//
// Every eligibility rule is checked twice: once up front so a rejected voter
// causes no work, and again inside the ledger transaction so a concurrent
// close or a concurrent cast by the same voter cannot slip through. The second
// check reads the clock again, so a ballot cannot commit after end_time.
func (s *Service) CastVote(ctx context.Context, electionID, choice, pin, voterHash string) (receipt string, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ballot.CastVote",
		trace.WithAttributes(attribute.String("election.id", electionID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperr.CodeOf(err)))
		}
		span.End()
	}()

	voterHash = strings.TrimSpace(voterHash)
	if voterHash == "" {
		return "", apperr.New(apperr.CodeAuthenticationFailed, "Voter identity is missing")
	}

	now := s.now()

	e, err := s.store.GetElection(ctx, electionID)
	if err != nil {
		return "", err
	}
	auth, err := s.store.GetVoterAuthorization(ctx, electionID, voterHash)
	if err != nil {
		return "", err
	}
	if err := guard.CheckCast(e, auth, now); err != nil {
		return "", err
	}

	choice, err = s.resolveChoice(ctx, electionID, choice)
	if err != nil {
		return "", err
	}
	if err := cipher.ValidateKey(pin); err != nil {
		return "", err
	}

	ciphertext, err := cipher.Encrypt(choice, pin, cipher.ElectionSalt(electionID))
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "Failed to encrypt ballot", err)
	}

	b := models.Ballot{
		ElectionID:      electionID,
		Ciphertext:      ciphertext,
		IntegrityDigest: cipher.Digest([]byte(ciphertext)),
		ReceiptDigest:   cipher.ReceiptDigest(voterHash, electionID, now),
		CastAt:          now,
	}

	recorded, err := s.store.RecordBallot(ctx, voterHash, b, func(e models.Election, auth *models.VoterAuthorization) error {
		return guard.CheckCast(e, auth, s.now())
	})
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeInternal {
			s.logger.Error("failed to record ballot", "election_id", electionID, "error", err)
		}
		return "", err
	}

	s.logger.Info("ballot recorded", "election_id", electionID, "ballot_id", recorded.ID)
	return recorded.ReceiptDigest, nil
}

// resolveChoice returns the candidate name the choice refers to.
func (s *Service) resolveChoice(ctx context.Context, electionID, choice string) (string, error) {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return "", apperr.New(apperr.CodeInvalidInput, "vote is required")
	}

	candidates, err := s.store.ListCandidates(ctx, electionID)
	if err != nil {
		return "", err
	}
	for _, c := range candidates {
		if c.Name == choice {
			return c.Name, nil
		}
	}
	return "", apperr.New(apperr.CodeNotFound, "No candidate named \""+choice+"\" in this election")
}

// VerifyReceipt confirms that a ballot was recorded with the given receipt.
// It reveals when and in which election, never the choice.
func (s *Service) VerifyReceipt(ctx context.Context, receipt string) (models.ReceiptResponse, error) {
	receipt = strings.ToLower(strings.TrimSpace(receipt))
	if len(receipt) != 64 {
		return models.ReceiptResponse{}, apperr.New(apperr.CodeInvalidInput, "receipt must be 64 hex characters")
	}
	if _, err := hex.DecodeString(receipt); err != nil {
		return models.ReceiptResponse{}, apperr.New(apperr.CodeInvalidInput, "receipt must be 64 hex characters")
	}

	b, err := s.store.FindBallotByReceipt(ctx, receipt)
	if err != nil {
		return models.ReceiptResponse{}, err
	}
	return models.ReceiptResponse{
		Receipt:    b.ReceiptDigest,
		ElectionID: b.ElectionID,
		CastAt:     b.CastAt.Unix(),
	}, nil
}
