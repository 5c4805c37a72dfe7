// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package tally decrypts and counts the ballots of a closed election and
// audits ballot integrity.
package tally

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/ballotbox/apperr"
	"github.com/danielhkuo/ballotbox/cipher"
	"github.com/danielhkuo/ballotbox/guard"
	"github.com/danielhkuo/ballotbox/ledger"
	"github.com/danielhkuo/ballotbox/models"
	"github.com/danielhkuo/ballotbox/telemetry"
)

// Service tallies closed elections and audits ballot digests.
type Service struct {
	store   *ledger.Store
	logger  *slog.Logger
	workers int
}

// NewService builds a tallying service that opens ballots on GOMAXPROCS workers.
func NewService(store *ledger.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, workers: runtime.GOMAXPROCS(0)}
}

// Tally counts the ballots of a CLOSED election. A ballot that does not
// decrypt with key, or decrypts to a name that is not a candidate, is counted
// in DiscardedCount instead of failing the tally.
//
// A tally that runs out of time fails with DEADLINE_EXCEEDED. Resubmitting
// with the same deadline would fail the same way, so it is not reported as a
// transient store error.
func (s *Service) Tally(ctx context.Context, electionID, key string) (result models.TallyResult, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "tally.Tally",
		trace.WithAttributes(attribute.String("election.id", electionID)))
	defer func() {
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = apperr.Wrap(apperr.CodeDeadlineExceeded,
				"Tally did not finish within the request timeout; raise REQUEST_TIMEOUT", err)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperr.CodeOf(err)))
		}
		span.End()
	}()

	e, err := s.store.GetElection(ctx, electionID)
	if err != nil {
		return models.TallyResult{}, err
	}
	if err := guard.CheckTally(e); err != nil {
		return models.TallyResult{}, err
	}
	if key == "" {
		return models.TallyResult{}, apperr.New(apperr.CodeInvalidInput, "decryptionKey is required")
	}

	candidates, err := s.store.ListCandidates(ctx, electionID)
	if err != nil {
		return models.TallyResult{}, err
	}
	ballots, err := s.store.ListBallots(ctx, electionID)
	if err != nil {
		return models.TallyResult{}, err
	}

	// One key opens every ballot: the salt is per election.
	k, err := cipher.DeriveKey(key, cipher.ElectionSalt(electionID))
	if err != nil {
		return models.TallyResult{}, apperr.Wrap(apperr.CodeInternal, "Failed to derive decryption key", err)
	}
	choices, err := s.decryptAll(ctx, ballots, k)
	if err != nil {
		return models.TallyResult{}, err
	}

	index := make(map[string]int, len(candidates))
	result = models.TallyResult{
		ElectionID:   electionID,
		Results:      make([]models.CandidateCount, len(candidates)),
		TotalBallots: len(ballots),
	}
	for i, c := range candidates {
		index[c.Name] = i
		result.Results[i] = models.CandidateCount{Name: c.Name, Party: c.Party}
	}

	for _, choice := range choices {
		i, ok := index[choice]
		if !ok {
			result.DiscardedCount++
			continue
		}
		result.Results[i].Count++
	}

	span.SetAttributes(
		attribute.Int("tally.ballots", result.TotalBallots),
		attribute.Int("tally.discarded", result.DiscardedCount),
	)
	s.logger.Info("tally computed", "election_id", electionID,
		"ballots", result.TotalBallots, "discarded", result.DiscardedCount)
	return result, nil
}

// decryptAll opens every ballot with k on a bounded set of workers. A ballot
// that cannot be opened yields "" which never matches a candidate.
func (s *Service) decryptAll(ctx context.Context, ballots []models.Ballot, k *cipher.Key) ([]string, error) {
	choices := make([]string, len(ballots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.workers, 1))
	for i, b := range ballots {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			plain, err := k.Open(b.Ciphertext)
			if err != nil {
				s.logger.Debug("ballot discarded", "ballot_id", b.ID, "code", apperr.CodeOf(err))
				return nil
			}
			choices[i] = plain
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return choices, nil
}

// Audit recomputes the integrity digest of every ballot in the election and
// reports the ids that no longer match. It needs no key and works in any
// status.
func (s *Service) Audit(ctx context.Context, electionID string) (report models.AuditReport, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "tally.Audit",
		trace.WithAttributes(attribute.String("election.id", electionID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperr.CodeOf(err)))
		}
		span.End()
	}()

	if _, err := s.store.GetElection(ctx, electionID); err != nil {
		return models.AuditReport{}, err
	}
	ballots, err := s.store.ListBallots(ctx, electionID)
	if err != nil {
		return models.AuditReport{}, err
	}

	report = models.AuditReport{
		ElectionID:      electionID,
		TotalBallots:    len(ballots),
		TamperedBallots: []string{},
	}
	for _, b := range ballots {
		if cipher.Digest([]byte(b.Ciphertext)) != b.IntegrityDigest {
			report.TamperedBallots = append(report.TamperedBallots, b.ID)
		}
	}

	if len(report.TamperedBallots) > 0 {
		s.logger.Warn("ballot integrity check failed", "election_id", electionID,
			"tampered", len(report.TamperedBallots), "ballots", report.TotalBallots)
	}
	return report, nil
}
