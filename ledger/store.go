// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/ballotbox/apperr"
	"github.com/danielhkuo/ballotbox/db"
	"github.com/danielhkuo/ballotbox/guard"
	"github.com/danielhkuo/ballotbox/models"
)

// CastCheck decides, inside the ballot transaction, whether the voter may
// still cast. auth is nil when the voter has no guest-list row.
type CastCheck func(e models.Election, auth *models.VoterAuthorization) error

// Store is the single owner of every persisted election, candidate,
// guest-list row and ballot.
type Store struct {
	db      *sql.DB
	dialect db.Dialect
	now     func() time.Time
}

// New wraps an open connection. The caller owns the connection's lifetime.
func New(conn *sql.DB, dialect db.Dialect) *Store {
	return &Store{db: conn, dialect: dialect, now: time.Now}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// lockClause returns the row-lock suffix for reads that must serialize with
// concurrent status writes. SQLite already runs one transaction at a time.
func (s *Store) lockClause(mode string) string {
	if s.dialect == db.Postgres {
		return " FOR " + mode
	}
	return ""
}

// inTx runs fn in a transaction and commits it. Any error rolls the whole
// transaction back before it is returned.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin "+op, err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			return fmt.Errorf("%w: rollback %s: %v", cause, op, rollbackErr)
		}
		return cause
	}

	if err := fn(tx); err != nil {
		return rollbackWith(storeError(op, err))
	}
	if err := tx.Commit(); err != nil {
		return rollbackWith(storeError("commit "+op, err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const electionColumns = `id, title, description, start_time, end_time, status, created_by, created_at`

func scanElection(row rowScanner) (models.Election, error) {
	var e models.Election
	var startMs, endMs, createdAtMs int64
	err := row.Scan(&e.ID, &e.Title, &e.Description, &startMs, &endMs, &e.Status, &e.CreatedBy, &createdAtMs)
	if err != nil {
		return models.Election{}, err
	}
	e.StartTime = fromMillis(startMs)
	e.EndTime = fromMillis(endMs)
	e.CreatedAt = fromMillis(createdAtMs)
	return e, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getElection(ctx context.Context, q queryRower, id, lock string) (models.Election, error) {
	e, err := scanElection(q.QueryRowContext(ctx,
		`SELECT `+electionColumns+` FROM elections WHERE id = $1`+lock, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Election{}, apperr.New(apperr.CodeNotFound, "Election not found")
	}
	return e, err
}

// CreateElection inserts a new election. It always starts in DRAFT.
func (s *Store) CreateElection(ctx context.Context, in models.NewElection) (models.Election, error) {
	e := models.Election{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		StartTime:   fromMillis(toMillis(in.StartTime)),
		EndTime:     fromMillis(toMillis(in.EndTime)),
		Status:      models.StatusDraft,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   fromMillis(toMillis(s.now())),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO elections (id, title, description, start_time, end_time, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.Title, e.Description, toMillis(e.StartTime), toMillis(e.EndTime), e.Status, e.CreatedBy, toMillis(e.CreatedAt))
	if err != nil {
		return models.Election{}, storeError("create election", err)
	}
	return e, nil
}

// GetElection returns one election or NOT_FOUND.
func (s *Store) GetElection(ctx context.Context, id string) (models.Election, error) {
	e, err := s.getElection(ctx, s.db, id, "")
	if err != nil {
		return models.Election{}, storeError("get election", err)
	}
	return e, nil
}

// ListElections returns every election, newest first.
func (s *Store) ListElections(ctx context.Context) ([]models.Election, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+electionColumns+` FROM elections ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, storeError("list elections", err)
	}
	defer rows.Close()

	elections := []models.Election{}
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, storeError("scan election", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list elections", err)
	}
	return elections, nil
}

// SetElectionStatus writes status unconditionally. Transition policy belongs
// to the caller; see TransitionElectionStatus.
func (s *Store) SetElectionStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE elections SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return storeError("set election status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeError("set election status", err)
	}
	if n == 0 {
		return apperr.New(apperr.CodeNotFound, "Election not found")
	}
	return nil
}

// TransitionElectionStatus moves an election from one status to another only
// if it is still in from. A concurrent change makes it fail with
// TRANSIENT_STORE_ERROR so the caller can re-read and retry.
func (s *Store) TransitionElectionStatus(ctx context.Context, id, from, to string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE elections SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return storeError("transition election status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeError("transition election status", err)
	}
	if n == 0 {
		if _, err := s.GetElection(ctx, id); err != nil {
			return err
		}
		return apperr.New(apperr.CodeTransientStore, "Election status changed concurrently; please retry")
	}
	return nil
}

// AddCandidate adds a candidate to a DRAFT election.
func (s *Store) AddCandidate(ctx context.Context, electionID, name, party string) (models.Candidate, error) {
	c := models.Candidate{
		ID:         uuid.NewString(),
		ElectionID: electionID,
		Name:       name,
		Party:      party,
	}

	err := s.inTx(ctx, "add candidate", func(tx *sql.Tx) error {
		e, err := s.getElection(ctx, tx, electionID, s.lockClause("SHARE"))
		if err != nil {
			return err
		}
		if err := guard.CheckCandidateMutation(e); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO candidates (id, election_id, name, party, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, c.ID, c.ElectionID, c.Name, c.Party, s.now().UTC().UnixNano())
		if isUniqueViolation(err) {
			return apperr.New(apperr.CodeAlreadyExists, fmt.Sprintf("Candidate %q already exists in this election", name))
		}
		return err
	})
	if err != nil {
		return models.Candidate{}, err
	}
	return c, nil
}

// EditCandidate renames a candidate or changes their party while the election
// is still in DRAFT.
func (s *Store) EditCandidate(ctx context.Context, electionID, candidateID, name, party string) (models.Candidate, error) {
	c := models.Candidate{ID: candidateID, ElectionID: electionID, Name: name, Party: party}

	err := s.inTx(ctx, "edit candidate", func(tx *sql.Tx) error {
		e, err := s.getElection(ctx, tx, electionID, s.lockClause("SHARE"))
		if err != nil {
			return err
		}
		if err := guard.CheckCandidateMutation(e); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE candidates SET name = $1, party = $2
			WHERE id = $3 AND election_id = $4
		`, name, party, candidateID, electionID)
		if isUniqueViolation(err) {
			return apperr.New(apperr.CodeAlreadyExists, fmt.Sprintf("Candidate %q already exists in this election", name))
		}
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.New(apperr.CodeNotFound, "Candidate not found")
		}
		return nil
	})
	if err != nil {
		return models.Candidate{}, err
	}
	return c, nil
}

// ListCandidates returns the election's candidates in the order they were added.
func (s *Store) ListCandidates(ctx context.Context, electionID string) ([]models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, election_id, name, party
		FROM candidates
		WHERE election_id = $1
		ORDER BY created_at, id
	`, electionID)
	if err != nil {
		return nil, storeError("list candidates", err)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Name, &c.Party); err != nil {
			return nil, storeError("scan candidate", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list candidates", err)
	}
	return candidates, nil
}

// BulkAuthorizeVoters adds identity hashes to the election's guest list.
// Hashes already present are skipped. Returns how many rows were new.
func (s *Store) BulkAuthorizeVoters(ctx context.Context, electionID string, identityHashes []string) (int, error) {
	added := 0
	err := s.inTx(ctx, "authorize voters", func(tx *sql.Tx) error {
		if _, err := s.getElection(ctx, tx, electionID, ""); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO election_voters (election_id, voter_hash, has_voted)
			VALUES ($1, $2, 0)
			ON CONFLICT DO NOTHING
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, hash := range identityHashes {
			res, err := stmt.ExecContext(ctx, electionID, hash)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func (s *Store) getVoterAuthorization(ctx context.Context, q queryRower, electionID, identityHash string) (*models.VoterAuthorization, error) {
	var hasVoted int
	err := q.QueryRowContext(ctx, `
		SELECT has_voted FROM election_voters
		WHERE election_id = $1 AND voter_hash = $2
	`, electionID, identityHash).Scan(&hasVoted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.VoterAuthorization{
		ElectionID: electionID,
		VoterHash:  identityHash,
		HasVoted:   hasVoted == 1,
	}, nil
}

// GetVoterAuthorization returns the guest-list row, or nil if the voter is
// not on the list.
func (s *Store) GetVoterAuthorization(ctx context.Context, electionID, identityHash string) (*models.VoterAuthorization, error) {
	auth, err := s.getVoterAuthorization(ctx, s.db, electionID, identityHash)
	if err != nil {
		return nil, storeError("get voter authorization", err)
	}
	return auth, nil
}

// GuestListStats counts authorized voters and how many have voted.
func (s *Store) GuestListStats(ctx context.Context, electionID string) (models.GuestListStats, error) {
	var stats models.GuestListStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(has_voted), 0)
		FROM election_voters
		WHERE election_id = $1
	`, electionID).Scan(&stats.Authorized, &stats.Voted)
	if err != nil {
		return models.GuestListStats{}, storeError("guest list stats", err)
	}
	return stats, nil
}

// RecordBallot stores a ballot and marks the voter as having voted in one
// transaction. check runs against the election and guest-list row as read
// inside that transaction; if it fails, nothing is written.
//
// The has-voted flip is conditional on has_voted = 0, so of two concurrent
// calls for the same voter exactly one can update the row.
func (s *Store) RecordBallot(ctx context.Context, identityHash string, b models.Ballot, check CastCheck) (models.Ballot, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	err := s.inTx(ctx, "record ballot", func(tx *sql.Tx) error {
		e, err := s.getElection(ctx, tx, b.ElectionID, s.lockClause("SHARE"))
		if err != nil {
			return err
		}
		auth, err := s.getVoterAuthorization(ctx, tx, b.ElectionID, identityHash)
		if err != nil {
			return err
		}
		if err := check(e, auth); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE election_voters SET has_voted = 1
			WHERE election_id = $1 AND voter_hash = $2 AND has_voted = 0
		`, b.ElectionID, identityHash)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.New(apperr.CodeAlreadyVoted, "Vote already cast for this election")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO votes (id, election_id, encrypted_vote, vote_hash, receipt_hash, cast_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, b.ID, b.ElectionID, b.Ciphertext, b.IntegrityDigest, b.ReceiptDigest, toMillis(b.CastAt))
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.CodeTransientStore, "Receipt collision; please retry", err)
		}
		return err
	})
	if err != nil {
		return models.Ballot{}, err
	}
	b.CastAt = fromMillis(toMillis(b.CastAt))
	return b, nil
}

const ballotColumns = `id, election_id, encrypted_vote, vote_hash, receipt_hash, cast_at`

func scanBallot(row rowScanner) (models.Ballot, error) {
	var (
		b        models.Ballot
		castAtMs int64
	)
	if err := row.Scan(&b.ID, &b.ElectionID, &b.Ciphertext, &b.IntegrityDigest, &b.ReceiptDigest, &castAtMs); err != nil {
		return models.Ballot{}, err
	}
	b.CastAt = fromMillis(castAtMs)
	return b, nil
}

// ListBallots returns every ballot for an election in cast order.
func (s *Store) ListBallots(ctx context.Context, electionID string) ([]models.Ballot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ballotColumns+`
		FROM votes
		WHERE election_id = $1
		ORDER BY cast_at, id
	`, electionID)
	if err != nil {
		return nil, storeError("list ballots", err)
	}
	defer rows.Close()

	ballots := []models.Ballot{}
	for rows.Next() {
		b, err := scanBallot(rows)
		if err != nil {
			return nil, storeError("scan ballot", err)
		}
		ballots = append(ballots, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list ballots", err)
	}
	return ballots, nil
}

// FindBallotByReceipt looks up the ballot issued with the given receipt.
func (s *Store) FindBallotByReceipt(ctx context.Context, receipt string) (models.Ballot, error) {
	b, err := scanBallot(s.db.QueryRowContext(ctx,
		`SELECT `+ballotColumns+` FROM votes WHERE receipt_hash = $1`, strings.ToLower(receipt)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Ballot{}, apperr.New(apperr.CodeNotFound, "No ballot was recorded with this receipt")
	}
	if err != nil {
		return models.Ballot{}, storeError("find ballot", err)
	}
	return b, nil
}
