// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballot

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/ballotbox/apperr"
	"github.com/danielhkuo/ballotbox/cipher"
	"github.com/danielhkuo/ballotbox/ledger"
	"github.com/danielhkuo/ballotbox/models"
	"github.com/danielhkuo/ballotbox/testutil"
)

var receiptPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func newService(store *ledger.Store, now time.Time) *Service {
	return NewService(store, nil, func() time.Time { return now })
}

func TestCastVote_ReceiptAndAlreadyVoted(t *testing.T) {
	store := testutil.SetupTestStore(t)
	e := testutil.CreateTestElection(t, store, models.StatusActive, "Alice", "Bob")
	testutil.AuthorizeTestVoters(t, store, e.ID, "voter-h")

	svc := NewService(store, nil, nil)
	ctx := context.Background()

	receipt, err := svc.CastVote(ctx, e.ID, "Alice", "1234", "voter-h")
	if err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}
	if !receiptPattern.MatchString(receipt) {
		t.Errorf("receipt = %q, want 64 lowercase hex chars", receipt)
	}

	_, err = svc.CastVote(ctx, e.ID, "Bob", "1234", "voter-h")
	if !apperr.HasCode(err, apperr.CodeAlreadyVoted) {
		t.Fatalf("second CastVote() error = %v, want ALREADY_VOTED", err)
	}
	if msg := apperr.MessageOf(err); msg != "Vote already cast for this election" {
		t.Errorf("message = %q", msg)
	}

	ballots, err := store.ListBallots(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ballots) != 1 {
		t.Fatalf("ballots = %d, want 1", len(ballots))
	}
	b := ballots[0]
	if b.ReceiptDigest != receipt {
		t.Error("stored receipt does not match returned receipt")
	}
	if b.IntegrityDigest != cipher.Digest([]byte(b.Ciphertext)) {
		t.Error("integrity digest does not match ciphertext")
	}
	plain, err := cipher.Decrypt(b.Ciphertext, "1234")
	if err != nil || plain != "Alice" {
		t.Errorf("Decrypt() = %q, %v; want Alice", plain, err)
	}

	auth, err := store.GetVoterAuthorization(ctx, e.ID, "voter-h")
	if err != nil || auth == nil || !auth.HasVoted {
		t.Errorf("voter should be marked as voted: %+v, %v", auth, err)
	}
}

func TestCastVote_ClockReadAgainAtCommit(t *testing.T) {
	store := testutil.SetupTestStore(t)
	start := time.Date(2026, 11, 3, 7, 0, 0, 0, time.UTC)
	end := time.Date(2026, 11, 3, 19, 0, 0, 0, time.UTC)
	e := testutil.CreateTestElectionAt(t, store, start, end, models.StatusActive, "Alice")
	testutil.AuthorizeTestVoters(t, store, e.ID, "voter-h")

	// The up-front check sees end_time; by commit the window has closed.
	var calls atomic.Int32
	clock := func() time.Time {
		if calls.Add(1) == 1 {
			return end
		}
		return end.Add(time.Second)
	}

	_, err := NewService(store, nil, clock).CastVote(context.Background(), e.ID, "Alice", "1234", "voter-h")
	if !apperr.HasCode(err, apperr.CodeOutOfWindow) {
		t.Fatalf("CastVote() error = %v, want OUT_OF_WINDOW", err)
	}
	if calls.Load() < 2 {
		t.Errorf("clock read %d times, want a second read inside the transaction", calls.Load())
	}

	ballots, err := store.ListBallots(context.Background(), e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ballots) != 0 {
		t.Errorf("ballots = %d, want 0", len(ballots))
	}
	auth, err := store.GetVoterAuthorization(context.Background(), e.ID, "voter-h")
	if err != nil || auth == nil || auth.HasVoted {
		t.Errorf("voter should not be marked as voted: %+v, %v", auth, err)
	}
}

func TestCastVote_Rejections(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	active := testutil.CreateTestElection(t, store, models.StatusActive, "Alice")
	testutil.AuthorizeTestVoters(t, store, active.ID, "voter-h")

	paused := testutil.CreateTestElection(t, store, models.StatusPaused, "Alice")
	testutil.AuthorizeTestVoters(t, store, paused.ID, "voter-h")

	draft := testutil.CreateTestElection(t, store, models.StatusDraft, "Alice")
	testutil.AuthorizeTestVoters(t, store, draft.ID, "voter-h")

	closed := testutil.CreateTestElection(t, store, models.StatusClosed, "Alice")

	tests := []struct {
		name       string
		electionID string
		choice     string
		pin        string
		voter      string
		want       apperr.Code
	}{
		{"unknown election", "missing", "Alice", "1234", "voter-h", apperr.CodeNotFound},
		{"draft", draft.ID, "Alice", "1234", "voter-h", apperr.CodeNotActive},
		{"paused", paused.ID, "Alice", "1234", "voter-h", apperr.CodeNotActive},
		{"closed", closed.ID, "Alice", "1234", "voter-h", apperr.CodeNotActive},
		{"not on guest list", active.ID, "Alice", "1234", "stranger", apperr.CodeNotAuthorized},
		{"unknown candidate", active.ID, "Mallory", "1234", "voter-h", apperr.CodeNotFound},
		{"empty choice", active.ID, "  ", "1234", "voter-h", apperr.CodeInvalidInput},
		{"short pin", active.ID, "Alice", "12", "voter-h", apperr.CodeInvalidInput},
		{"non-digit pin", active.ID, "Alice", "12ab", "voter-h", apperr.CodeInvalidInput},
		{"missing voter", active.ID, "Alice", "1234", "", apperr.CodeAuthenticationFailed},
	}

	svc := NewService(store, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CastVote(ctx, tt.electionID, tt.choice, tt.pin, tt.voter)
			if !apperr.HasCode(err, tt.want) {
				t.Errorf("CastVote() error = %v, want %s", err, tt.want)
			}
		})
	}

	// None of the rejected calls may have written anything.
	ballots, err := store.ListBallots(ctx, active.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ballots) != 0 {
		t.Errorf("rejected casts recorded %d ballots", len(ballots))
	}
	auth, _ := store.GetVoterAuthorization(ctx, active.ID, "voter-h")
	if auth == nil || auth.HasVoted {
		t.Errorf("rejected casts changed the guest list: %+v", auth)
	}
}

func TestCastVote_WindowBoundaries(t *testing.T) {
	store := testutil.SetupTestStore(t)
	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	e := testutil.CreateTestElectionAt(t, store, start, end, models.StatusActive, "Alice")
	testutil.AuthorizeTestVoters(t, store, e.ID, "early", "at-start", "at-end", "late")

	tests := []struct {
		name  string
		voter string
		now   time.Time
		want  apperr.Code
	}{
		{"one second before start", "early", start.Add(-time.Second), apperr.CodeOutOfWindow},
		{"exactly start", "at-start", start, ""},
		{"exactly end", "at-end", end, ""},
		{"one second after end", "late", end.Add(time.Second), apperr.CodeOutOfWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(store, tt.now)
			_, err := svc.CastVote(context.Background(), e.ID, "Alice", "1234", tt.voter)
			if tt.want == "" {
				if err != nil {
					t.Errorf("CastVote() error = %v", err)
				}
				return
			}
			if !apperr.HasCode(err, tt.want) {
				t.Errorf("CastVote() error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestCastVote_ConcurrentSameVoter(t *testing.T) {
	store := testutil.SetupTestStore(t)
	e := testutil.CreateTestElection(t, store, models.StatusActive, "Alice", "Bob")
	testutil.AuthorizeTestVoters(t, store, e.ID, "voter-h")
	svc := NewService(store, nil, nil)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		already   atomic.Int32
		other     atomic.Int32
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			choice := "Alice"
			if i%2 == 1 {
				choice = "Bob"
			}
			_, err := svc.CastVote(context.Background(), e.ID, choice, "1234", "voter-h")
			switch {
			case err == nil:
				successes.Add(1)
			case apperr.HasCode(err, apperr.CodeAlreadyVoted):
				already.Add(1)
			default:
				t.Logf("unexpected error: %v", err)
				other.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if successes.Load() != 1 {
		t.Errorf("successes = %d, want 1", successes.Load())
	}
	if already.Load() != attempts-1 {
		t.Errorf("ALREADY_VOTED = %d, want %d (other errors: %d)", already.Load(), attempts-1, other.Load())
	}

	ballots, err := store.ListBallots(context.Background(), e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ballots) != 1 {
		t.Errorf("ballots = %d, want 1", len(ballots))
	}
}

func TestCastVote_ConcurrentDistinctVoters(t *testing.T) {
	store := testutil.SetupTestStore(t)
	e := testutil.CreateTestElection(t, store, models.StatusActive, "Alice")

	const voters = 12
	hashes := make([]string, voters)
	for i := range hashes {
		hashes[i] = cipher.Digest([]byte{byte(i)})
	}
	testutil.AuthorizeTestVoters(t, store, e.ID, hashes...)
	svc := NewService(store, nil, nil)

	var wg sync.WaitGroup
	var failures atomic.Int32
	receipts := make([]string, voters)
	for i, h := range hashes {
		wg.Add(1)
		go func(i int, h string) {
			defer wg.Done()
			r, err := svc.CastVote(context.Background(), e.ID, "Alice", "4321", h)
			if err != nil {
				t.Logf("voter %d: %v", i, err)
				failures.Add(1)
				return
			}
			receipts[i] = r
		}(i, h)
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("%d casts failed", failures.Load())
	}
	seen := map[string]bool{}
	for _, r := range receipts {
		if seen[r] {
			t.Errorf("duplicate receipt %s", r)
		}
		seen[r] = true
	}

	stats, err := store.GuestListStats(context.Background(), e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Voted != voters {
		t.Errorf("voted = %d, want %d", stats.Voted, voters)
	}
}

func TestCastVote_PerElectionFlag(t *testing.T) {
	store := testutil.SetupTestStore(t)
	first := testutil.CreateTestElection(t, store, models.StatusActive, "Alice")
	second := testutil.CreateTestElection(t, store, models.StatusActive, "Alice")
	testutil.AuthorizeTestVoters(t, store, first.ID, "voter-h")
	testutil.AuthorizeTestVoters(t, store, second.ID, "voter-h")
	svc := NewService(store, nil, nil)

	if _, err := svc.CastVote(context.Background(), first.ID, "Alice", "1234", "voter-h"); err != nil {
		t.Fatalf("first election: %v", err)
	}
	if _, err := svc.CastVote(context.Background(), second.ID, "Alice", "1234", "voter-h"); err != nil {
		t.Errorf("voting in one election must not block another: %v", err)
	}
}

func TestVerifyReceipt(t *testing.T) {
	store := testutil.SetupTestStore(t)
	e := testutil.CreateTestElection(t, store, models.StatusActive, "Alice")
	testutil.AuthorizeTestVoters(t, store, e.ID, "voter-h")
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	receipt, err := svc.CastVote(ctx, e.ID, "Alice", "1234", "voter-h")
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.VerifyReceipt(ctx, receipt)
	if err != nil {
		t.Fatalf("VerifyReceipt() error = %v", err)
	}
	if got.ElectionID != e.ID || got.Receipt != receipt || got.CastAt == 0 {
		t.Errorf("VerifyReceipt() = %+v", got)
	}

	tests := []struct {
		name    string
		receipt string
		want    apperr.Code
	}{
		{"unknown", cipher.Digest([]byte("nope")), apperr.CodeNotFound},
		{"too short", "abc", apperr.CodeInvalidInput},
		{"not hex", "z" + receipt[1:], apperr.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyReceipt(ctx, tt.receipt)
			if !apperr.HasCode(err, tt.want) {
				t.Errorf("VerifyReceipt() error = %v, want %s", err, tt.want)
			}
		})
	}
}
