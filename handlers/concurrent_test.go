// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/ballotbox/models"
	"github.com/danielhkuo/ballotbox/testutil"
)

// TestConcurrentDoubleCast sends the same voter's ballot many times at once.
// Exactly one must be recorded.
func TestConcurrentDoubleCast(t *testing.T) {
	store := testutil.SetupTestStore(t)
	mux := newTestMux(t, store, nil)
	e := testutil.CreateTestElection(t, store, models.StatusActive, "Alice", "Bob")
	testutil.AuthorizeTestVoters(t, store, e.ID, "voter-h")

	const attempts = 8
	var created, conflicts atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := castVote(t, mux, "voter-h", models.CastVoteRequest{ElectionID: e.ID, Vote: "Bob", EncryptionKey: "1234"})
			switch w.Code {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict:
				conflicts.Add(1)
			default:
				t.Errorf("Unexpected status %d: %s", w.Code, w.Body.String())
			}
		}()
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("Expected exactly 1 recorded ballot, got %d", created.Load())
	}
	if conflicts.Load() != attempts-1 {
		t.Errorf("Expected %d conflicts, got %d", attempts-1, conflicts.Load())
	}

	ballots, err := store.ListBallots(t.Context(), e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ballots) != 1 {
		t.Errorf("Expected 1 ballot row, got %d", len(ballots))
	}
}

// TestConcurrentVotersAndClose races many voters against closing the
// election. Every ballot that was accepted must be in the tally and every
// voter flagged as voted must have a ballot.
func TestConcurrentVotersAndClose(t *testing.T) {
	store := testutil.SetupTestStore(t)
	mux := newTestMux(t, store, nil)
	e := testutil.CreateTestElection(t, store, models.StatusActive, "Alice")

	const voters = 10
	for i := 0; i < voters; i++ {
		testutil.AuthorizeTestVoters(t, store, e.ID, fmt.Sprintf("v%d", i))
	}

	closeReq := testutil.MakeRequest("PATCH", "/election-status",
		models.SetStatusRequest{ElectionID: e.ID, Status: "CLOSED"}, adminHeader(t))

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := castVote(t, mux, fmt.Sprintf("v%d", i), models.CastVoteRequest{ElectionID: e.ID, Vote: "Alice", EncryptionKey: "1234"})
			if w.Code == http.StatusCreated {
				accepted.Add(1)
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, closeReq)
		if w.Code != http.StatusOK {
			t.Errorf("close failed: %d %s", w.Code, w.Body.String())
		}
	}()
	wg.Wait()

	stats, err := store.GuestListStats(t.Context(), e.ID)
	if err != nil {
		t.Fatal(err)
	}
	ballots, err := store.ListBallots(t.Context(), e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if int(accepted.Load()) != len(ballots) || stats.Voted != len(ballots) {
		t.Errorf("accepted=%d ballots=%d voted=%d; all three must agree", accepted.Load(), len(ballots), stats.Voted)
	}
}

// TestParallelElections checks that voting in separate elections doesn't
// interfere.
func TestParallelElections(t *testing.T) {
	store := testutil.SetupTestStore(t)
	mux := newTestMux(t, store, nil)

	const elections = 4
	ids := make([]string, elections)
	for i := range ids {
		e := testutil.CreateTestElection(t, store, models.StatusActive, "Alice", "Bob")
		testutil.AuthorizeTestVoters(t, store, e.ID, "shared-voter")
		ids[i] = e.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			w := castVote(t, mux, "shared-voter", models.CastVoteRequest{ElectionID: id, Vote: "Alice", EncryptionKey: "1234"})
			if w.Code != http.StatusCreated {
				t.Errorf("election %s: status %d: %s", id, w.Code, w.Body.String())
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		ballots, err := store.ListBallots(t.Context(), id)
		if err != nil {
			t.Fatal(err)
		}
		if len(ballots) != 1 {
			t.Errorf("election %s: expected 1 ballot, got %d", id, len(ballots))
		}
	}
}
