// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/ballotbox/models"
	"github.com/danielhkuo/ballotbox/testutil"
)

func castVote(t *testing.T, mux *http.ServeMux, voter string, body models.CastVoteRequest) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.MakeRequest("POST", "/cast-vote", body, voterHeader(t, voter))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestCastVote(t *testing.T) {
	store := testutil.SetupTestStore(t)
	mux := newTestMux(t, store, nil)
	e := testutil.CreateTestElection(t, store, models.StatusActive, "Alice", "Bob")
	testutil.AuthorizeTestVoters(t, store, e.ID, "voter-h")

	w := castVote(t, mux, "voter-h", models.CastVoteRequest{ElectionID: e.ID, Vote: "Alice", EncryptionKey: "1234"})
	testutil.AssertStatus(t, w, http.StatusCreated)

	body := w.Body.String()
	if strings.Contains(body, "Alice") {
		t.Error("Response must not echo the choice")
	}

	var resp models.CastVoteResponse
	testutil.AssertJSON(t, w, &resp)
	if len(resp.Receipt) != 64 {
		t.Errorf("Expected 64-char receipt, got %q", resp.Receipt)
	}
	if resp.Message == "" {
		t.Error("Expected a confirmation message")
	}
}

func TestCastVoteRejections(t *testing.T) {
	store := testutil.SetupTestStore(t)
	mux := newTestMux(t, store, nil)

	active := testutil.CreateTestElection(t, store, models.StatusActive, "Alice")
	testutil.AuthorizeTestVoters(t, store, active.ID, "voter-h", "voted-h")
	paused := testutil.CreateTestElection(t, store, models.StatusPaused, "Alice")
	testutil.AuthorizeTestVoters(t, store, paused.ID, "voter-h")
	future := testutil.CreateTestElectionAt(t, store, time.Now().Add(3*time.Hour), time.Now().Add(5*time.Hour), models.StatusActive, "Alice")
	testutil.AuthorizeTestVoters(t, store, future.ID, "voter-h")
	ended := testutil.CreateTestElectionAt(t, store, time.Now().Add(-5*time.Hour), time.Now().Add(-3*time.Hour), models.StatusActive, "Alice")
	testutil.AuthorizeTestVoters(t, store, ended.ID, "voter-h")

	if w := castVote(t, mux, "voted-h", models.CastVoteRequest{ElectionID: active.ID, Vote: "Alice", EncryptionKey: "1234"}); w.Code != http.StatusCreated {
		t.Fatalf("setup cast failed: %d %s", w.Code, w.Body.String())
	}

	testCases := []struct {
		name            string
		voter           string
		body            models.CastVoteRequest
		expectedStatus  int
		expectedCode    string
		messageContains string
	}{
		{"already voted", "voted-h", models.CastVoteRequest{ElectionID: active.ID, Vote: "Alice", EncryptionKey: "1234"},
			http.StatusConflict, "ALREADY_VOTED", "Vote already cast for this election"},
		{"not on guest list", "stranger", models.CastVoteRequest{ElectionID: active.ID, Vote: "Alice", EncryptionKey: "1234"},
			http.StatusForbidden, "NOT_AUTHORIZED", ""},
		{"paused", "voter-h", models.CastVoteRequest{ElectionID: paused.ID, Vote: "Alice", EncryptionKey: "1234"},
			http.StatusConflict, "NOT_ACTIVE", ""},
		{"not started", "voter-h", models.CastVoteRequest{ElectionID: future.ID, Vote: "Alice", EncryptionKey: "1234"},
			http.StatusConflict, "OUT_OF_WINDOW", "from now"},
		{"ended", "voter-h", models.CastVoteRequest{ElectionID: ended.ID, Vote: "Alice", EncryptionKey: "1234"},
			http.StatusConflict, "OUT_OF_WINDOW", "Election has ended"},
		{"unknown election", "voter-h", models.CastVoteRequest{ElectionID: "missing", Vote: "Alice", EncryptionKey: "1234"},
			http.StatusNotFound, "NOT_FOUND", ""},
		{"unknown candidate", "voter-h", models.CastVoteRequest{ElectionID: active.ID, Vote: "Zed", EncryptionKey: "1234"},
			http.StatusNotFound, "NOT_FOUND", ""},
		{"missing key", "voter-h", models.CastVoteRequest{ElectionID: active.ID, Vote: "Alice"},
			http.StatusBadRequest, "INVALID_INPUT", ""},
		{"bad key", "voter-h", models.CastVoteRequest{ElectionID: active.ID, Vote: "Alice", EncryptionKey: "abcd"},
			http.StatusBadRequest, "INVALID_INPUT", ""},
		{"missing election id", "voter-h", models.CastVoteRequest{Vote: "Alice", EncryptionKey: "1234"},
			http.StatusBadRequest, "INVALID_INPUT", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := castVote(t, mux, tc.voter, tc.body)
			testutil.AssertStatus(t, w, tc.expectedStatus)

			var resp models.ErrorResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Code != tc.expectedCode {
				t.Errorf("Expected code %s, got %s", tc.expectedCode, resp.Code)
			}
			if tc.messageContains != "" && !strings.Contains(resp.Message, tc.messageContains) {
				t.Errorf("Expected message containing %q, got %q", tc.messageContains, resp.Message)
			}
		})
	}
}

func TestCastVoteWithoutToken(t *testing.T) {
	store := testutil.SetupTestStore(t)
	mux := newTestMux(t, store, nil)

	req := testutil.MakeRequest("POST", "/cast-vote", models.CastVoteRequest{ElectionID: "e", Vote: "Alice", EncryptionKey: "1234"}, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	testutil.AssertStatus(t, w, http.StatusUnauthorized)
	testutil.AssertErrorCode(t, w, "AUTHENTICATION_FAILED")
}

func TestVerifyReceipt(t *testing.T) {
	store := testutil.SetupTestStore(t)
	mux := newTestMux(t, store, nil)
	e := testutil.CreateTestElection(t, store, models.StatusActive, "Alice")
	testutil.AuthorizeTestVoters(t, store, e.ID, "voter-h")

	w := castVote(t, mux, "voter-h", models.CastVoteRequest{ElectionID: e.ID, Vote: "Alice", EncryptionKey: "1234"})
	testutil.AssertStatus(t, w, http.StatusCreated)
	var cast models.CastVoteResponse
	testutil.AssertJSON(t, w, &cast)

	req := testutil.MakeRequest("GET", "/receipts/"+strings.ToUpper(cast.Receipt), nil, voterHeader(t, "voter-h"))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.ReceiptResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Receipt != cast.Receipt || resp.ElectionID != e.ID {
		t.Errorf("Unexpected receipt response: %+v", resp)
	}

	req = testutil.MakeRequest("GET", "/receipts/"+strings.Repeat("0", 64), nil, voterHeader(t, "voter-h"))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}
