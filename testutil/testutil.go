// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/ballotbox/auth"
	"github.com/danielhkuo/ballotbox/cliparse"
	"github.com/danielhkuo/ballotbox/db"
	"github.com/danielhkuo/ballotbox/ledger"
	"github.com/danielhkuo/ballotbox/models"
)

// TestTokenSecret signs every token minted in tests.
const TestTokenSecret = "test-token-secret-0123456789"

// SetupTestStore opens a fresh SQLite ledger in a temp dir with the full schema.
func SetupTestStore(t *testing.T) *ledger.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	conn, err := db.Open(context.Background(), db.SQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	store := ledger.New(conn, db.SQLite)
	t.Cleanup(func() { store.Close() })
	return store
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    ":memory:",
		DatabaseType:   "sqlite",
		TokenSecret:    TestTokenSecret,
		LogLevel:       "info",
		RequestTimeout: 5 * time.Second,
	}
}

// CreateTestElection creates an election whose window is open now, adds the
// candidates while it is in DRAFT, then moves it to status.
func CreateTestElection(t *testing.T, store *ledger.Store, status string, candidates ...string) models.Election {
	t.Helper()
	now := time.Now()
	return CreateTestElectionAt(t, store, now.Add(-time.Hour), now.Add(time.Hour), status, candidates...)
}

// CreateTestElectionAt is CreateTestElection with an explicit voting window.
// Candidates are stored with party "Party <name>".
func CreateTestElectionAt(t *testing.T, store *ledger.Store, start, end time.Time, status string, candidates ...string) models.Election {
	t.Helper()
	ctx := context.Background()

	e, err := store.CreateElection(ctx, models.NewElection{
		Title:       "Test Election",
		Description: "A test election",
		StartTime:   start,
		EndTime:     end,
		CreatedBy:   "test-admin",
	})
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	for _, name := range candidates {
		if _, err := store.AddCandidate(ctx, e.ID, name, "Party "+name); err != nil {
			t.Fatalf("Failed to add test candidate %q: %v", name, err)
		}
	}

	if status != models.StatusDraft {
		if err := store.SetElectionStatus(ctx, e.ID, status); err != nil {
			t.Fatalf("Failed to set test election status: %v", err)
		}
		e.Status = status
	}
	return e
}

// SetTestStatus forces an election into status, bypassing transition rules.
func SetTestStatus(t *testing.T, store *ledger.Store, electionID, status string) {
	t.Helper()
	if err := store.SetElectionStatus(context.Background(), electionID, status); err != nil {
		t.Fatalf("Failed to set test election status: %v", err)
	}
}

// AuthorizeTestVoters puts identity hashes on the election's guest list.
func AuthorizeTestVoters(t *testing.T, store *ledger.Store, electionID string, hashes ...string) {
	t.Helper()
	if _, err := store.BulkAuthorizeVoters(context.Background(), electionID, hashes); err != nil {
		t.Fatalf("Failed to authorize test voters: %v", err)
	}
}

// MintToken signs a bearer token with TestTokenSecret.
func MintToken(t *testing.T, subjectHash, role string) string {
	t.Helper()
	token, err := auth.IssueToken(auth.Identity{SubjectHash: subjectHash, Role: role}, TestTokenSecret, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Failed to mint test token: %v", err)
	}
	return token
}

// BearerHeader returns request headers carrying a freshly minted token.
func BearerHeader(t *testing.T, subjectHash, role string) map[string]string {
	t.Helper()
	return map[string]string{"Authorization": "Bearer " + MintToken(t, subjectHash, role)}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// AssertErrorCode decodes an error response and checks its code.
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, code string) {
	t.Helper()
	var resp models.ErrorResponse
	AssertJSON(t, w, &resp)
	if resp.Code != code {
		t.Errorf("Expected error code %s, got %s (message: %s)", code, resp.Code, resp.Message)
	}
}
