package models

import "time"

// Election status constants
const (
	StatusDraft  = "DRAFT"
	StatusActive = "ACTIVE"
	StatusPaused = "PAUSED"
	StatusClosed = "CLOSED"
)

// Identity roles carried by bearer tokens
const (
	RoleVoter = "voter"
	RoleAdmin = "admin"
)

// ValidStatus reports whether s is one of the election statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusClosed:
		return true
	}
	return false
}

// Domain types

type Election struct {
	ID          string
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Status      string
	CreatedBy   string
	CreatedAt   time.Time
}

type NewElection struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	CreatedBy   string
}

type Candidate struct {
	ID         string `json:"id"`
	ElectionID string `json:"electionId"`
	Name       string `json:"name"`
	Party      string `json:"party"`
}

// VoterAuthorization is one guest-list row.
type VoterAuthorization struct {
	ElectionID string
	VoterHash  string
	HasVoted   bool
}

// Ballot is an append-only vote row. It never carries the voter identity.
type Ballot struct {
	ID              string
	ElectionID      string
	Ciphertext      string
	IntegrityDigest string
	ReceiptDigest   string
	CastAt          time.Time
}

type GuestListStats struct {
	Authorized int `json:"authorized"`
	Voted      int `json:"voted"`
}

// Tally types

type CandidateCount struct {
	Name  string `json:"name"`
	Party string `json:"party"`
	Count int    `json:"count"`
}

type TallyResult struct {
	ElectionID     string           `json:"electionId"`
	Results        []CandidateCount `json:"results"`
	DiscardedCount int              `json:"discardedCount"`
	TotalBallots   int              `json:"totalBallots"`
}

type AuditReport struct {
	ElectionID      string   `json:"electionId"`
	TotalBallots    int      `json:"totalBallots"`
	TamperedBallots []string `json:"tamperedBallots"`
}

// Request types

// CreateElectionRequest times are epoch seconds. They are pointers so an
// absent field can be told apart from 0.
type CreateElectionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   *int64 `json:"start_time"`
	EndTime     *int64 `json:"end_time"`
}

type AddCandidateRequest struct {
	ElectionID string `json:"electionId"`
	Name       string `json:"name"`
	Party      string `json:"party"`
}

type EditCandidateRequest struct {
	ElectionID  string `json:"electionId"`
	CandidateID string `json:"candidateId"`
	Name        string `json:"name"`
	Party       string `json:"party"`
}

type SetStatusRequest struct {
	ElectionID string `json:"electionId"`
	Status     string `json:"status"`
}

type RegisterVotersRequest struct {
	ElectionID  string   `json:"electionId"`
	VoterHashes []string `json:"voterHashes"`
}

type CastVoteRequest struct {
	ElectionID    string `json:"electionId"`
	Vote          string `json:"vote"`
	EncryptionKey string `json:"encryptionKey"`
}

// Response types

// ElectionView is the wire form of an Election; times are epoch seconds.
type ElectionView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   int64  `json:"start_time"`
	EndTime     int64  `json:"end_time"`
	Status      string `json:"status"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   int64  `json:"created_at"`
}

func NewElectionView(e Election) ElectionView {
	return ElectionView{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		StartTime:   e.StartTime.Unix(),
		EndTime:     e.EndTime.Unix(),
		Status:      e.Status,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt.Unix(),
	}
}

type ElectionDetail struct {
	Election   ElectionView   `json:"election"`
	Candidates []Candidate    `json:"candidates"`
	GuestList  GuestListStats `json:"guestList"`
}

type CreateElectionResponse struct {
	ElectionID string `json:"electionId"`
	Status     string `json:"status"`
}

type SetStatusResponse struct {
	ElectionID string `json:"electionId"`
	Status     string `json:"status"`
}

type RegisterVotersResponse struct {
	ElectionID string `json:"electionId"`
	Added      int    `json:"added"`
	Submitted  int    `json:"submitted"`
}

type CastVoteResponse struct {
	Receipt string `json:"receipt"`
	Message string `json:"message"`
}

type ReceiptResponse struct {
	Receipt    string `json:"receipt"`
	ElectionID string `json:"electionId"`
	CastAt     int64  `json:"cast_at"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
