package models

import "time"

// VoteRecord is the authoritative vote row kept in the primary store.
type VoteRecord struct {
	ID            string    `json:"_id,omitempty"`
	CandidateName string    `json:"candidateName"`
	VoterID       string    `json:"voterId"`
	Timestamp     time.Time `json:"timestamp"`
	BlockHash     string    `json:"blockHash"`
	PreviousHash  string    `json:"previousHash"`
}

// VoteEvent is the input of block construction: the vote facts plus the
// request context they were cast from.
type VoteEvent struct {
	CandidateName  string
	VoterID        string
	ElectionID     string
	PollingStation string
	DeviceInfo     string
	IPAddress      string
}

// MirrorVote is the flat copy of a vote kept next to the chain in the mirror
// store for querying.
type MirrorVote struct {
	CandidateName string    `json:"candidateName" firestore:"candidateName"`
	VoterID       string    `json:"voterId" firestore:"voterId"`
	Timestamp     time.Time `json:"timestamp" firestore:"timestamp"`
	BlockHash     string    `json:"blockHash" firestore:"blockHash"`
	Verified      bool      `json:"verified" firestore:"verified"`
}
