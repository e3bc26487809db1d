package models

import "time"

type Candidate struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Party        string    `json:"party"`
	Constituency string    `json:"constituency"`
	Photo        string    `json:"photo,omitempty"` // data URL
	CreatedAt    time.Time `json:"createdAt"`
}

// CandidateUpdate carries the fields of a candidate edit. A nil Photo keeps
// the stored photo.
type CandidateUpdate struct {
	Name         string
	Party        string
	Constituency string
	Photo        *string
}

type DashboardStats struct {
	TotalVoters     int `json:"totalVoters"`
	TotalVotes      int `json:"totalVotes"`
	TotalCandidates int `json:"totalCandidates"`
	VoterTurnout    int `json:"voterTurnout"`
}

// Chain integrity labels reported with vote statistics
const (
	IntegrityValid       = "Valid"
	IntegrityCompromised = "Compromised"
	IntegrityUnavailable = "Not Available"
)

type VoteStats struct {
	TotalVotes      int            `json:"totalVotes"`
	BlockchainVotes int            `json:"blockchainVotes"`
	CandidateVotes  map[string]int `json:"candidateVotes"`
	IsChainValid    bool           `json:"isChainValid"`
	LastBlockHash   *string        `json:"lastBlockHash"`
	ChainIntegrity  string         `json:"chainIntegrity"`
	MirrorAvailable bool           `json:"mirrorAvailable"`
}

type VoteDetails struct {
	CandidateName string    `json:"candidateName"`
	Timestamp     time.Time `json:"timestamp"`
	BlockHash     string    `json:"blockHash"`
	Verified      bool      `json:"verified"`
}

type VotingStatus struct {
	HasVoted    bool         `json:"hasVoted"`
	VoteDetails *VoteDetails `json:"voteDetails"`
}
