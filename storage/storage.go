// Package storage is the primary store: candidates, voters and the
// authoritative vote records. It is the source of truth for "has this voter
// already voted" and for every count shown on the dashboard.
package storage

import (
	"context"

	"voting-ledger/models"
)

// Store is the primary store contract.
type Store interface {
	FindVote(ctx context.Context, voterID string) (*models.VoteRecord, error)
	InsertVote(ctx context.Context, record *models.VoteRecord) error
	ListVotes(ctx context.Context) ([]*models.VoteRecord, error)
	CandidateVotes(ctx context.Context) (map[string]int, error)
	CountVotes(ctx context.Context) (int, error)

	ListCandidates(ctx context.Context) ([]*models.Candidate, error)
	AddCandidate(ctx context.Context, candidate *models.Candidate) (string, error)
	UpdateCandidate(ctx context.Context, id string, update models.CandidateUpdate) error
	DeleteCandidate(ctx context.Context, id string) error
	CountCandidates(ctx context.Context) (int, error)

	InsertVoter(ctx context.Context, voter *models.Voter) error
	FindVoter(ctx context.Context, voterID string) (*models.Voter, error)
	CountVoters(ctx context.Context) (int, error)

	Close() error
}
