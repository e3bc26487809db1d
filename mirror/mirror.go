// Package mirror provides the secondary store that keeps the vote chain and a
// queryable copy of the votes. The mirror is advisory: nothing it does may
// block the authoritative vote record.
package mirror

import (
	"context"

	"voting-ledger/models"
)

// Collection names shared by all implementations
const (
	ChainCollection = "voteChain"
	VoteCollection  = "votes"
)

//go:generate mockgen -destination=../mocks/mirror.go -package=mocks voting-ledger/mirror Store

// Store is the mirror contract used by the ledger.
type Store interface {
	// Tip returns the block with the greatest timestamp, or nil when the
	// chain is empty.
	Tip(ctx context.Context) (*models.ChainBlock, error)

	// AppendBlock adds a block to the chain collection.
	AppendBlock(ctx context.Context, block *models.ChainBlock) error

	// AppendVote adds a vote to the duplicate votes collection.
	AppendVote(ctx context.Context, vote *models.MirrorVote) error

	// Chain returns every block ordered by timestamp ascending.
	Chain(ctx context.Context) ([]*models.ChainBlock, error)

	// Name identifies the backend in logs and health reports.
	Name() string

	Close() error
}
