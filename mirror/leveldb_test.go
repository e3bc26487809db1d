package mirror_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"

	"voting-ledger/mirror"
	"voting-ledger/models"
)

func newMemoryMirror(t *testing.T) *mirror.LevelDBStore {
	t.Helper()
	m, err := mirror.NewMemoryLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func chainOf(t *testing.T, n int) []*models.ChainBlock {
	t.Helper()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	previous := models.GenesisHash
	blocks := make([]*models.ChainBlock, 0, n)
	for i := 0; i < n; i++ {
		block := models.NewChainBlock(models.VoteEvent{
			CandidateName: "Alice",
			VoterID:       string(rune('A' + i)),
		}, previous, base.Add(time.Duration(i)*time.Second))
		blocks = append(blocks, block)
		previous = block.CurrentHash
	}
	return blocks
}

func TestLevelDBEmptyTip(t *testing.T) {
	m := newMemoryMirror(t)

	tip, err := m.Tip(context.Background())
	require.NoError(t, err)
	assert.Nil(t, tip)

	chain, err := m.Chain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestLevelDBChainOrder(t *testing.T) {
	m := newMemoryMirror(t)
	ctx := context.Background()

	blocks := chainOf(t, 4)
	// insertion order must not matter, only timestamps
	for _, i := range []int{2, 0, 3, 1} {
		require.NoError(t, m.AppendBlock(ctx, blocks[i]))
	}

	tip, err := m.Tip(ctx)
	require.NoError(t, err)
	require.NotNil(t, tip)
	assert.Equal(t, blocks[3].CurrentHash, tip.CurrentHash)

	chain, err := m.Chain(ctx)
	require.NoError(t, err)
	require.Len(t, chain, 4)
	for i := range blocks {
		assert.Equal(t, blocks[i].CurrentHash, chain[i].CurrentHash, "block %d", i)
		assert.NotEmpty(t, chain[i].ID)
	}
	assert.True(t, models.ValidateChain(chain))
}

func TestLevelDBVotes(t *testing.T) {
	m := newMemoryMirror(t)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, m.AppendVote(ctx, &models.MirrorVote{CandidateName: "Bob", VoterID: "V2", Timestamp: at.Add(time.Second), BlockHash: "h2", Verified: true}))
	require.NoError(t, m.AppendVote(ctx, &models.MirrorVote{CandidateName: "Alice", VoterID: "V1", Timestamp: at, BlockHash: "h1", Verified: true}))

	votes, err := m.Votes(ctx)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, "V1", votes[0].VoterID)
	assert.Equal(t, "V2", votes[1].VoterID)

	chain, err := m.Chain(ctx)
	require.NoError(t, err)
	assert.Empty(t, chain, "votes are not chain blocks")
}

func TestLevelDBOverwriteIsDetected(t *testing.T) {
	m := newMemoryMirror(t)
	ctx := context.Background()

	for _, block := range chainOf(t, 3) {
		require.NoError(t, m.AppendBlock(ctx, block))
	}

	chain, err := m.Chain(ctx)
	require.NoError(t, err)
	tampered := chain[1]
	tampered.CandidateName = "Mallory"
	require.NoError(t, m.Overwrite(tampered))

	chain, err = m.Chain(ctx)
	require.NoError(t, err)
	assert.False(t, models.ValidateChain(chain))
	faults := models.InspectChain(chain)
	require.Len(t, faults, 1)
	assert.Equal(t, 1, faults[0].BlockIndex)
	assert.Equal(t, models.HashMismatch, faults[0].Error)
}

func TestLevelDBReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror")
	ctx := context.Background()

	m, err := mirror.OpenLevelDB(path)
	require.NoError(t, err)
	blocks := chainOf(t, 2)
	for _, block := range blocks {
		require.NoError(t, m.AppendBlock(ctx, block))
	}
	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "second close is harmless")

	m, err = mirror.OpenLevelDB(path)
	require.NoError(t, err)
	defer m.Close()

	tip, err := m.Tip(ctx)
	require.NoError(t, err)
	assert.Equal(t, blocks[1].CurrentHash, tip.CurrentHash)
}

func TestLevelDBUseAfterClose(t *testing.T) {
	ctx := context.Background()
	m, err := mirror.NewMemoryLevelDB()
	require.NoError(t, err)
	require.NoError(t, m.Close())

	blocks := chainOf(t, 1)
	assert.ErrorIs(t, m.AppendBlock(ctx, blocks[0]), leveldb.ErrClosed)

	_, err = m.Tip(ctx)
	assert.ErrorIs(t, err, leveldb.ErrClosed)

	_, err = m.Chain(ctx)
	assert.ErrorIs(t, err, leveldb.ErrClosed)

	_, err = m.Votes(ctx)
	assert.ErrorIs(t, err, leveldb.ErrClosed)

	assert.NoError(t, m.Close())
}

func TestNormalizePrivateKey(t *testing.T) {
	assert.Equal(t, "-----BEGIN-----\nabc\n-----END-----", mirror.NormalizePrivateKey(`-----BEGIN-----\nabc\n-----END-----`))
}
