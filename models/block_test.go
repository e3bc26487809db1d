package models_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voting-ledger/models"
)

func buildChain(t *testing.T, voters ...string) []*models.ChainBlock {
	t.Helper()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	previous := models.GenesisHash
	blocks := make([]*models.ChainBlock, 0, len(voters))
	for i, voter := range voters {
		block := models.NewChainBlock(models.VoteEvent{
			CandidateName:  "Alice",
			VoterID:        voter,
			ElectionID:     "general-election-2024",
			PollingStation: "online",
			DeviceInfo:     "test-agent",
			IPAddress:      "127.0.0.1",
		}, previous, base.Add(time.Duration(i)*time.Millisecond))
		blocks = append(blocks, block)
		previous = block.CurrentHash
	}
	return blocks
}

func TestGenesisHash(t *testing.T) {
	assert.Len(t, models.GenesisHash, 68)
	assert.Equal(t, strings.Repeat("0", 68), models.GenesisHash)
}

func TestNewChainBlock(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 123456789, time.FixedZone("IST", 19800))
	block := models.NewChainBlock(models.VoteEvent{CandidateName: "Alice", VoterID: "V1"}, models.GenesisHash, at)

	assert.Equal(t, "2024-05-01T04:00:00.123456Z", block.Timestamp, "utc, microsecond precision")
	assert.Equal(t, models.GenesisHash, block.PreviousHash)
	assert.Len(t, block.CurrentHash, 64)
	assert.Equal(t, strings.ToLower(block.CurrentHash), block.CurrentHash)
	assert.True(t, block.Verified)
	assert.True(t, block.Validate())
	assert.GreaterOrEqual(t, block.Nonce, int64(0))
	assert.Less(t, block.Nonce, int64(1000000))
	assert.Equal(t, at.UnixMilli(), block.BlockIndex, "block index follows the block time")
}

func TestHashExcludesLocalFields(t *testing.T) {
	block := buildChain(t, "V1")[0]
	hash := block.CalculateHash()

	block.Verified = !block.Verified
	block.ID = "document-id"
	assert.Equal(t, hash, block.CalculateHash())
}

func TestTimestampRoundTrip(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 59, 59, 999999000, time.UTC)
	parsed, err := models.ParseTimestamp(models.FormatTimestamp(at))
	require.NoError(t, err)
	assert.True(t, at.Equal(parsed))
}

func TestValidateChainSequential(t *testing.T) {
	assert.True(t, models.ValidateChain(nil), "empty")
	assert.True(t, models.ValidateChain(buildChain(t, "V1")), "single")
	assert.True(t, models.ValidateChain(buildChain(t, "V1", "V2", "V3", "V4", "V5")), "sequence")
	assert.Empty(t, models.InspectChain(buildChain(t, "V1", "V2", "V3")))
}

func TestValidateChainDetectsFieldMutation(t *testing.T) {
	mutations := map[string]func(*models.ChainBlock){
		"candidateName":  func(b *models.ChainBlock) { b.CandidateName = "Mallory" },
		"voterId":        func(b *models.ChainBlock) { b.VoterID = "V99" },
		"timestamp":      func(b *models.ChainBlock) { b.Timestamp = "2030-01-01T00:00:00.000000Z" },
		"electionId":     func(b *models.ChainBlock) { b.ElectionID = "other" },
		"pollingStation": func(b *models.ChainBlock) { b.PollingStation = "booth-7" },
		"deviceInfo":     func(b *models.ChainBlock) { b.DeviceInfo = "curl" },
		"ipAddress":      func(b *models.ChainBlock) { b.IPAddress = "10.0.0.1" },
		"previousHash":   func(b *models.ChainBlock) { b.PreviousHash = strings.Repeat("f", 64) },
		"blockIndex":     func(b *models.ChainBlock) { b.BlockIndex++ },
		"nonce":          func(b *models.ChainBlock) { b.Nonce++ },
	}

	for name, mutate := range mutations {
		for position := 0; position < 3; position++ {
			chain := buildChain(t, "V1", "V2", "V3")
			mutate(chain[position])
			assert.False(t, models.ValidateChain(chain), "%s mutated at %d", name, position)
			assert.NotEmpty(t, models.InspectChain(chain), "%s mutated at %d", name, position)
		}
	}
}

func TestValidateChainDetectsRehashedBlock(t *testing.T) {
	chain := buildChain(t, "V1", "V2", "V3")
	chain[1].CandidateName = "Mallory"
	chain[1].CurrentHash = chain[1].CalculateHash()

	assert.False(t, models.ValidateChain(chain))
	faults := models.InspectChain(chain)
	require.Len(t, faults, 1)
	assert.Equal(t, 2, faults[0].BlockIndex)
	assert.Equal(t, models.LinkMismatch, faults[0].Error)
	assert.Equal(t, "V3", faults[0].VoterID)
}

func TestValidateChainDetectsSwap(t *testing.T) {
	for i := 0; i+1 < 4; i++ {
		chain := buildChain(t, "V1", "V2", "V3", "V4")
		chain[i], chain[i+1] = chain[i+1], chain[i]
		assert.False(t, models.ValidateChain(chain), "swap %d and %d", i, i+1)
	}
}

func TestValidateChainNilBlock(t *testing.T) {
	chain := buildChain(t, "V1", "V2", "V3")
	chain[1] = nil

	assert.False(t, models.ValidateChain(chain))
	assert.False(t, models.ValidateChain([]*models.ChainBlock{nil}))

	faults := models.InspectChain(chain)
	require.Len(t, faults, 1)
	assert.Equal(t, 1, faults[0].BlockIndex)
	assert.Equal(t, models.MissingBlock, faults[0].Error)
}
