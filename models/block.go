package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strings"
	"time"
)

// TimestampLayout is the fixed-width UTC layout used for block timestamps, so
// that lexical order of the stored strings matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// GenesisHash is the predecessor hash of the first block in a chain.
var GenesisHash = strings.Repeat("0", 68)

const maxNonce = 1000000

// ChainBlock is one vote event in the hash-chained append log.
type ChainBlock struct {
	ID             string `json:"id,omitempty" firestore:"-"`
	CandidateName  string `json:"candidateName" firestore:"candidateName"`
	VoterID        string `json:"voterId" firestore:"voterId"`
	Timestamp      string `json:"timestamp" firestore:"timestamp"`
	ElectionID     string `json:"electionId" firestore:"electionId"`
	PollingStation string `json:"pollingStation" firestore:"pollingStation"`
	DeviceInfo     string `json:"deviceInfo" firestore:"deviceInfo"`
	IPAddress      string `json:"ipAddress" firestore:"ipAddress"`
	PreviousHash   string `json:"previousHash" firestore:"previousHash"`
	BlockIndex     int64  `json:"blockIndex" firestore:"blockIndex"`
	Nonce          int64  `json:"nonce" firestore:"nonce"`
	CurrentHash    string `json:"currentHash" firestore:"currentHash"`
	Verified       bool   `json:"verified" firestore:"verified"`
}

// Helper struct for hash calculation, field order is the canonical order
type blockForHash struct {
	CandidateName  string `json:"candidateName"`
	VoterID        string `json:"voterId"`
	Timestamp      string `json:"timestamp"`
	ElectionID     string `json:"electionId"`
	PollingStation string `json:"pollingStation"`
	DeviceInfo     string `json:"deviceInfo"`
	IPAddress      string `json:"ipAddress"`
	PreviousHash   string `json:"previousHash"`
	BlockIndex     int64  `json:"blockIndex"`
	Nonce          int64  `json:"nonce"`
}

// NewChainBlock assembles a block for the event on top of previousHash and
// computes its hash. The timestamp and the millisecond block index are taken
// from at, the nonce from a random source.
func NewChainBlock(event VoteEvent, previousHash string, at time.Time) *ChainBlock {
	block := &ChainBlock{
		CandidateName:  event.CandidateName,
		VoterID:        event.VoterID,
		Timestamp:      FormatTimestamp(at),
		ElectionID:     event.ElectionID,
		PollingStation: event.PollingStation,
		DeviceInfo:     event.DeviceInfo,
		IPAddress:      event.IPAddress,
		PreviousHash:   previousHash,
		BlockIndex:     at.UnixMilli(),
		Nonce:          randomNonce(),
	}
	block.CurrentHash = block.CalculateHash()
	block.Verified = block.Validate()
	return block
}

// FormatTimestamp renders t in the block timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

func randomNonce() int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(maxNonce))
	if err != nil {
		return time.Now().UnixNano() % maxNonce
	}
	return n.Int64()
}

// CalculateHash returns the hex SHA-256 digest of the block content, that is
// every field except CurrentHash and the locally derived Verified flag.
func (b *ChainBlock) CalculateHash() string {
	data, err := json.Marshal(blockForHash{
		CandidateName:  b.CandidateName,
		VoterID:        b.VoterID,
		Timestamp:      b.Timestamp,
		ElectionID:     b.ElectionID,
		PollingStation: b.PollingStation,
		DeviceInfo:     b.DeviceInfo,
		IPAddress:      b.IPAddress,
		PreviousHash:   b.PreviousHash,
		BlockIndex:     b.BlockIndex,
		Nonce:          b.Nonce,
	})
	if err != nil {
		return ""
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Validate reports whether the stored hash matches the block content.
func (b *ChainBlock) Validate() bool {
	return b != nil && b.CurrentHash != "" && b.CalculateHash() == b.CurrentHash
}

// Chain validation failure kinds
const (
	LinkMismatch = "previous hash mismatch"
	HashMismatch = "hash mismatch"
	MissingBlock = "missing block"
)

// ChainFault describes one integrity failure found while walking a chain.
type ChainFault struct {
	BlockIndex int    `json:"block_index"`
	Error      string `json:"error"`
	Expected   string `json:"expected"`
	Actual     string `json:"actual"`
	VoterID    string `json:"voter_id,omitempty"`
}

// ValidateChain checks hash linkage and block hashes of an ordered chain.
// Every block must hash to its stored CurrentHash, the first one included,
// and every block after the first must point at its predecessor. An empty
// chain is valid, a nil entry is not.
func ValidateChain(blocks []*ChainBlock) bool {
	for i := 0; i < len(blocks); i++ {
		if blocks[i] == nil {
			return false
		}
		if i > 0 && blocks[i].PreviousHash != blocks[i-1].CurrentHash {
			return false
		}
		if !blocks[i].Validate() {
			return false
		}
	}
	return true
}

// InspectChain walks the chain like ValidateChain but collects every fault.
func InspectChain(blocks []*ChainBlock) []ChainFault {
	var faults []ChainFault

	for i := 0; i < len(blocks); i++ {
		currentBlock := blocks[i]
		if currentBlock == nil {
			faults = append(faults, ChainFault{
				BlockIndex: i,
				Error:      MissingBlock,
			})
			continue
		}

		if i > 0 && blocks[i-1] != nil && currentBlock.PreviousHash != blocks[i-1].CurrentHash {
			faults = append(faults, ChainFault{
				BlockIndex: i,
				Error:      LinkMismatch,
				Expected:   blocks[i-1].CurrentHash,
				Actual:     currentBlock.PreviousHash,
				VoterID:    currentBlock.VoterID,
			})
		}

		if calculatedHash := currentBlock.CalculateHash(); calculatedHash != currentBlock.CurrentHash {
			faults = append(faults, ChainFault{
				BlockIndex: i,
				Error:      HashMismatch,
				Expected:   currentBlock.CurrentHash,
				Actual:     calculatedHash,
				VoterID:    currentBlock.VoterID,
			})
		}
	}

	return faults
}
