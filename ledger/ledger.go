// Package ledger builds, appends to and validates the hash-chained log of
// vote events.
//
// The primary store holds the authoritative vote record and decides whether a
// voter has already voted. The mirror store, when configured, holds the full
// chain. Mirror failures degrade the chain (tip falls back to genesis, writes
// are skipped) but never fail a vote.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"voting-ledger/encryption"
	"voting-ledger/fault"
	"voting-ledger/mirror"
	"voting-ledger/models"
)

// Defaults for the contextual block fields
const (
	DefaultElectionID     = "general-election-2024"
	DefaultPollingStation = "online"
	unknown               = "unknown"
)

// VoteStore is the part of the primary store the ledger needs.
type VoteStore interface {
	FindVote(ctx context.Context, voterID string) (*models.VoteRecord, error)
	InsertVote(ctx context.Context, record *models.VoteRecord) error
}

// ReceiptSigner signs block hashes for voters.
type ReceiptSigner interface {
	IssueReceipt(blockHash string) (*encryption.Receipt, error)
}

// Config collects the collaborators of a Ledger. Votes is required, every
// other field is optional.
type Config struct {
	Votes          VoteStore
	Mirror         mirror.Store
	Signer         ReceiptSigner
	Observer       MirrorObserver
	ElectionID     string
	PollingStation string
	QueueSize      int
	Log            *logger.L
}

// Metadata is the request context recorded in a block.
type Metadata struct {
	DeviceInfo     string
	IPAddress      string
	ElectionID     string // overrides the configured election when set
	PollingStation string // overrides the configured station when set
}

// MirrorOutcome tells what happened to the advisory mirror write.
type MirrorOutcome string

const (
	MirrorWritten MirrorOutcome = "written"
	MirrorSkipped MirrorOutcome = "skipped"
	MirrorFailed  MirrorOutcome = "failed"
)

// CastResult is returned for a vote whose authoritative record was stored.
type CastResult struct {
	Hash         string              `json:"blockHash"`
	PreviousHash string              `json:"previousHash"`
	Timestamp    string              `json:"timestamp"`
	Verified     bool                `json:"verified"`
	Mirror       MirrorOutcome       `json:"mirror"`
	MirrorError  string              `json:"mirrorError,omitempty"`
	Receipt      *encryption.Receipt `json:"receipt,omitempty"`
	Block        *models.ChainBlock  `json:"-"`
}

// ChainReport is the content of the mirror chain with its integrity verdict.
type ChainReport struct {
	TotalBlocks  int                  `json:"totalBlocks"`
	Chain        []*models.ChainBlock `json:"chain"`
	IsChainValid bool                 `json:"isChainValid"`
}

// IntegrityReport lists every fault found in the mirror chain.
type IntegrityReport struct {
	TotalBlocks  int                 `json:"totalBlocks"`
	IsChainValid bool                `json:"isChainValid"`
	LastHash     string              `json:"lastHash,omitempty"`
	Faults       []models.ChainFault `json:"faults,omitempty"`
}

type Ledger struct {
	votes          VoteStore
	mirror         mirror.Store
	signer         ReceiptSigner
	observer       MirrorObserver
	electionID     string
	pollingStation string
	log            *logger.L

	// owned by the append worker
	lastTimestamp time.Time

	requestCh  chan *appendRequest
	shutdownCh chan struct{}
	doneCh     chan struct{}
	stopOnce   sync.Once

	health healthTracker
	now    func() time.Time
}

func New(cfg Config) *Ledger {
	l := &Ledger{
		votes:          cfg.Votes,
		mirror:         cfg.Mirror,
		signer:         cfg.Signer,
		observer:       cfg.Observer,
		electionID:     cfg.ElectionID,
		pollingStation: cfg.PollingStation,
		log:            cfg.Log,
		now:            time.Now,
		shutdownCh:     make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	l.requestCh = make(chan *appendRequest, queueSize)
	if l.electionID == "" {
		l.electionID = DefaultElectionID
	}
	if l.pollingStation == "" {
		l.pollingStation = DefaultPollingStation
	}
	if l.log == nil {
		l.log = logger.New("ledger")
	}
	if l.mirror != nil {
		l.health.health.Configured = true
		l.health.health.Backend = l.mirror.Name()
		l.health.health.Healthy = true
	}

	go l.appendWorker()
	return l
}

// BuildBlock constructs a block for event on top of previousHash, stamped
// with the current time.
func BuildBlock(event models.VoteEvent, previousHash string) *models.ChainBlock {
	return models.NewChainBlock(event, previousHash, time.Now())
}

// ValidateChain reports whether blocks, ordered by timestamp ascending, form
// an intact chain.
func ValidateChain(blocks []*models.ChainBlock) bool {
	return models.ValidateChain(blocks)
}

// MirrorConfigured reports whether a mirror store is attached.
func (l *Ledger) MirrorConfigured() bool {
	return l.mirror != nil
}

// MirrorHealth returns the current mirror health snapshot.
func (l *Ledger) MirrorHealth() MirrorHealth {
	return l.health.snapshot()
}

// ChainTipHash returns the hash of the newest mirrored block, or the genesis
// hash when the mirror is absent, empty or failing.
func (l *Ledger) ChainTipHash(ctx context.Context) string {
	tip := l.chainTip(ctx)
	if tip == nil {
		return models.GenesisHash
	}
	return tip.CurrentHash
}

func (l *Ledger) chainTip(ctx context.Context) *models.ChainBlock {
	if l.mirror == nil {
		l.log.Debug("mirror not configured, using genesis hash")
		return nil
	}

	tip, err := l.mirror.Tip(ctx)
	l.observe(OpTip, err)
	if err != nil {
		l.log.Errorf("error getting latest block hash: %s", err)
		return nil
	}
	if tip == nil || tip.CurrentHash == "" {
		return nil
	}
	return tip
}

// CastVote records a vote for voterID. The primary store write decides the
// outcome; the mirror write that follows is best effort and reported in the
// result. Casts are appended one at a time by the ledger's append worker.
func (l *Ledger) CastVote(ctx context.Context, candidateName string, voterID string, meta Metadata) (*CastResult, error) {
	if candidateName == "" {
		return nil, fault.ErrCandidateNameMissing
	}
	if voterID == "" {
		return nil, fault.ErrVoterIDMissing
	}
	return l.enqueue(ctx, candidateName, voterID, meta)
}

func (l *Ledger) appendVote(ctx context.Context, candidateName string, voterID string, meta Metadata) (*CastResult, error) {
	existing, err := l.votes.FindVote(ctx, voterID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fault.ErrDuplicateVote
	}

	tip := l.chainTip(ctx)
	previousHash := models.GenesisHash
	if tip != nil {
		previousHash = tip.CurrentHash
	}

	at := l.nextTimestamp(tip)
	block := models.NewChainBlock(l.event(candidateName, voterID, meta), previousHash, at)
	block.Verified = verifyAppend(tip, block)

	record := &models.VoteRecord{
		CandidateName: candidateName,
		VoterID:       voterID,
		Timestamp:     at,
		BlockHash:     block.CurrentHash,
		PreviousHash:  block.PreviousHash,
	}
	if err := l.votes.InsertVote(ctx, record); err != nil {
		return nil, err
	}
	l.lastTimestamp = at

	result := &CastResult{
		Hash:         block.CurrentHash,
		PreviousHash: block.PreviousHash,
		Timestamp:    block.Timestamp,
		Verified:     block.Verified,
		Block:        block,
	}

	outcome, mirrorErr := l.mirrorWrite(ctx, block, record)
	result.Mirror = outcome
	if mirrorErr != nil {
		result.MirrorError = mirrorErr.Error()
	}

	if l.signer != nil {
		receipt, err := l.signer.IssueReceipt(block.CurrentHash)
		if err != nil {
			l.log.Warnf("failed to sign receipt for block %s: %s", block.CurrentHash, err)
		} else {
			result.Receipt = receipt
		}
	}

	l.log.Infof("vote cast: voter: %s  candidate: %q  hash: %s  previous: %s  mirror: %s",
		voterID, candidateName, block.CurrentHash, block.PreviousHash, outcome)

	return result, nil
}

func (l *Ledger) event(candidateName string, voterID string, meta Metadata) models.VoteEvent {
	event := models.VoteEvent{
		CandidateName:  candidateName,
		VoterID:        voterID,
		ElectionID:     l.electionID,
		PollingStation: l.pollingStation,
		DeviceInfo:     meta.DeviceInfo,
		IPAddress:      meta.IPAddress,
	}
	if meta.ElectionID != "" {
		event.ElectionID = meta.ElectionID
	}
	if meta.PollingStation != "" {
		event.PollingStation = meta.PollingStation
	}
	if event.DeviceInfo == "" {
		event.DeviceInfo = unknown
	}
	if event.IPAddress == "" {
		event.IPAddress = unknown
	}
	return event
}

// nextTimestamp returns the current time, pushed past both the previous
// append of this process and the mirror tip so that chain order by timestamp
// is strict.
func (l *Ledger) nextTimestamp(tip *models.ChainBlock) time.Time {
	last := l.lastTimestamp
	if tip != nil {
		if t, err := models.ParseTimestamp(tip.Timestamp); err == nil && t.After(last) {
			last = t
		}
	}

	current := l.now().UTC().Truncate(time.Microsecond)
	if !current.After(last) {
		return last.Add(time.Microsecond)
	}
	return current
}

// verifyAppend re-derives the block hash and, when a tip was read, checks the
// link to it.
func verifyAppend(tip *models.ChainBlock, block *models.ChainBlock) bool {
	if !block.Validate() {
		return false
	}
	if tip == nil {
		return block.PreviousHash == models.GenesisHash
	}
	return models.ValidateChain([]*models.ChainBlock{tip, block})
}

func (l *Ledger) mirrorWrite(ctx context.Context, block *models.ChainBlock, record *models.VoteRecord) (MirrorOutcome, error) {
	if l.mirror == nil {
		l.log.Debug("mirror not available, vote stored in primary store only")
		return MirrorSkipped, nil
	}

	err := l.mirror.AppendBlock(ctx, block)
	l.observe(OpAppendBlock, err)
	if err != nil {
		l.log.Warnf("failed to store block in mirror: %s", err)
		return MirrorFailed, err
	}

	err = l.mirror.AppendVote(ctx, &models.MirrorVote{
		CandidateName: record.CandidateName,
		VoterID:       record.VoterID,
		Timestamp:     record.Timestamp,
		BlockHash:     block.CurrentHash,
		Verified:      block.Verified,
	})
	l.observe(OpAppendVote, err)
	if err != nil {
		l.log.Warnf("failed to store vote copy in mirror: %s", err)
		return MirrorFailed, err
	}

	return MirrorWritten, nil
}

// VoteChain returns the mirrored chain and whether it validates.
func (l *Ledger) VoteChain(ctx context.Context) (*ChainReport, error) {
	blocks, err := l.readChain(ctx)
	if err != nil {
		return nil, err
	}

	return &ChainReport{
		TotalBlocks:  len(blocks),
		Chain:        blocks,
		IsChainValid: models.ValidateChain(blocks),
	}, nil
}

// Inspect walks the mirrored chain and reports every fault.
func (l *Ledger) Inspect(ctx context.Context) (*IntegrityReport, error) {
	blocks, err := l.readChain(ctx)
	if err != nil {
		return nil, err
	}

	faults := models.InspectChain(blocks)
	report := &IntegrityReport{
		TotalBlocks:  len(blocks),
		IsChainValid: len(faults) == 0,
		Faults:       faults,
	}
	if len(blocks) > 0 {
		report.LastHash = blocks[len(blocks)-1].CurrentHash
	}
	if !report.IsChainValid {
		l.log.Warnf("chain validation failed: %d faults, first at block %d", len(faults), faults[0].BlockIndex)
	}
	return report, nil
}

func (l *Ledger) readChain(ctx context.Context) ([]*models.ChainBlock, error) {
	if l.mirror == nil {
		return nil, fault.ErrMirrorUnavailable
	}

	blocks, err := l.mirror.Chain(ctx)
	l.observe(OpChain, err)
	if err != nil {
		l.log.Errorf("error getting vote chain: %s", err)
		return nil, fmt.Errorf("%w: %s", fault.ErrMirrorUnavailable, err)
	}
	if blocks == nil {
		blocks = []*models.ChainBlock{}
	}
	return blocks, nil
}

func (l *Ledger) observe(op string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	l.health.record(err)
	if l.observer != nil {
		l.observer.ObserveMirror(op, err)
	}
}
