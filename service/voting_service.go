// Package service is the application facade over the ledger, the primary
// store and the notification gateway.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/patrickmn/go-cache"

	"voting-ledger/fault"
	"voting-ledger/ledger"
	"voting-ledger/models"
	"voting-ledger/notify"
	"voting-ledger/storage"
)

// DefaultStatsTTL is how long dashboard statistics are served from cache.
const DefaultStatsTTL = 10 * time.Second

const dashboardKey = "dashboard-stats"

// Config collects the collaborators of a VotingService.
type Config struct {
	Store       storage.Store
	Ledger      *ledger.Ledger
	Gateway     notify.Gateway // nil disables SMS
	Metrics     *MetricsCollector
	CountryCode string
	StatsTTL    time.Duration
}

type VotingService struct {
	store       storage.Store
	ledger      *ledger.Ledger
	gateway     notify.Gateway
	metrics     *MetricsCollector
	countryCode string
	stats       *cache.Cache
	log         *logger.L
}

func NewVotingService(cfg Config) *VotingService {
	ttl := cfg.StatsTTL
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	countryCode := cfg.CountryCode
	if countryCode == "" {
		countryCode = notify.DefaultCountryCode
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetricsCollector(nil)
	}

	return &VotingService{
		store:       cfg.Store,
		ledger:      cfg.Ledger,
		gateway:     cfg.Gateway,
		metrics:     metrics,
		countryCode: countryCode,
		stats:       cache.New(ttl, 2*ttl),
		log:         logger.New("service"),
	}
}

func (vs *VotingService) Metrics() *MetricsCollector {
	return vs.metrics
}

// Candidate Methods

func (vs *VotingService) ListCandidates(ctx context.Context) ([]*models.Candidate, error) {
	return vs.store.ListCandidates(ctx)
}

func (vs *VotingService) AddCandidate(ctx context.Context, candidate *models.Candidate) (string, error) {
	candidate.Name = strings.TrimSpace(candidate.Name)
	candidate.Party = strings.TrimSpace(candidate.Party)
	if candidate.Name == "" || candidate.Party == "" {
		return "", fault.ErrNameAndPartyMissing
	}

	id, err := vs.store.AddCandidate(ctx, candidate)
	if err != nil {
		return "", err
	}
	vs.stats.Delete(dashboardKey)
	vs.log.Infof("candidate added: id: %s  name: %q  party: %q", id, candidate.Name, candidate.Party)
	return id, nil
}

func (vs *VotingService) UpdateCandidate(ctx context.Context, id string, update models.CandidateUpdate) error {
	update.Name = strings.TrimSpace(update.Name)
	update.Party = strings.TrimSpace(update.Party)
	if update.Name == "" || update.Party == "" {
		return fault.ErrNameAndPartyMissing
	}

	if err := vs.store.UpdateCandidate(ctx, id, update); err != nil {
		return err
	}
	vs.log.Infof("candidate updated: id: %s", id)
	return nil
}

func (vs *VotingService) DeleteCandidate(ctx context.Context, id string) error {
	if err := vs.store.DeleteCandidate(ctx, id); err != nil {
		return err
	}
	vs.stats.Delete(dashboardKey)
	vs.log.Infof("candidate deleted: id: %s", id)
	return nil
}

// Vote Methods

// CastVote stores a vote through the ledger.
func (vs *VotingService) CastVote(ctx context.Context, candidateName string, voterID string, meta ledger.Metadata) (*ledger.CastResult, error) {
	start := time.Now()

	result, err := vs.ledger.CastVote(ctx, strings.TrimSpace(candidateName), strings.TrimSpace(voterID), meta)
	if err != nil {
		vs.metrics.RecordRejectedVote(rejectReason(err))
		return nil, err
	}

	vs.metrics.RecordVote(start, time.Since(start), result.Mirror)
	vs.stats.Delete(dashboardKey)
	return result, nil
}

func rejectReason(err error) string {
	switch {
	case fault.IsErrValidation(err):
		return "validation"
	case fault.IsErrDuplicate(err):
		return "duplicate"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case fault.IsErrUnavailable(err):
		return "unavailable"
	default:
		return "store"
	}
}

func (vs *VotingService) AllVotes(ctx context.Context) ([]*models.VoteRecord, error) {
	return vs.store.ListVotes(ctx)
}

// VotingStatus reports whether voterID has a stored vote.
func (vs *VotingService) VotingStatus(ctx context.Context, voterID string) (*models.VotingStatus, error) {
	if voterID == "" {
		return nil, fault.ErrVoterIDMissing
	}

	record, err := vs.store.FindVote(ctx, voterID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &models.VotingStatus{HasVoted: false}, nil
	}

	return &models.VotingStatus{
		HasVoted: true,
		VoteDetails: &models.VoteDetails{
			CandidateName: record.CandidateName,
			Timestamp:     record.Timestamp,
			BlockHash:     record.BlockHash,
			Verified:      record.BlockHash != "",
		},
	}, nil
}

// VoteStats combines primary store counts with the mirror chain verdict. A
// failing mirror leaves the chain figures at their zero values.
func (vs *VotingService) VoteStats(ctx context.Context) (*models.VoteStats, error) {
	start := time.Now()

	totalVotes, err := vs.store.CountVotes(ctx)
	if err != nil {
		return nil, err
	}
	candidateVotes, err := vs.store.CandidateVotes(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.VoteStats{
		TotalVotes:      totalVotes,
		CandidateVotes:  candidateVotes,
		MirrorAvailable: vs.ledger.MirrorConfigured(),
	}

	if stats.MirrorAvailable {
		report, err := vs.ledger.VoteChain(ctx)
		if err != nil {
			vs.log.Warnf("failed to get blockchain stats: %s", err)
		} else {
			stats.BlockchainVotes = report.TotalBlocks
			stats.IsChainValid = report.IsChainValid
			if report.TotalBlocks > 0 {
				last := report.Chain[report.TotalBlocks-1].CurrentHash
				stats.LastBlockHash = &last
			}
		}
	}

	switch {
	case stats.IsChainValid:
		stats.ChainIntegrity = models.IntegrityValid
	case stats.MirrorAvailable:
		stats.ChainIntegrity = models.IntegrityCompromised
	default:
		stats.ChainIntegrity = models.IntegrityUnavailable
	}

	vs.metrics.RecordCounting(start, time.Since(start))
	return stats, nil
}

func (vs *VotingService) VoteChain(ctx context.Context) (*ledger.ChainReport, error) {
	return vs.ledger.VoteChain(ctx)
}

func (vs *VotingService) ValidateChain(ctx context.Context) (*ledger.IntegrityReport, error) {
	return vs.ledger.Inspect(ctx)
}

func (vs *VotingService) MirrorHealth() ledger.MirrorHealth {
	return vs.ledger.MirrorHealth()
}

// DashboardStats returns the headline counts, served from cache for a short
// while.
func (vs *VotingService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	if cached, found := vs.stats.Get(dashboardKey); found {
		stats := *cached.(*models.DashboardStats)
		return &stats, nil
	}

	totalVoters, err := vs.store.CountVoters(ctx)
	if err != nil {
		vs.log.Warnf("failed to count voters: %s", err)
		totalVoters = 0
	}
	totalVotes, err := vs.store.CountVotes(ctx)
	if err != nil {
		return nil, err
	}
	totalCandidates, err := vs.store.CountCandidates(ctx)
	if err != nil {
		return nil, err
	}

	// without registrations every vote stands for one voter
	if totalVoters == 0 && totalVotes > 0 {
		totalVoters = totalVotes
	}

	stats := &models.DashboardStats{
		TotalVoters:     totalVoters,
		TotalVotes:      totalVotes,
		TotalCandidates: totalCandidates,
		VoterTurnout:    turnout(totalVotes, totalVoters),
	}
	vs.log.Debugf("dashboard stats: %+v", *stats)

	vs.stats.SetDefault(dashboardKey, stats)
	result := *stats
	return &result, nil
}

// turnout is the rounded percentage of voters that voted
func turnout(votes int, voters int) int {
	if voters <= 0 {
		return 0
	}
	return (votes*200 + voters) / (voters * 2)
}

// Voter Methods

// Registration is the result of registering a voter.
type Registration struct {
	Voter    *models.Voter    `json:"voter"`
	Delivery *notify.Delivery `json:"delivery,omitempty"`
	SMSError string           `json:"smsError,omitempty"`
}

// RegisterVoter stores a new voter under a fresh voter ID and sends the ID to
// the voter's mobile. A failed SMS does not undo the registration.
func (vs *VotingService) RegisterVoter(ctx context.Context, name string, mobile string) (*Registration, error) {
	start := time.Now()

	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return nil, fault.ErrMobileMissing
	}

	id := uuid.New()
	voter := &models.Voter{
		VoterID: base58.Encode(id[:]),
		Name:    strings.TrimSpace(name),
		Mobile:  mobile,
	}
	if err := vs.store.InsertVoter(ctx, voter); err != nil {
		return nil, err
	}
	vs.stats.Delete(dashboardKey)
	vs.log.Infof("voter registered: %s", voter.VoterID)

	registration := &Registration{Voter: voter}
	delivery, err := vs.sendVoterID(ctx, mobile, voter.VoterID)
	if err != nil {
		registration.SMSError = err.Error()
	} else {
		registration.Delivery = delivery
	}

	vs.metrics.RecordRegistration(start, time.Since(start))
	return registration, nil
}

// SendVoterID texts voterID to mobile.
func (vs *VotingService) SendVoterID(ctx context.Context, mobile string, voterID string) (*notify.Delivery, error) {
	mobile = strings.TrimSpace(mobile)
	voterID = strings.TrimSpace(voterID)
	if mobile == "" {
		return nil, fault.ErrMobileMissing
	}
	if voterID == "" {
		return nil, fault.ErrVoterIDMissing
	}
	return vs.sendVoterID(ctx, mobile, voterID)
}

func (vs *VotingService) sendVoterID(ctx context.Context, mobile string, voterID string) (*notify.Delivery, error) {
	if vs.gateway == nil {
		return nil, fault.ErrGatewayNotConfigured
	}

	to := notify.FormatNumber(vs.countryCode, mobile)
	delivery, err := vs.gateway.Send(ctx, to, notify.VoterIDMessage(voterID))
	vs.metrics.RecordDelivery(vs.gateway.Name(), err)
	if err != nil {
		vs.log.Errorf("failed to send voter id %s: %s", voterID, err)
		return nil, err
	}
	return delivery, nil
}
