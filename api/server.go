// Package api exposes the voting service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voting-ledger/fault"
	"voting-ledger/ledger"
	"voting-ledger/service"
)

// Config holds the HTTP layer settings.
type Config struct {
	Port      int
	VoteRate  float64 // cast vote requests per second per client, 0 disables
	VoteBurst int
	Gatherer  prometheus.Gatherer // nil serves the default registry

	// TrustProxy honours X-Forwarded-For and X-Real-IP, only safe behind a proxy that sets them
	TrustProxy bool
}

type Server struct {
	service    *service.VotingService
	limiter    *ipLimiter
	gatherer   prometheus.Gatherer
	trustProxy bool
	http       *http.Server
	log        *logger.L
}

func NewServer(svc *service.VotingService, cfg Config) *Server {
	s := &Server{
		service:    svc,
		gatherer:   cfg.Gatherer,
		trustProxy: cfg.TrustProxy,
		log:        logger.New("api"),
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if cfg.VoteRate > 0 {
		s.limiter = newIPLimiter(cfg.VoteRate, cfg.VoteBurst)
	}

	s.http = &http.Server{
		Addr:              httpAddr(cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

func httpAddr(port int) string {
	if port <= 0 {
		port = 5000
	}
	return ":" + strconv.Itoa(port)
}

// Handler returns the routed, CORS enabled handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Candidates
	mux.HandleFunc("GET /candidates", s.withLogging(s.handleListCandidates))
	mux.HandleFunc("POST /candidates", s.withLogging(s.handleAddCandidate))
	mux.HandleFunc("PUT /candidates/{id}", s.withLogging(s.handleUpdateCandidate))
	mux.HandleFunc("DELETE /candidates/{id}", s.withLogging(s.handleDeleteCandidate))

	// Votes
	mux.HandleFunc("POST /votes/cast", s.withLogging(s.withRateLimit(s.handleCastVote)))
	mux.HandleFunc("GET /votes/all", s.withLogging(s.handleAllVotes))
	mux.HandleFunc("GET /votes/status/{voterId}", s.withLogging(s.handleVotingStatus))
	mux.HandleFunc("GET /votes/chain", s.withLogging(s.handleVoteChain))
	mux.HandleFunc("GET /votes/chain/validate", s.withLogging(s.handleValidateChain))
	mux.HandleFunc("GET /votes/stats", s.withLogging(s.handleVoteStats))

	// Voters
	mux.HandleFunc("POST /voters", s.withLogging(s.handleRegisterVoter))
	mux.HandleFunc("POST /send-sms", s.withLogging(s.handleSendSMS))

	// Dashboard and monitoring
	mux.HandleFunc("GET /dashboard-stats", s.withLogging(s.handleDashboardStats))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("POST /api/metrics/reset", s.withLogging(s.handleResetMetrics))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return CORS(mux)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Infof("listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// writeError maps an error class to its HTTP status
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		status  int
		message = err.Error()
	)

	switch {
	case fault.IsErrValidation(err):
		status = http.StatusBadRequest
	case fault.IsErrDuplicate(err):
		status = http.StatusBadRequest
	case fault.IsErrNotFound(err):
		status = http.StatusNotFound
	case fault.IsErrUnavailable(err):
		status = http.StatusServiceUnavailable
	case fault.IsErrGateway(err):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusInternalServerError
		s.log.Errorf("internal error: %s", err)
	}

	s.errorMessage(w, status, message)
}

type successResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

type healthResponse struct {
	Status string              `json:"status"`
	Time   time.Time           `json:"time"`
	Mirror ledger.MirrorHealth `json:"mirror"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, healthResponse{
		Status: "ok",
		Time:   time.Now().UTC(),
		Mirror: s.service.MirrorHealth(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.service.Metrics().GetMetrics())
}

// handleResetMetrics clears the timing snapshot served by /api/metrics
func (s *Server) handleResetMetrics(w http.ResponseWriter, r *http.Request) {
	s.service.Metrics().Reset()
	s.jsonResponse(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.DashboardStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}
