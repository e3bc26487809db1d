package api

import (
	"net/http"

	"voting-ledger/ledger"
)

type castVoteRequest struct {
	CandidateName  string `json:"candidateName"`
	VoterID        string `json:"voterId"`
	ElectionID     string `json:"electionId,omitempty"`
	PollingStation string `json:"pollingStation,omitempty"`
}

type castVoteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*ledger.CastResult
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req castVoteRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		s.errorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.CastVote(r.Context(), req.CandidateName, req.VoterID, ledger.Metadata{
		DeviceInfo:     r.UserAgent(),
		IPAddress:      s.clientIP(r),
		ElectionID:     req.ElectionID,
		PollingStation: req.PollingStation,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, castVoteResponse{
		Success:    true,
		Message:    "Vote cast successfully",
		CastResult: result,
	})
}

func (s *Server) handleAllVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := s.service.AllVotes(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, votes)
}

func (s *Server) handleVotingStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.VotingStatus(r.Context(), r.PathValue("voterId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, status)
}

func (s *Server) handleVoteChain(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.VoteChain(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleValidateChain(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.ValidateChain(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleVoteStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.VoteStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}
