package api

import (
	"errors"
	"net/http"

	"voting-ledger/fault"
	"voting-ledger/notify"
)

type registerVoterRequest struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
}

type registerVoterResponse struct {
	Success  bool   `json:"success"`
	VoterID  string `json:"voterId"`
	SMSSent  bool   `json:"smsSent"`
	Method   string `json:"method,omitempty"`
	SMSError string `json:"smsError,omitempty"`
}

func (s *Server) handleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	var req registerVoterRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		s.errorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	registration, err := s.service.RegisterVoter(r.Context(), req.Name, req.Mobile)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := registerVoterResponse{
		Success:  true,
		VoterID:  registration.Voter.VoterID,
		SMSSent:  registration.Delivery != nil,
		SMSError: registration.SMSError,
	}
	if registration.Delivery != nil {
		resp.Method = registration.Delivery.Method
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

type sendSMSRequest struct {
	Mobile  string `json:"mobile"`
	VoterID string `json:"voterId"`
}

type sendSMSResponse struct {
	Success bool   `json:"success"`
	Method  string `json:"method"`
	Message string `json:"message"`
	SID     string `json:"sid,omitempty"`
	VoterID string `json:"voterId"`
	Mobile  string `json:"mobile"`
	Note    string `json:"note,omitempty"`
}

func (s *Server) handleSendSMS(w http.ResponseWriter, r *http.Request) {
	var req sendSMSRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		s.errorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Mobile == "" || req.VoterID == "" {
		s.errorMessage(w, http.StatusBadRequest, "Missing mobile or voterId")
		return
	}

	delivery, err := s.service.SendVoterID(r.Context(), req.Mobile, req.VoterID)
	var gatewayErr *fault.GatewayError
	if errors.As(err, &gatewayErr) {
		s.jsonResponse(w, http.StatusBadGateway, errorResponse{
			Error:   "Failed to send SMS via " + gatewayErr.Provider,
			Details: gatewayErr.Err.Error(),
		})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := sendSMSResponse{
		Success: true,
		Method:  delivery.Method,
		SID:     delivery.SID,
		VoterID: req.VoterID,
		Mobile:  req.Mobile,
	}
	if delivery.Method == notify.MethodMock {
		resp.Message = "SMS simulated successfully (Twilio not configured)"
		resp.Note = "This is a development environment. In production, this would send a real SMS via Twilio."
	} else {
		resp.Message = "SMS sent successfully via Twilio"
	}
	s.jsonResponse(w, http.StatusOK, resp)
}
