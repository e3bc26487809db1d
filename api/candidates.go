package api

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"

	"voting-ledger/models"
)

type candidateRequest struct {
	Name         string `json:"name"`
	Party        string `json:"party"`
	Constituency string `json:"constituency"`
	Photo        string `json:"photo"` // data URL
}

// readCandidate accepts a JSON body or a multipart form with an optional
// "photo" file, which is turned into a data URL.
func readCandidate(w http.ResponseWriter, r *http.Request) (*candidateRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req candidateRequest
		if err := parseJSONBody(w, r, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := r.ParseMultipartForm(MaxBodySize); err != nil {
		return nil, err
	}

	req := &candidateRequest{
		Name:         r.FormValue("name"),
		Party:        r.FormValue("party"),
		Constituency: r.FormValue("constituency"),
	}

	file, header, err := r.FormFile("photo")
	if err == http.ErrMissingFile {
		return req, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	req.Photo = fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
	return req, nil
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.service.ListCandidates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, candidates)
}

func (s *Server) handleAddCandidate(w http.ResponseWriter, r *http.Request) {
	req, err := readCandidate(w, r)
	if err != nil {
		s.errorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := s.service.AddCandidate(r.Context(), &models.Candidate{
		Name:         req.Name,
		Party:        req.Party,
		Constituency: req.Constituency,
		Photo:        req.Photo,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, successResponse{Success: true, ID: id})
}

func (s *Server) handleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	req, err := readCandidate(w, r)
	if err != nil {
		s.errorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := models.CandidateUpdate{
		Name:         req.Name,
		Party:        req.Party,
		Constituency: req.Constituency,
	}
	if req.Photo != "" {
		update.Photo = &req.Photo
	}

	if err := s.service.UpdateCandidate(r.Context(), r.PathValue("id"), update); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteCandidate(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, successResponse{Success: true})
}
