package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"solidarity/pkg/types"
)

const maxBodyBytes = 1 << 20

func (s *Service) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeUnauthorized(w)
		return
	}

	var req = new(types.CreateAssignmentRequest)

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, types.InvalidRequest("invalid request body: %v", err))
		return
	}

	if err := validate.Struct(req); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	req.ActingUserID = userID

	result, err := s.matcher.CreateAssignment(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Service) handleAcceptAssignment(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeUnauthorized(w)
		return
	}

	assignmentID, err := pathID(r, "assignmentID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	assignment, err := s.matcher.AcceptAssignment(r.Context(), assignmentID, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, assignment)
}

func (s *Service) handleCompleteAssignment(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeUnauthorized(w)
		return
	}

	assignmentID, err := pathID(r, "assignmentID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	assignment, err := s.matcher.CompleteAssignment(r.Context(), assignmentID, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, assignment)
}

func (s *Service) handleMyAssignments(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeUnauthorized(w)
		return
	}

	assignments, err := s.matcher.AssignmentsForUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"assignments": assignments})
}
