package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"solidarity/pkg/types"

	"github.com/go-playground/validator/v10"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var kindStatus = map[types.ErrorKind]int{
	types.KindNotFound:            http.StatusNotFound,
	types.KindInvalidRequest:      http.StatusBadRequest,
	types.KindConstraintViolation: http.StatusUnprocessableEntity,
	types.KindConflict:            http.StatusConflict,
	types.KindNoMatch:             http.StatusUnprocessableEntity,
	types.KindDependencyFailure:   http.StatusServiceUnavailable,
	types.KindNotificationFailure: http.StatusServiceUnavailable,
}

func statusForKind(kind types.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := types.KindOf(err)
	status := statusForKind(kind)

	message := err.Error()
	var typed *types.Error
	if errors.As(err, &typed) && typed.Message != "" {
		message = typed.Message
	}

	entry := s.logger.WithError(err).WithField("path", r.URL.Path)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
		// dependency details stay in the log
		if kind == types.KindDependencyFailure {
			message = "a backing service is unavailable"
		}
	} else {
		entry.Debug("request rejected")
	}

	s.writeJSON(w, status, map[string]errorBody{
		"error": {Kind: string(kind), Message: message},
	})
}

func (s *Service) writeUnauthorized(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusUnauthorized, map[string]errorBody{
		"error": {Kind: "unauthorized", Message: errUnauthenticated.Error()},
	})
}

// validationError turns validator output into an InvalidRequest.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return types.InvalidRequest("%s failed %s validation", fe.Field(), fe.Tag())
	}
	return types.InvalidRequest("%s", err.Error())
}
