package server

import (
	"net/http"

	"solidarity/pkg/types"
)

func (s *Service) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.AllCategories(r.Context())
	if err != nil {
		s.writeError(w, r, types.DependencyFailure(err, "failed to list categories"))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Service) handleUrgencyLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.categories.UrgencyLevels(r.Context())
	if err != nil {
		s.writeError(w, r, types.DependencyFailure(err, "failed to list urgency levels"))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"urgency_levels": levels})
}

func (s *Service) handleFacilityTypes(w http.ResponseWriter, r *http.Request) {
	facilityTypes, err := s.facilityTypes.FacilityTypes(r.Context())
	if err != nil {
		s.writeError(w, r, types.DependencyFailure(err, "failed to list facility types"))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"facility_types": facilityTypes})
}
