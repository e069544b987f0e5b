package server

import (
	"net/http"

	"solidarity/internal/features"
)

type areaStatsQuery struct {
	AdminLevel *int `form:"admin_level" validate:"omitempty,gt=0"`
}

type areaSearchQuery struct {
	Q string `form:"q" validate:"max=100"`
}

func (s *Service) handleAreaStats(w http.ResponseWriter, r *http.Request) {
	var query = new(areaStatsQuery)
	if err := decodeQuery(query, r.URL.Query()); err != nil {
		s.writeError(w, r, err)
		return
	}

	summary, err := s.matcher.AreaStats(r.Context(), query.AdminLevel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	fc, err := features.AreaStats(summary)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, fc)
}

func (s *Service) handleSearchAreas(w http.ResponseWriter, r *http.Request) {
	var query = new(areaSearchQuery)
	if err := decodeQuery(query, r.URL.Query()); err != nil {
		s.writeError(w, r, err)
		return
	}

	areas, err := s.matcher.SearchAreas(r.Context(), query.Q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"areas": areas})
}
