package server

import (
	"net/http"

	"solidarity/internal/features"
	"solidarity/pkg/types"
)

type radiusQuery struct {
	Radius *float64 `form:"radius" validate:"omitempty,gt=0"`
}

func (s *Service) radius(q *radiusQuery) float64 {
	if q.Radius == nil {
		return s.config.DefaultRadiusM
	}
	return *q.Radius
}

func (s *Service) handleUncoveredNeeds(w http.ResponseWriter, r *http.Request) {
	var query = new(radiusQuery)
	if err := decodeQuery(query, r.URL.Query()); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.matcher.FindUncoveredNeeds(r.Context(), s.radius(query))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, features.UncoveredNeeds(result))
}

func (s *Service) handleNearbyOffers(w http.ResponseWriter, r *http.Request) {
	needID, err := pathID(r, "needID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var query = new(radiusQuery)
	if err := decodeQuery(query, r.URL.Query()); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.matcher.FindNearbyOffers(r.Context(), needID, s.radius(query))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, features.NearbyOffers(result))
}

func (s *Service) handleNearestFacilities(w http.ResponseWriter, r *http.Request) {
	needID, err := pathID(r, "needID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var query = &types.FacilityQuery{NeedID: needID}
	if err := decodeQuery(query, r.URL.Query()); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.matcher.FindNearestFacilities(r.Context(), query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, features.NearestFacilities(result))
}

func (s *Service) handleMyOffersForNeed(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeUnauthorized(w)
		return
	}

	needID, err := pathID(r, "needID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	offers, err := s.matcher.OffersForUserNeed(r.Context(), needID, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, features.Offers(offers))
}
