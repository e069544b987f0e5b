package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"solidarity/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()
var validate = validator.New(validator.WithRequiredStructEnabled())

// Matcher is the matching engine as seen by the HTTP layer.
type Matcher interface {
	FindUncoveredNeeds(ctx context.Context, radius float64) (*types.UncoveredNeeds, error)
	FindNearbyOffers(ctx context.Context, needID int64, radius float64) (*types.NearbyOffers, error)
	FindNearestFacilities(ctx context.Context, query *types.FacilityQuery) (*types.NearestFacilities, error)
	CreateAssignment(ctx context.Context, req *types.CreateAssignmentRequest) (*types.AssignmentResult, error)
	AcceptAssignment(ctx context.Context, assignmentID, actingUserID int64) (*types.Assignment, error)
	CompleteAssignment(ctx context.Context, assignmentID, actingUserID int64) (*types.Assignment, error)
	AssignmentsForUser(ctx context.Context, userID int64) ([]*types.AssignmentDetail, error)
	OffersForUserNeed(ctx context.Context, needID, userID int64) ([]*types.Offer, error)
	AreaStats(ctx context.Context, adminLevel *int) (*types.AreaStatsSummary, error)
	SearchAreas(ctx context.Context, name string) ([]*types.AdminArea, error)
}

type CategoryStore interface {
	AllCategories(ctx context.Context) ([]*types.Category, error)
	UrgencyLevels(ctx context.Context) ([]*types.UrgencyLevel, error)
}

type FacilityTypeStore interface {
	FacilityTypes(ctx context.Context) ([]string, error)
}

type IdentityStore interface {
	UpsertIdentity(ctx context.Context, subject, username, email string) (*types.User, error)
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	matcher       Matcher
	categories    CategoryStore
	facilityTypes FacilityTypeStore
	identities    IdentityStore

	verifier TokenVerifier
	cookie   *securecookie.SecureCookie

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	matcher Matcher,
	categories CategoryStore,
	facilityTypes FacilityTypeStore,
	identities IdentityStore,
	verifier TokenVerifier,
) (*Service, error) {
	mux := flow.New()

	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("decode cookie block key: %w", err)
	}

	var cookie *securecookie.SecureCookie
	if len(hashKey) > 0 {
		if len(blockKey) == 0 {
			blockKey = nil
		}
		cookie = securecookie.New(hashKey, blockKey)
	}

	s := &Service{
		logger:        logger,
		config:        config,
		matcher:       matcher,
		categories:    categories,
		facilityTypes: facilityTypes,
		identities:    identities,
		verifier:      verifier,
		cookie:        cookie,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the routed mux, mainly for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.RequestID)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/needs/uncovered", s.handleUncoveredNeeds, http.MethodGet)
	r.HandleFunc("/needs/:needID/nearby-offers", s.handleNearbyOffers, http.MethodGet)
	r.HandleFunc("/needs/:needID/nearest-facilities", s.handleNearestFacilities, http.MethodGet)

	r.HandleFunc("/admin-areas", s.handleSearchAreas, http.MethodGet)
	r.HandleFunc("/admin-areas/stats", s.handleAreaStats, http.MethodGet)

	r.HandleFunc("/categories", s.handleCategories, http.MethodGet)
	r.HandleFunc("/urgency-levels", s.handleUrgencyLevels, http.MethodGet)
	r.HandleFunc("/facility-types", s.handleFacilityTypes, http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/needs/:needID/my-offers", s.handleMyOffersForNeed, http.MethodGet)
		r.HandleFunc("/assignments", s.handleCreateAssignment, http.MethodPost)
		r.HandleFunc("/assignments/:assignmentID/accept", s.handleAcceptAssignment, http.MethodPut)
		r.HandleFunc("/assignments/:assignmentID/complete", s.handleCompleteAssignment, http.MethodPut)
		r.HandleFunc("/my-assignments", s.handleMyAssignments, http.MethodGet)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) userIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(contextKeyUserID).(int64)
	if !ok || userID <= 0 {
		return 0, fmt.Errorf("user id not found in context")
	}
	return userID, nil
}
