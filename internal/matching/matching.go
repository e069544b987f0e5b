// Package matching pairs needs with offers. It answers coverage and
// proximity questions against the spatial store, recommends facilities for a
// need's category, and drives the assignment state machine.
//
// The engine keeps no mutable state between calls; all shared state lives in
// the store behind the repository interfaces below.
package matching

import (
	"context"
	"math"
	"time"

	"solidarity/pkg/types"

	"github.com/sirupsen/logrus"
)

type NeedRepository interface {
	Need(ctx context.Context, needID int64) (*types.Need, error)
	UncoveredNeeds(ctx context.Context, radius float64) ([]*types.Need, error)
}

type OfferRepository interface {
	Offer(ctx context.Context, offerID int64) (*types.Offer, error)
	OffersForNeed(ctx context.Context, needID int64) ([]*types.OfferDistance, error)
	ActiveOffersByUser(ctx context.Context, userID int64, category string) ([]*types.Offer, error)
}

type FacilityRepository interface {
	NearestFacilities(ctx context.Context, needID int64, facilityTypes []string, limit int) ([]*types.FacilityDistance, error)
}

type AssignmentRepository interface {
	Assignment(ctx context.Context, assignmentID int64) (*types.Assignment, error)
	LiveAssignmentForNeed(ctx context.Context, needID int64) (*types.Assignment, error)
	LiveAssignmentForOffer(ctx context.Context, offerID int64) (*types.Assignment, error)
	CommitAssignment(ctx context.Context, plan *types.AssignmentPlan) (*types.Assignment, error)
	AcceptAssignment(ctx context.Context, assignmentID int64) (*types.Assignment, error)
	CompleteAssignment(ctx context.Context, assignmentID int64) (*types.Assignment, error)
	AssignmentsByUser(ctx context.Context, userID int64) ([]*types.AssignmentDetail, error)
}

type UserRepository interface {
	UsersByIDs(ctx context.Context, userIDs []int64) ([]*types.User, error)
}

type AreaRepository interface {
	AreaStats(ctx context.Context, adminLevel *int) ([]*types.AreaStats, error)
	AreasByName(ctx context.Context, name string) ([]*types.AdminArea, error)
}

// Notifier delivers the "your item was accepted" message. Errors are logged
// by the engine and never returned to callers.
type Notifier interface {
	Notify(ctx context.Context, n *types.Notification) error
}

type Repositories struct {
	Needs       NeedRepository
	Offers      OfferRepository
	Facilities  FacilityRepository
	Assignments AssignmentRepository
	Users       UserRepository
	Areas       AreaRepository
}

type Options struct {
	QueryTimeout         time.Duration
	NotifyTimeout        time.Duration
	DefaultFacilityLimit int
	MaxFacilityLimit     int
}

const (
	defaultQueryTimeout  = 5 * time.Second
	defaultNotifyTimeout = 10 * time.Second
	defaultFacilityLimit = 5
	maxFacilityLimit     = 50
)

func (o Options) withDefaults() Options {
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = defaultQueryTimeout
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = defaultNotifyTimeout
	}
	if o.MaxFacilityLimit <= 0 {
		o.MaxFacilityLimit = maxFacilityLimit
	}
	if o.DefaultFacilityLimit <= 0 {
		o.DefaultFacilityLimit = defaultFacilityLimit
	}
	if o.DefaultFacilityLimit > o.MaxFacilityLimit {
		o.DefaultFacilityLimit = o.MaxFacilityLimit
	}
	return o
}

type Engine struct {
	logger      *logrus.Logger
	needs       NeedRepository
	offers      OfferRepository
	facilities  FacilityRepository
	assignments AssignmentRepository
	users       UserRepository
	areas       AreaRepository
	notifier    Notifier
	facilityMap *FacilityMap
	opts        Options
}

func New(logger *logrus.Logger, repos Repositories, notifier Notifier, facilityMap *FacilityMap, opts Options) *Engine {
	if facilityMap == nil {
		facilityMap = DefaultFacilityMap()
	}

	return &Engine{
		logger:      logger,
		needs:       repos.Needs,
		offers:      repos.Offers,
		facilities:  repos.Facilities,
		assignments: repos.Assignments,
		users:       repos.Users,
		areas:       repos.Areas,
		notifier:    notifier,
		facilityMap: facilityMap,
		opts:        opts.withDefaults(),
	}
}

func (e *Engine) FacilityMap() *FacilityMap {
	return e.facilityMap
}

// queryContext bounds a single store round trip.
func (e *Engine) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.opts.QueryTimeout)
}

func validateRadius(radius float64) error {
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius <= 0 {
		return types.InvalidRequest("radius must be a positive number of metres, got %v", radius)
	}
	return nil
}
