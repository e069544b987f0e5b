package matching_test

import (
	"cmp"
	"context"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"solidarity/internal/matching"
	"solidarity/pkg/types"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// origin is central Lisbon; fixtures are placed at metre offsets from it.
var origin = orb.Point{-9.1393, 38.7223}

func east(metres float64) types.Location {
	return types.LocationFromPoint(geo.PointAtBearingAndDistance(origin, 90, metres))
}

func west(metres float64) types.Location {
	return types.LocationFromPoint(geo.PointAtBearingAndDistance(origin, 270, metres))
}

func north(metres float64) types.Location {
	return types.LocationFromPoint(geo.PointAtBearingAndDistance(origin, 0, metres))
}

type fakeArea struct {
	area    types.AdminArea
	polygon orb.Polygon
}

// fakeStore is an in-memory stand-in for the PostGIS store. One mutex guards
// everything so CommitAssignment is atomic like the serializable transaction.
type fakeStore struct {
	mu sync.Mutex

	nextID      int64
	clock       time.Time
	needs       map[int64]*types.Need
	offers      map[int64]*types.Offer
	assignments map[int64]*types.Assignment
	users       map[int64]*types.User
	facilities  []*types.Facility
	areas       []fakeArea

	errs map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:      100,
		clock:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		needs:       make(map[int64]*types.Need),
		offers:      make(map[int64]*types.Offer),
		assignments: make(map[int64]*types.Assignment),
		users:       make(map[int64]*types.User),
		errs:        make(map[string]error),
	}
}

func (s *fakeStore) failWith(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[op] = err
}

func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) addNeed(n types.Need) *types.Need {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == 0 {
		n.ID = s.id()
	}
	if n.Status == "" {
		n.Status = types.StatusActive
	}
	if n.Urgency == "" {
		n.Urgency = types.UrgencyMedium
	}
	n.CreatedAt = s.tick()
	n.UpdatedAt = n.CreatedAt
	s.needs[n.ID] = &n
	return &n
}

func (s *fakeStore) addOffer(o types.Offer) *types.Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		o.ID = s.id()
	}
	if o.Status == "" {
		o.Status = types.StatusActive
	}
	o.CreatedAt = s.tick()
	o.UpdatedAt = o.CreatedAt
	s.offers[o.ID] = &o
	return &o
}

func (s *fakeStore) addUser(id int64, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &types.User{ID: id, Subject: "sub-" + email, Username: email}
	if email != "" {
		u.Email = &email
	}
	s.users[id] = u
}

func (s *fakeStore) addFacility(f types.Facility) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == 0 {
		f.ID = s.id()
	}
	s.facilities = append(s.facilities, &f)
}

func (s *fakeStore) addArea(area types.AdminArea, polygon orb.Polygon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.areas = append(s.areas, fakeArea{area: area, polygon: polygon})
}

func (s *fakeStore) needSnapshot(id int64) types.Need {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.needs[id]
}

func (s *fakeStore) offerSnapshot(id int64) types.Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.offers[id]
}

func (s *fakeStore) liveFor(needID, offerID int64) (forNeed, forOffer int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if !a.Status.Live() {
			continue
		}
		if a.NeedID == needID {
			forNeed++
		}
		if a.OfferID == offerID {
			forOffer++
		}
	}
	return forNeed, forOffer
}

func distance(a, b types.Location) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point())
}

func (s *fakeStore) Need(ctx context.Context, needID int64) (*types.Need, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["Need"]; err != nil {
		return nil, err
	}
	n, ok := s.needs[needID]
	if !ok {
		return nil, types.ErrNeedNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *fakeStore) UncoveredNeeds(ctx context.Context, radius float64) ([]*types.Need, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["UncoveredNeeds"]; err != nil {
		return nil, err
	}

	out := make([]*types.Need, 0)
	for _, n := range s.needs {
		if n.Status != types.StatusActive {
			continue
		}
		covered := false
		for _, o := range s.offers {
			if o.Status == types.StatusActive && o.Category == n.Category && distance(n.Location, o.Location) <= radius {
				covered = true
				break
			}
		}
		if !covered {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) Offer(ctx context.Context, offerID int64) (*types.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[offerID]
	if !ok {
		return nil, types.ErrOfferNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeStore) OffersForNeed(ctx context.Context, needID int64) ([]*types.OfferDistance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["OffersForNeed"]; err != nil {
		return nil, err
	}
	n, ok := s.needs[needID]
	if !ok {
		return nil, types.ErrNeedNotFound
	}

	out := make([]*types.OfferDistance, 0)
	for _, o := range s.offers {
		if o.Status != types.StatusActive || o.Category != n.Category {
			continue
		}
		out = append(out, &types.OfferDistance{Offer: *o, DistanceM: distance(n.Location, o.Location)})
	}
	// map order on purpose: the engine owns the final ordering
	return out, nil
}

func (s *fakeStore) ActiveOffersByUser(ctx context.Context, userID int64, category string) ([]*types.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Offer, 0)
	for _, o := range s.offers {
		if o.UserID == userID && o.Category == category && o.Status == types.StatusActive {
			cp := *o
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *types.Offer) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *fakeStore) NearestFacilities(ctx context.Context, needID int64, facilityTypes []string, limit int) ([]*types.FacilityDistance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.needs[needID]
	if !ok {
		return nil, types.ErrNeedNotFound
	}

	out := make([]*types.FacilityDistance, 0)
	for _, f := range s.facilities {
		if len(facilityTypes) > 0 && !slices.Contains(facilityTypes, f.FacilityType) {
			continue
		}
		out = append(out, &types.FacilityDistance{Facility: *f, DistanceM: distance(n.Location, f.Location)})
	}
	slices.SortFunc(out, func(a, b *types.FacilityDistance) int { return cmp.Compare(a.DistanceM, b.DistanceM) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) Assignment(ctx context.Context, assignmentID int64) (*types.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return nil, types.ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) liveLocked(match func(*types.Assignment) bool) *types.Assignment {
	for _, a := range s.assignments {
		if a.Status.Live() && match(a) {
			cp := *a
			return &cp
		}
	}
	return nil
}

func (s *fakeStore) LiveAssignmentForNeed(ctx context.Context, needID int64) (*types.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked(func(a *types.Assignment) bool { return a.NeedID == needID }), nil
}

func (s *fakeStore) LiveAssignmentForOffer(ctx context.Context, offerID int64) (*types.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked(func(a *types.Assignment) bool { return a.OfferID == offerID }), nil
}

func (s *fakeStore) CommitAssignment(ctx context.Context, plan *types.AssignmentPlan) (*types.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["CommitAssignment"]; err != nil {
		return nil, err
	}

	now := s.tick()
	need, offer := plan.Need, plan.Offer
	if plan.SynthesizeNeed != nil {
		n := *plan.SynthesizeNeed
		n.ID, n.CreatedAt, n.UpdatedAt = s.id(), now, now
		need = &n
	}
	if plan.SynthesizeOffer != nil {
		o := *plan.SynthesizeOffer
		o.ID, o.CreatedAt, o.UpdatedAt = s.id(), now, now
		offer = &o
	}

	if live := s.liveLocked(func(a *types.Assignment) bool { return a.NeedID == need.ID }); live != nil {
		return nil, types.Conflict("need %d already has live assignment %d", need.ID, live.ID)
	}
	if live := s.liveLocked(func(a *types.Assignment) bool { return a.OfferID == offer.ID }); live != nil {
		return nil, types.Conflict("offer %d already has live assignment %d", offer.ID, live.ID)
	}
	if stored, ok := s.needs[need.ID]; ok && stored.Status != types.StatusActive {
		return nil, types.Conflict("need %d is no longer active", need.ID)
	}
	if stored, ok := s.offers[offer.ID]; ok && stored.Status != types.StatusActive {
		return nil, types.Conflict("offer %d is no longer active", offer.ID)
	}

	if plan.SynthesizeNeed != nil {
		s.needs[need.ID] = need
		plan.SynthesizeNeed.ID = need.ID
		plan.Need = plan.SynthesizeNeed
	}
	if plan.SynthesizeOffer != nil {
		s.offers[offer.ID] = offer
		plan.SynthesizeOffer.ID = offer.ID
		plan.Offer = plan.SynthesizeOffer
	}
	s.needs[need.ID].Status = types.StatusAssigned
	s.offers[offer.ID].Status = types.StatusAssigned

	a := &types.Assignment{
		ID:        s.id(),
		NeedID:    need.ID,
		OfferID:   offer.ID,
		Status:    types.AssignmentProposed,
		Notes:     plan.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.assignments[a.ID] = a
	cp := *a
	return &cp, nil
}

func (s *fakeStore) AcceptAssignment(ctx context.Context, assignmentID int64) (*types.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return nil, types.ErrAssignmentNotFound
	}
	if a.Status != types.AssignmentProposed {
		return nil, types.Conflict("assignment %d is %s, not proposed", assignmentID, a.Status)
	}
	a.Status = types.AssignmentAccepted
	a.UpdatedAt = s.tick()
	cp := *a
	return &cp, nil
}

func (s *fakeStore) CompleteAssignment(ctx context.Context, assignmentID int64) (*types.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return nil, types.ErrAssignmentNotFound
	}
	if !a.Status.Live() {
		return nil, types.Conflict("assignment %d is already %s", assignmentID, a.Status)
	}
	a.Status = types.AssignmentCompleted
	a.UpdatedAt = s.tick()
	s.needs[a.NeedID].Status = types.StatusCompleted
	s.offers[a.OfferID].Status = types.StatusCompleted
	cp := *a
	return &cp, nil
}

func (s *fakeStore) AssignmentsByUser(ctx context.Context, userID int64) ([]*types.AssignmentDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.AssignmentDetail, 0)
	for _, a := range s.assignments {
		n, o := s.needs[a.NeedID], s.offers[a.OfferID]
		if n.UserID != userID && o.UserID != userID {
			continue
		}
		out = append(out, &types.AssignmentDetail{
			Assignment: *a,
			NeedTitle:  n.Title,
			NeedOwner:  n.UserID,
			OfferTitle: o.Title,
			OfferOwner: o.UserID,
			Location:   n.Location,
		})
	}
	slices.SortFunc(out, func(a, b *types.AssignmentDetail) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (s *fakeStore) UsersByIDs(ctx context.Context, userIDs []int64) ([]*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["UsersByIDs"]; err != nil {
		return nil, err
	}
	out := make([]*types.User, 0, len(userIDs))
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) AreaStats(ctx context.Context, adminLevel *int) ([]*types.AreaStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.AreaStats, 0)
	for _, fa := range s.areas {
		if adminLevel != nil && fa.area.AdminLevel != *adminLevel {
			continue
		}
		stats := &types.AreaStats{AdminArea: fa.area}
		for _, n := range s.needs {
			if n.Status == types.StatusActive && planar.PolygonContains(fa.polygon, n.Point()) {
				stats.NeedCount++
			}
		}
		for _, o := range s.offers {
			if o.Status == types.StatusActive && planar.PolygonContains(fa.polygon, o.Point()) {
				stats.OfferCount++
			}
		}
		out = append(out, stats)
	}
	return out, nil
}

func (s *fakeStore) AreasByName(ctx context.Context, name string) ([]*types.AdminArea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.AdminArea, 0)
	for _, fa := range s.areas {
		if strings.Contains(strings.ToLower(fa.area.Name), strings.ToLower(name)) {
			a := fa.area
			out = append(out, &a)
		}
		if len(out) == 10 {
			break
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*types.Notification
	err  error
}

func (n *fakeNotifier) Notify(ctx context.Context, notification *types.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification)
	return nil
}

func (n *fakeNotifier) notifications() []*types.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.sent)
}

type harness struct {
	store    *fakeStore
	notifier *fakeNotifier
	logs     *test.Hook
	engine   *matching.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)

	store := newFakeStore()
	notifier := &fakeNotifier{}

	engine := matching.New(logger, matching.Repositories{
		Needs:       store,
		Offers:      store,
		Facilities:  store,
		Assignments: store,
		Users:       store,
		Areas:       store,
	}, notifier, matching.DefaultFacilityMap(), matching.Options{
		QueryTimeout:  time.Second,
		NotifyTimeout: time.Second,
	})

	return &harness{store: store, notifier: notifier, logs: hook, engine: engine}
}
