package matching_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"solidarity/internal/utils"
	"solidarity/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	requester = int64(1)
	helper    = int64(2)
	bystander = int64(3)
)

func newAssignmentHarness(t *testing.T) *harness {
	h := newHarness(t)
	h.store.addUser(requester, "requester@example.org")
	h.store.addUser(helper, "helper@example.org")
	h.store.addUser(bystander, "bystander@example.org")
	return h
}

func assertAssigned(t *testing.T, h *harness, result *types.AssignmentResult) {
	t.Helper()

	forNeed, forOffer := h.store.liveFor(result.NeedID, result.OfferID)
	assert.Equal(t, 1, forNeed)
	assert.Equal(t, 1, forOffer)
	assert.Equal(t, types.StatusAssigned, h.store.needSnapshot(result.NeedID).Status)
	assert.Equal(t, types.StatusAssigned, h.store.offerSnapshot(result.OfferID).Status)
}

func TestCreateAssignmentDirect(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{UserID: requester, Title: "insulin", Category: "medical", Location: east(0)})
	offer := h.store.addOffer(types.Offer{UserID: helper, Title: "pharmacy run", Category: "medical", Location: east(400)})

	result, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{
		NeedID:       &need.ID,
		OfferID:      &offer.ID,
		ActingUserID: helper,
		Notes:        utils.StringPtr("on my way"),
	})
	require.NoError(t, err)

	assert.Equal(t, need.ID, result.NeedID)
	assert.Equal(t, offer.ID, result.OfferID)
	assert.False(t, result.SynthesizedNeed)
	assert.False(t, result.SynthesizedOffer)
	assertAssigned(t, h, result)

	assignment, err := h.store.Assignment(context.Background(), result.AssignmentID)
	require.NoError(t, err)
	assert.Equal(t, types.AssignmentProposed, assignment.Status)
	assert.Equal(t, "on my way", utils.PtrString(assignment.Notes))

	sent := h.notifier.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, types.NotificationNeedAccepted, sent[0].Kind)
	assert.Equal(t, "requester@example.org", sent[0].Recipient.Email)
	assert.Equal(t, "helper@example.org", sent[0].Accepter.Email)
	assert.Equal(t, "insulin", sent[0].ItemTitle)
	assert.Equal(t, result.AssignmentID, sent[0].AssignmentID)
	assert.NotEmpty(t, sent[0].ID)
}

func TestCreateAssignmentNeedOwnerAcceptsOffer(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{UserID: requester, Title: "ride to clinic", Category: "transport", Location: east(0)})
	offer := h.store.addOffer(types.Offer{UserID: helper, Title: "car with driver", Category: "transport", Location: east(900)})

	_, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{
		NeedID:       &need.ID,
		OfferID:      &offer.ID,
		ActingUserID: requester,
	})
	require.NoError(t, err)

	sent := h.notifier.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, types.NotificationOfferAccepted, sent[0].Kind)
	assert.Equal(t, "helper@example.org", sent[0].Recipient.Email)
	assert.Equal(t, "car with driver", sent[0].ItemTitle)
}

func TestCreateAssignmentAutoMatch(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{UserID: requester, Title: "hot meals", Category: "food", Location: east(0)})

	oldest := h.store.addOffer(types.Offer{UserID: helper, Title: "soup kitchen", Category: "food", Location: east(100)})
	h.store.addOffer(types.Offer{UserID: helper, Title: "second pot", Category: "food", Location: east(50)})
	h.store.addOffer(types.Offer{UserID: helper, Title: "tents", Category: "shelter", Location: east(10)})

	result, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{
		NeedID:       &need.ID,
		ActingUserID: helper,
	})
	require.NoError(t, err)

	assert.Equal(t, oldest.ID, result.OfferID)
	assertAssigned(t, h, result)
}

func TestCreateAssignmentAutoMatchSkipsBusyOffers(t *testing.T) {
	h := newAssignmentHarness(t)
	first := h.store.addNeed(types.Need{UserID: requester, Title: "groceries", Category: "food", Location: east(0)})
	second := h.store.addNeed(types.Need{UserID: bystander, Title: "baby formula", Category: "food", Location: east(10)})

	busy := h.store.addOffer(types.Offer{UserID: helper, Title: "shopping trip", Category: "food", Location: east(100)})
	free := h.store.addOffer(types.Offer{UserID: helper, Title: "pantry", Category: "food", Location: east(200)})

	res, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &first.ID, ActingUserID: helper})
	require.NoError(t, err)
	require.Equal(t, busy.ID, res.OfferID)

	res, err = h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &second.ID, ActingUserID: helper})
	require.NoError(t, err)
	assert.Equal(t, free.ID, res.OfferID)
}

func TestCreateAssignmentNoMatch(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{ID: 5, UserID: requester, Title: "wheelchair", Category: "medical", Location: east(0)})
	h.store.addOffer(types.Offer{UserID: helper, Title: "blankets", Category: "shelter", Location: east(10)})
	h.store.addOffer(types.Offer{UserID: bystander, Title: "crutches", Category: "medical", Location: east(10)})

	_, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{
		NeedID:       &need.ID,
		ActingUserID: helper,
	})
	assert.ErrorIs(t, err, types.ErrNoMatch)
	assert.Equal(t, types.StatusActive, h.store.needSnapshot(need.ID).Status)
	assert.Empty(t, h.notifier.notifications())
}

func TestCreateAssignmentCategoryMismatch(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{ID: 5, UserID: requester, Title: "antibiotics", Category: "medical", Location: east(0)})
	offer := h.store.addOffer(types.Offer{ID: 9, UserID: helper, Title: "spare room", Category: "shelter", Location: east(10)})

	_, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{
		NeedID:       &need.ID,
		OfferID:      &offer.ID,
		ActingUserID: helper,
	})
	assert.ErrorIs(t, err, types.ErrConstraintViolation)
	assert.Equal(t, types.StatusActive, h.store.needSnapshot(need.ID).Status)
	assert.Equal(t, types.StatusActive, h.store.offerSnapshot(offer.ID).Status)
}

func TestCreateAssignmentNeedAlreadyProposed(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{ID: 5, UserID: requester, Title: "generator", Category: "logistics", Location: east(0)})
	first := h.store.addOffer(types.Offer{ID: 9, UserID: helper, Title: "diesel generator", Category: "logistics", Location: east(10)})
	second := h.store.addOffer(types.Offer{ID: 11, UserID: bystander, Title: "solar panel", Category: "logistics", Location: east(20)})

	_, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &need.ID, OfferID: &first.ID, ActingUserID: helper})
	require.NoError(t, err)

	_, err = h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &need.ID, OfferID: &second.ID, ActingUserID: bystander})
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.Equal(t, types.StatusActive, h.store.offerSnapshot(second.ID).Status)
}

func TestCreateAssignmentOfferAlreadyProposed(t *testing.T) {
	h := newAssignmentHarness(t)
	first := h.store.addNeed(types.Need{UserID: requester, Title: "water", Category: "food", Location: east(0)})
	second := h.store.addNeed(types.Need{UserID: bystander, Title: "more water", Category: "food", Location: east(5)})
	offer := h.store.addOffer(types.Offer{UserID: helper, Title: "water truck", Category: "food", Location: east(10)})

	_, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &first.ID, OfferID: &offer.ID, ActingUserID: helper})
	require.NoError(t, err)

	_, err = h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &second.ID, OfferID: &offer.ID, ActingUserID: helper})
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestCreateAssignmentConcurrent(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{UserID: requester, Title: "pump out basement", Category: "repairs", Location: east(0)})
	offers := []*types.Offer{
		h.store.addOffer(types.Offer{UserID: helper, Title: "water pump", Category: "repairs", Location: east(300)}),
		h.store.addOffer(types.Offer{UserID: bystander, Title: "buckets and hands", Category: "repairs", Location: east(600)}),
	}

	var (
		wg   sync.WaitGroup
		errs = make([]error, len(offers))
	)
	start := make(chan struct{})
	for i, offer := range offers {
		wg.Add(1)
		go func(i int, offerID int64, actor int64) {
			defer wg.Done()
			<-start
			_, errs[i] = h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{
				NeedID:       &need.ID,
				OfferID:      &offerID,
				ActingUserID: actor,
			})
		}(i, offer.ID, offer.UserID)
	}
	close(start)
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, types.ErrConflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	forNeed, _ := h.store.liveFor(need.ID, 0)
	assert.Equal(t, 1, forNeed)
}

func TestCreateAssignmentSynthesizeOffer(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{
		UserID:      requester,
		Title:       "dog walking",
		Description: utils.StringPtr("twice a day"),
		Category:    "pets",
		Address:     utils.StringPtr("Rua Augusta 1"),
		Location:    north(250),
	})

	result, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{
		NeedID:       &need.ID,
		ActingUserID: helper,
		Mode:         types.AcceptModeSynthesize,
	})
	require.NoError(t, err)

	assert.True(t, result.SynthesizedOffer)
	assert.Equal(t, need.ID, result.NeedID)
	assertAssigned(t, h, result)

	offer := h.store.offerSnapshot(result.OfferID)
	assert.Equal(t, helper, offer.UserID)
	assert.Equal(t, need.Title, offer.Title)
	assert.Equal(t, need.Description, offer.Description)
	assert.Equal(t, need.Category, offer.Category)
	assert.Equal(t, need.Address, offer.Address)
	assert.Equal(t, need.Location, offer.Location)

	sent := h.notifier.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, types.NotificationNeedAccepted, sent[0].Kind)
	assert.Equal(t, requester, sent[0].Recipient.UserID)
}

func TestCreateAssignmentOfferOnlySynthesizesNeed(t *testing.T) {
	h := newAssignmentHarness(t)
	offer := h.store.addOffer(types.Offer{UserID: helper, Title: "spare tent", Category: "shelter", Location: east(700)})

	result, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{
		OfferID:      &offer.ID,
		ActingUserID: requester,
	})
	require.NoError(t, err)

	assert.True(t, result.SynthesizedNeed)
	assert.Equal(t, offer.ID, result.OfferID)
	assertAssigned(t, h, result)

	need := h.store.needSnapshot(result.NeedID)
	assert.Equal(t, requester, need.UserID)
	assert.Equal(t, "shelter", need.Category)
	assert.Equal(t, offer.Location, need.Location)

	sent := h.notifier.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, types.NotificationOfferAccepted, sent[0].Kind)
	assert.Equal(t, "helper@example.org", sent[0].Recipient.Email)
	assert.Equal(t, "spare tent", sent[0].ItemTitle)
}

func TestCreateAssignmentValidation(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{UserID: requester, Title: "x", Category: "food", Location: east(0)})
	missing := int64(4242)

	tests := []struct {
		name string
		req  *types.CreateAssignmentRequest
		want error
	}{
		{"nil request", nil, types.ErrInvalidRequest},
		{"no ids", &types.CreateAssignmentRequest{ActingUserID: helper}, types.ErrInvalidRequest},
		{"no acting user", &types.CreateAssignmentRequest{NeedID: &need.ID}, types.ErrInvalidRequest},
		{"bad mode", &types.CreateAssignmentRequest{NeedID: &need.ID, ActingUserID: helper, Mode: "grab"}, types.ErrInvalidRequest},
		{"unknown need", &types.CreateAssignmentRequest{NeedID: &missing, ActingUserID: helper}, types.ErrNotFound},
		{"unknown offer", &types.CreateAssignmentRequest{OfferID: &missing, ActingUserID: helper}, types.ErrNotFound},
		{"unknown offer with need", &types.CreateAssignmentRequest{NeedID: &need.ID, OfferID: &missing, ActingUserID: helper}, types.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.CreateAssignment(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateAssignmentInactiveSides(t *testing.T) {
	h := newAssignmentHarness(t)
	done := h.store.addNeed(types.Need{UserID: requester, Title: "old", Category: "food", Status: types.StatusCompleted, Location: east(0)})
	offer := h.store.addOffer(types.Offer{UserID: helper, Title: "bread", Category: "food", Location: east(10)})

	_, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &done.ID, OfferID: &offer.ID, ActingUserID: helper})
	assert.ErrorIs(t, err, types.ErrConflict)

	need := h.store.addNeed(types.Need{UserID: requester, Title: "new", Category: "food", Location: east(0)})
	gone := h.store.addOffer(types.Offer{UserID: helper, Title: "stale", Category: "food", Status: types.StatusCompleted, Location: east(10)})

	_, err = h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &need.ID, OfferID: &gone.ID, ActingUserID: helper})
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestCreateAssignmentCommitFailure(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{UserID: requester, Title: "x", Category: "food", Location: east(0)})
	offer := h.store.addOffer(types.Offer{UserID: helper, Title: "y", Category: "food", Location: east(10)})
	h.store.failWith("CommitAssignment", errors.New("serialization storm"))

	_, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &need.ID, OfferID: &offer.ID, ActingUserID: helper})
	assert.ErrorIs(t, err, types.ErrDependencyFailure)
	assert.Equal(t, types.StatusActive, h.store.needSnapshot(need.ID).Status)
	assert.Empty(t, h.notifier.notifications())
}

func TestCreateAssignmentNotificationFailureIsLogged(t *testing.T) {
	h := newAssignmentHarness(t)
	h.notifier.err = errors.New("smtp unavailable")
	need := h.store.addNeed(types.Need{UserID: requester, Title: "x", Category: "food", Location: east(0)})
	offer := h.store.addOffer(types.Offer{UserID: helper, Title: "y", Category: "food", Location: east(10)})

	result, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &need.ID, OfferID: &offer.ID, ActingUserID: helper})
	require.NoError(t, err)
	assertAssigned(t, h, result)

	var warned bool
	for _, entry := range h.logs.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "notification not delivered" {
			warned = true
			assert.ErrorIs(t, entry.Data[logrus.ErrorKey].(error), types.ErrNotificationFailure)
		}
	}
	assert.True(t, warned)
}

func TestCreateAssignmentContactLookupFailureIsLogged(t *testing.T) {
	h := newAssignmentHarness(t)
	h.store.failWith("UsersByIDs", errors.New("timeout"))
	need := h.store.addNeed(types.Need{UserID: requester, Title: "x", Category: "food", Location: east(0)})
	offer := h.store.addOffer(types.Offer{UserID: helper, Title: "y", Category: "food", Location: east(10)})

	_, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &need.ID, OfferID: &offer.ID, ActingUserID: helper})
	require.NoError(t, err)
	assert.Empty(t, h.notifier.notifications())
}

func TestCreateAssignmentOwnSidesSkipsNotification(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{UserID: helper, Title: "x", Category: "food", Location: east(0)})
	offer := h.store.addOffer(types.Offer{UserID: helper, Title: "y", Category: "food", Location: east(10)})

	_, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &need.ID, OfferID: &offer.ID, ActingUserID: helper})
	require.NoError(t, err)
	assert.Empty(t, h.notifier.notifications())
}

func TestAcceptAssignment(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{UserID: requester, Title: "x", Category: "food", Location: east(0)})
	offer := h.store.addOffer(types.Offer{UserID: helper, Title: "y", Category: "food", Location: east(10)})

	created, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &need.ID, OfferID: &offer.ID, ActingUserID: helper})
	require.NoError(t, err)

	_, err = h.engine.AcceptAssignment(context.Background(), created.AssignmentID, bystander)
	assert.ErrorIs(t, err, types.ErrInvalidRequest)

	accepted, err := h.engine.AcceptAssignment(context.Background(), created.AssignmentID, requester)
	require.NoError(t, err)
	assert.Equal(t, types.AssignmentAccepted, accepted.Status)

	_, err = h.engine.AcceptAssignment(context.Background(), created.AssignmentID, requester)
	assert.ErrorIs(t, err, types.ErrConflict)

	_, err = h.engine.AcceptAssignment(context.Background(), 777, requester)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCompleteAssignment(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{UserID: requester, Title: "x", Category: "food", Location: east(0)})
	offer := h.store.addOffer(types.Offer{UserID: helper, Title: "y", Category: "food", Location: east(10)})

	created, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &need.ID, OfferID: &offer.ID, ActingUserID: helper})
	require.NoError(t, err)

	_, err = h.engine.CompleteAssignment(context.Background(), created.AssignmentID, bystander)
	require.ErrorIs(t, err, types.ErrInvalidRequest)
	assert.Equal(t, types.StatusAssigned, h.store.needSnapshot(need.ID).Status)
	assert.Equal(t, types.StatusAssigned, h.store.offerSnapshot(offer.ID).Status)

	_, err = h.engine.CompleteAssignment(context.Background(), created.AssignmentID, 0)
	require.ErrorIs(t, err, types.ErrInvalidRequest)

	completed, err := h.engine.CompleteAssignment(context.Background(), created.AssignmentID, requester)
	require.NoError(t, err)
	assert.Equal(t, types.AssignmentCompleted, completed.Status)
	assert.Equal(t, types.StatusCompleted, h.store.needSnapshot(need.ID).Status)
	assert.Equal(t, types.StatusCompleted, h.store.offerSnapshot(offer.ID).Status)

	forNeed, forOffer := h.store.liveFor(need.ID, offer.ID)
	assert.Zero(t, forNeed)
	assert.Zero(t, forOffer)

	_, err = h.engine.CompleteAssignment(context.Background(), created.AssignmentID, helper)
	assert.ErrorIs(t, err, types.ErrConflict)

	_, err = h.engine.CompleteAssignment(context.Background(), 31337, helper)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAssignmentsForUser(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{UserID: requester, Title: "x", Category: "food", Location: east(0)})
	offer := h.store.addOffer(types.Offer{UserID: helper, Title: "y", Category: "food", Location: east(10)})

	created, err := h.engine.CreateAssignment(context.Background(), &types.CreateAssignmentRequest{NeedID: &need.ID, OfferID: &offer.ID, ActingUserID: helper})
	require.NoError(t, err)

	for _, user := range []int64{requester, helper} {
		list, err := h.engine.AssignmentsForUser(context.Background(), user)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, created.AssignmentID, list[0].ID)
		assert.Equal(t, "x", list[0].NeedTitle)
		assert.Equal(t, "y", list[0].OfferTitle)
	}

	list, err := h.engine.AssignmentsForUser(context.Background(), bystander)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = h.engine.AssignmentsForUser(context.Background(), 0)
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
}

func TestOffersForUserNeed(t *testing.T) {
	h := newAssignmentHarness(t)
	need := h.store.addNeed(types.Need{UserID: requester, Title: "x", Category: "clothing", Location: east(0)})
	coat := h.store.addOffer(types.Offer{UserID: helper, Title: "coat", Category: "clothing", Location: east(10)})
	boots := h.store.addOffer(types.Offer{UserID: helper, Title: "boots", Category: "clothing", Location: east(20)})
	h.store.addOffer(types.Offer{UserID: helper, Title: "soup", Category: "food", Location: east(10)})
	h.store.addOffer(types.Offer{UserID: bystander, Title: "scarf", Category: "clothing", Location: east(10)})

	offers, err := h.engine.OffersForUserNeed(context.Background(), need.ID, helper)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, coat.ID, offers[0].ID)
	assert.Equal(t, boots.ID, offers[1].ID)

	_, err = h.engine.OffersForUserNeed(context.Background(), 9999, helper)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
