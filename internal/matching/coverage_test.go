package matching_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"solidarity/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindUncoveredNeeds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	covered := h.store.addNeed(types.Need{UserID: 1, Title: "insulin", Category: "medical", Urgency: types.UrgencyCritical, Location: east(0)})
	h.store.addOffer(types.Offer{UserID: 2, Title: "pharmacist", Category: "medical", Location: east(800)})

	lowFar := h.store.addNeed(types.Need{UserID: 1, Title: "blankets", Category: "shelter", Urgency: types.UrgencyLow, Location: north(100)})
	critical := h.store.addNeed(types.Need{UserID: 1, Title: "oxygen", Category: "medical", Urgency: types.UrgencyCritical, Location: north(5000)})
	high := h.store.addNeed(types.Need{UserID: 3, Title: "evacuation", Category: "transport", Urgency: types.UrgencyHigh, Location: east(100)})
	// out of range for the evacuation need
	h.store.addOffer(types.Offer{UserID: 2, Title: "van", Category: "transport", Location: east(9000)})

	h.store.addNeed(types.Need{UserID: 1, Title: "done", Category: "food", Urgency: types.UrgencyCritical, Status: types.StatusCompleted, Location: east(10)})
	h.store.addNeed(types.Need{UserID: 1, Title: "taken", Category: "food", Urgency: types.UrgencyCritical, Status: types.StatusAssigned, Location: east(10)})

	result, err := h.engine.FindUncoveredNeeds(ctx, 2000)
	require.NoError(t, err)

	ids := make([]int64, 0, len(result.Needs))
	for _, n := range result.Needs {
		assert.Equal(t, types.StatusActive, n.Status)
		ids = append(ids, n.ID)
	}

	assert.Equal(t, []int64{critical.ID, high.ID, lowFar.ID}, ids)
	assert.NotContains(t, ids, covered.ID)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.CriticalCount)
	assert.Equal(t, 1, result.HighCount)
	assert.Equal(t, 2000.0, result.Radius)
}

func TestFindUncoveredNeedsRadiusChangesCoverage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	need := h.store.addNeed(types.Need{UserID: 1, Title: "food parcels", Category: "food", Location: east(0)})
	h.store.addOffer(types.Offer{UserID: 2, Title: "pantry", Category: "food", Location: east(1500)})

	wide, err := h.engine.FindUncoveredNeeds(ctx, 2000)
	require.NoError(t, err)
	assert.Empty(t, wide.Needs)

	narrow, err := h.engine.FindUncoveredNeeds(ctx, 1000)
	require.NoError(t, err)
	require.Len(t, narrow.Needs, 1)
	assert.Equal(t, need.ID, narrow.Needs[0].ID)
}

func TestFindUncoveredNeedsInvalidRadius(t *testing.T) {
	h := newHarness(t)

	for _, radius := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := h.engine.FindUncoveredNeeds(context.Background(), radius)
		assert.ErrorIs(t, err, types.ErrInvalidRequest, "radius %v", radius)
	}
}

func TestFindUncoveredNeedsStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.store.failWith("UncoveredNeeds", errors.New("connection reset"))

	_, err := h.engine.FindUncoveredNeeds(context.Background(), 2000)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDependencyFailure)
	assert.Equal(t, types.KindDependencyFailure, types.KindOf(err))
}
