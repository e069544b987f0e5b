package matching

import (
	"cmp"
	"context"
	"slices"

	"solidarity/pkg/types"
)

// Classify tags an offer at distanceM metres as nearby or related for the
// given radius. The boundary is inclusive.
func Classify(distanceM, radius float64) types.Proximity {
	if distanceM <= radius {
		return types.ProximityNearby
	}
	return types.ProximityRelated
}

// FindNearbyOffers lists every active offer in the need's category with its
// geodesic distance from the need, closest first. Offers beyond radius are
// still returned, tagged related.
func (e *Engine) FindNearbyOffers(ctx context.Context, needID int64, radius float64) (*types.NearbyOffers, error) {
	if err := validateRadius(radius); err != nil {
		return nil, err
	}

	qctx, cancel := e.queryContext(ctx)
	defer cancel()

	need, err := e.needs.Need(qctx, needID)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to fetch need")
	}

	offers, err := e.offers.OffersForNeed(qctx, need.ID)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to query offers for need")
	}

	result := &types.NearbyOffers{
		NeedID:       need.ID,
		Radius:       radius,
		NeedLocation: need.Location,
		Offers:       make([]*types.ProximityOffer, 0, len(offers)),
	}

	for _, offer := range offers {
		if offer.Status != types.StatusActive || offer.Category != need.Category {
			continue
		}

		proximity := Classify(offer.DistanceM, radius)
		if proximity == types.ProximityNearby {
			result.NearbyCount++
		} else {
			result.RelatedCount++
		}

		result.Offers = append(result.Offers, &types.ProximityOffer{
			OfferDistance: offer,
			Proximity:     proximity,
		})
	}

	slices.SortStableFunc(result.Offers, func(a, b *types.ProximityOffer) int {
		if c := cmp.Compare(a.DistanceM, b.DistanceM); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return result, nil
}
