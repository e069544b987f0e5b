package matching

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"solidarity/pkg/types"
)

// AreaStats counts active needs and offers inside each administrative area,
// optionally limited to one admin level. Areas with the most needs come first.
func (e *Engine) AreaStats(ctx context.Context, adminLevel *int) (*types.AreaStatsSummary, error) {
	if adminLevel != nil && *adminLevel <= 0 {
		return nil, types.InvalidRequest("admin_level must be positive, got %d", *adminLevel)
	}

	qctx, cancel := e.queryContext(ctx)
	defer cancel()

	areas, err := e.areas.AreaStats(qctx, adminLevel)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to query area stats")
	}

	slices.SortStableFunc(areas, func(a, b *types.AreaStats) int {
		if c := cmp.Compare(b.NeedCount, a.NeedCount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	summary := &types.AreaStatsSummary{
		AdminLevel: adminLevel,
		Areas:      areas,
	}
	for _, area := range areas {
		summary.TotalActiveNeeds += area.NeedCount
		summary.TotalActiveOffers += area.OfferCount
	}

	return summary, nil
}

// SearchAreas is the case-insensitive name autocomplete.
func (e *Engine) SearchAreas(ctx context.Context, name string) ([]*types.AdminArea, error) {
	qctx, cancel := e.queryContext(ctx)
	defer cancel()

	areas, err := e.areas.AreasByName(qctx, strings.TrimSpace(name))
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to search areas")
	}
	return areas, nil
}
