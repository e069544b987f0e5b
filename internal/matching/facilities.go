package matching

import (
	"cmp"
	"context"
	"slices"

	"solidarity/pkg/types"
)

// ClampLimit applies the default facility limit when limit is unset and caps
// it at the configured maximum.
func (e *Engine) ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return e.opts.DefaultFacilityLimit
	case limit > e.opts.MaxFacilityLimit:
		return e.opts.MaxFacilityLimit
	}
	return limit
}

// facilityTypeFilter decides which facility types to search for. A mapped
// category wins unless the caller asked for a type explicitly.
func (e *Engine) facilityTypeFilter(category, explicitType string) []string {
	if explicitType != "" {
		return []string{explicitType}
	}
	if mapped, ok := e.facilityMap.TypesFor(category); ok {
		return mapped
	}
	return nil
}

// FindNearestFacilities recommends the facilities closest to a need, filtered
// by the facility types relevant to its category.
func (e *Engine) FindNearestFacilities(ctx context.Context, query *types.FacilityQuery) (*types.NearestFacilities, error) {
	if query == nil || query.NeedID <= 0 {
		return nil, types.ErrNeedNotFound
	}

	limit := e.ClampLimit(query.Limit)

	qctx, cancel := e.queryContext(ctx)
	defer cancel()

	need, err := e.needs.Need(qctx, query.NeedID)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to fetch need")
	}

	category := query.Category
	if category == "" {
		category = need.Category
	}

	filter := e.facilityTypeFilter(category, query.Type)

	facilities, err := e.facilities.NearestFacilities(qctx, need.ID, filter, limit)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to query nearest facilities")
	}

	if len(filter) > 0 {
		facilities = slices.DeleteFunc(facilities, func(f *types.FacilityDistance) bool {
			return !slices.Contains(filter, f.FacilityType)
		})
	}

	slices.SortStableFunc(facilities, func(a, b *types.FacilityDistance) int {
		if c := cmp.Compare(a.DistanceM, b.DistanceM); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if len(facilities) > limit {
		facilities = facilities[:limit]
	}

	return &types.NearestFacilities{
		NeedID:     need.ID,
		TypeFilter: filter,
		Facilities: facilities,
	}, nil
}
