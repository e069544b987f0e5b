package matching

import (
	"cmp"
	"context"
	"slices"

	"solidarity/pkg/types"

	"github.com/sirupsen/logrus"
)

// FindUncoveredNeeds returns every active need with no active offer of the
// same category within radius metres, most urgent first.
func (e *Engine) FindUncoveredNeeds(ctx context.Context, radius float64) (*types.UncoveredNeeds, error) {
	if err := validateRadius(radius); err != nil {
		return nil, err
	}

	qctx, cancel := e.queryContext(ctx)
	defer cancel()

	needs, err := e.needs.UncoveredNeeds(qctx, radius)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to query uncovered needs")
	}

	out := make([]*types.Need, 0, len(needs))
	for _, need := range needs {
		if need.Status != types.StatusActive {
			continue
		}
		out = append(out, need)
	}

	slices.SortStableFunc(out, func(a, b *types.Need) int {
		if c := cmp.Compare(a.Urgency.Rank(), b.Urgency.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	result := &types.UncoveredNeeds{
		Radius: radius,
		Needs:  out,
		Total:  len(out),
	}
	for _, need := range out {
		switch need.Urgency {
		case types.UrgencyCritical:
			result.CriticalCount++
		case types.UrgencyHigh:
			result.HighCount++
		}
	}

	e.logger.WithFields(logrus.Fields{
		"radius_m": radius,
		"total":    result.Total,
		"critical": result.CriticalCount,
	}).Debug("coverage analysed")

	return result, nil
}
