package store

import (
	"context"
	"fmt"

	"solidarity/internal/utils"
	"solidarity/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const facilityTableName = "solidarity.facilities"

var facilityColumns = utils.StructColumns(types.Facility{}, "f", lonLatExprs("f"))

type FacilityRepository struct {
	pool *pgxpool.Pool
}

func NewFacilityRepository(pool *pgxpool.Pool) *FacilityRepository {
	return &FacilityRepository{pool: pool}
}

// NearestFacilities ranks facilities by geodesic distance to a need. An
// empty facilityTypes applies no type filter.
func (r *FacilityRepository) NearestFacilities(ctx context.Context, needID int64, facilityTypes []string, limit int) ([]*types.FacilityDistance, error) {

	columns := append(append([]string{}, facilityColumns...), distanceColumn("f", "n"))

	builder := psql().Select(columns...).From(facilityTableName+" f").
		Join(needTableName+" n ON n.id = ?", needID)

	if len(facilityTypes) > 0 {
		builder = builder.Where(sq.Eq{"f.facility_type": facilityTypes})
	}

	query, args, err := builder.
		OrderBy("distance_m ASC", "f.id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nearest facilities query: %w", err)
	}

	var facilities = make([]*types.FacilityDistance, 0, limit)
	err = pgxscan.Select(ctx, r.pool, &facilities, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nearest facilities for need %d: %w", needID, err)
	}

	return facilities, nil
}

func (r *FacilityRepository) FacilityTypes(ctx context.Context) ([]string, error) {

	query, args, err := psql().Select("facility_type").Distinct().From(facilityTableName).
		OrderBy("facility_type ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate facility types query: %w", err)
	}

	var facilityTypes = make([]string, 0)
	err = pgxscan.Select(ctx, r.pool, &facilityTypes, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch facility types: %w", err)
	}

	return facilityTypes, nil
}
