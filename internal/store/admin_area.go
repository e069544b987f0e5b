package store

import (
	"context"
	"fmt"
	"strings"

	"solidarity/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	adminAreaTableName = "solidarity.administrative_areas"
	areaSearchLimit    = 10
)

type AdminAreaRepository struct {
	pool *pgxpool.Pool
}

func NewAdminAreaRepository(pool *pgxpool.Pool) *AdminAreaRepository {
	return &AdminAreaRepository{pool: pool}
}

// activeWithin counts active rows of table whose point lies inside the
// area polygon aliased as a.
func activeWithin(table string) (string, []any, error) {
	return sq.Select("COUNT(*)").From(table + " x").
		Where(sq.Eq{"x.status": types.StatusActive}).
		Where("ST_Within(x.geom, a.geom)").
		ToSql()
}

// AreaStats counts active needs and offers inside each administrative area,
// optionally restricted to one admin level, busiest areas first.
func (r *AdminAreaRepository) AreaStats(ctx context.Context, adminLevel *int) ([]*types.AreaStats, error) {

	needCount, needArgs, err := activeWithin(needTableName)
	if err != nil {
		return nil, fmt.Errorf("failed to generate need count subquery: %w", err)
	}

	offerCount, offerArgs, err := activeWithin(offerTableName)
	if err != nil {
		return nil, fmt.Errorf("failed to generate offer count subquery: %w", err)
	}

	builder := psql().
		Select("a.area_id", "a.name_area", "a.admin_level", "ST_AsGeoJSON(ST_Transform(a.geom, 4326))::json AS geom").
		Column(sq.Alias(sq.Expr(needCount, needArgs...), "need_count")).
		Column(sq.Alias(sq.Expr(offerCount, offerArgs...), "offer_count")).
		From(adminAreaTableName + " a")

	if adminLevel != nil {
		builder = builder.Where(sq.Eq{"a.admin_level": *adminLevel})
	}

	query, args, err := builder.OrderBy("need_count DESC", "a.area_id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate area stats query: %w", err)
	}

	var stats = make([]*types.AreaStats, 0)
	err = pgxscan.Select(ctx, r.pool, &stats, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch area stats: %w", err)
	}

	return stats, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches name literally anywhere in the column. Postgres
// uses backslash as the default LIKE escape.
func containsPattern(name string) string {
	return "%" + likeEscaper.Replace(name) + "%"
}

// AreasByName is the autocomplete lookup for area-based filtering.
func (r *AdminAreaRepository) AreasByName(ctx context.Context, name string) ([]*types.AdminArea, error) {

	query, args, err := psql().
		Select("area_id", "name_area", "admin_level", "ST_AsGeoJSON(ST_Transform(geom, 4326))::json AS geom").
		From(adminAreaTableName).
		Where(sq.ILike{"name_area": containsPattern(name)}).
		OrderBy("name_area ASC").
		Limit(areaSearchLimit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate area search query: %w", err)
	}

	var areas = make([]*types.AdminArea, 0)
	err = pgxscan.Select(ctx, r.pool, &areas, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search areas: %w", err)
	}

	return areas, nil
}
