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

const (
	categoryTableName = "solidarity.categories"
	urgencyTableName  = "solidarity.urgency_levels"
)

var (
	categoryColumns = utils.StructTagValues(types.Category{})
	urgencyColumns  = utils.StructTagValues(types.UrgencyLevel{})
)

type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

func (r *CategoryRepository) AllCategories(ctx context.Context) ([]*types.Category, error) {
	query, args, err := psql().
		Select(categoryColumns...).
		From(categoryTableName).
		OrderBy("display_order ASC", "name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate categories query: %w", err)
	}

	var categories []*types.Category
	err = pgxscan.Select(ctx, r.pool, &categories, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}

	return categories, nil
}

func (r *CategoryRepository) UrgencyLevels(ctx context.Context) ([]*types.UrgencyLevel, error) {
	query, args, err := psql().
		Select(urgencyColumns...).
		From(urgencyTableName).
		OrderBy("rank ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate urgency levels query: %w", err)
	}

	var levels []*types.UrgencyLevel
	err = pgxscan.Select(ctx, r.pool, &levels, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch urgency levels: %w", err)
	}

	return levels, nil
}

func (r *CategoryRepository) UpsertCategory(ctx context.Context, category *types.Category) error {
	categoryMap := utils.StructToMap(category)
	delete(categoryMap, "created_at")

	// Exclude the key from updates
	updateMap := make(map[string]interface{})
	for k, v := range categoryMap {
		if k != "code" {
			updateMap[k] = v
		}
	}

	query, args, err := psql().
		Insert(categoryTableName).
		SetMap(categoryMap).
		Suffix("ON CONFLICT (code) DO UPDATE SET " + buildUpdateClause(updateMap)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}

	return nil
}

func (r *CategoryRepository) UpsertUrgencyLevel(ctx context.Context, level *types.UrgencyLevel) error {
	query, args, err := psql().
		Insert(urgencyTableName).
		SetMap(utils.StructToMap(level)).
		Suffix("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, rank = EXCLUDED.rank").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert urgency query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert urgency level: %w", err)
	}

	return nil
}

// DeleteCategoriesExcept removes categories missing from the seed list.
func (r *CategoryRepository) DeleteCategoriesExcept(ctx context.Context, codes []string) (int64, error) {
	query, args, err := psql().
		Delete(categoryTableName).
		Where(sq.NotEq{"code": codes}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate delete query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete categories: %w", err)
	}

	return tag.RowsAffected(), nil
}

// buildUpdateClause creates the SET clause for ON CONFLICT DO UPDATE
// e.g., "name = EXCLUDED.name, description = EXCLUDED.description, ..."
func buildUpdateClause(fields map[string]interface{}) string {
	var clause string
	first := true
	for field := range fields {
		if !first {
			clause += ", "
		}
		clause += fmt.Sprintf("%s = EXCLUDED.%s", field, field)
		first = false
	}
	return clause
}
