package store

import (
	"context"
	"fmt"
	"time"

	"solidarity/internal/utils"
	"solidarity/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const needTableName = "solidarity.needs"

var needColumns = utils.StructColumns(types.Need{}, "n", lonLatExprs("n"))

type NeedRepository struct {
	pool *pgxpool.Pool
}

func NewNeedRepository(pool *pgxpool.Pool) *NeedRepository {
	return &NeedRepository{pool: pool}
}

func (r *NeedRepository) Need(ctx context.Context, needID int64) (*types.Need, error) {
	return needByID(ctx, r.pool, needID)
}

func needByID(ctx context.Context, q querier, needID int64) (*types.Need, error) {

	query, args, err := psql().Select(needColumns...).From(needTableName + " n").
		Where(sq.Eq{"n.id": needID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate need query: %w", err)
	}

	var need = new(types.Need)
	err = pgxscan.Get(ctx, q, need, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, fmt.Errorf("failed to fetch need %d: %w", needID, err)
	}

	if err != nil {
		return nil, types.ErrNeedNotFound
	}

	return need, nil
}

// UncoveredNeeds returns active needs with no active offer of the same
// category within radius metres, most urgent first.
func (r *NeedRepository) UncoveredNeeds(ctx context.Context, radius float64) ([]*types.Need, error) {

	coverage, coverageArgs, err := sq.Select("1").From(offerTableName + " o").
		Where("o.category = n.category").
		Where(sq.Eq{"o.status": types.StatusActive}).
		Where(fmt.Sprintf("ST_DWithin(%s, %s, ?)", geography("o.geom"), geography("n.geom")), radius).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate coverage subquery: %w", err)
	}

	query, args, err := psql().Select(needColumns...).From(needTableName + " n").
		Join(urgencyTableName + " u ON u.code = n.urgency").
		Where(sq.Eq{"n.status": types.StatusActive}).
		Where(sq.Expr("NOT EXISTS ("+coverage+")", coverageArgs...)).
		OrderBy("u.rank ASC", "n.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate uncovered needs query: %w", err)
	}

	var needs = make([]*types.Need, 0)
	err = pgxscan.Select(ctx, r.pool, &needs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch uncovered needs: %w", err)
	}

	return needs, nil
}

// CreateNeed inserts a standalone need. Used by the demo seed.
func (r *NeedRepository) CreateNeed(ctx context.Context, need *types.Need) error {
	return insertNeed(ctx, r.pool, need)
}

// insertNeed also creates temporary counterparts inside the assignment
// transaction when an offer is accepted.
func insertNeed(ctx context.Context, q querier, need *types.Need) error {

	now := time.Now()
	need.CreatedAt = now
	need.UpdatedAt = now

	query, args, err := psql().Insert(needTableName).
		SetMap(locatedRow(need, need.Location)).
		Suffix(returning("id")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert need query: %w", err)
	}

	err = pgxscan.Get(ctx, q, &need.ID, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create need")
}

// advanceNeedStatus moves a need forward from one of the given statuses.
// It reports false when the need was not in any of them.
func advanceNeedStatus(ctx context.Context, q querier, needID int64, to types.Status, from ...types.Status) (bool, error) {
	if err := forwardOnly(to, from); err != nil {
		return false, err
	}

	query, args, err := psql().Update(needTableName).
		Set("status", to).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": needID, "status": from}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate update need status query for need %d: %w", needID, err)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update need %d status: %w", needID, err)
	}

	return tag.RowsAffected() == 1, nil
}
