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

const offerTableName = "solidarity.offers"

var offerColumns = utils.StructColumns(types.Offer{}, "o", lonLatExprs("o"))

type OfferRepository struct {
	pool *pgxpool.Pool
}

func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

func (r *OfferRepository) Offer(ctx context.Context, offerID int64) (*types.Offer, error) {
	return offerByID(ctx, r.pool, offerID)
}

func offerByID(ctx context.Context, q querier, offerID int64) (*types.Offer, error) {

	query, args, err := psql().Select(offerColumns...).From(offerTableName + " o").
		Where(sq.Eq{"o.id": offerID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate offer query: %w", err)
	}

	var offer = new(types.Offer)
	err = pgxscan.Get(ctx, q, offer, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, fmt.Errorf("failed to fetch offer %d: %w", offerID, err)
	}

	if err != nil {
		return nil, types.ErrOfferNotFound
	}

	return offer, nil
}

// OffersForNeed returns every active offer sharing the need's category with
// its geodesic distance to the need, closest first.
func (r *OfferRepository) OffersForNeed(ctx context.Context, needID int64) ([]*types.OfferDistance, error) {

	columns := append(append([]string{}, offerColumns...), distanceColumn("o", "n"))

	query, args, err := psql().Select(columns...).From(offerTableName + " o").
		Join(needTableName+" n ON n.id = ?", needID).
		Where("o.category = n.category").
		Where(sq.Eq{"o.status": types.StatusActive}).
		OrderBy("distance_m ASC", "o.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate offers for need query: %w", err)
	}

	var offers = make([]*types.OfferDistance, 0)
	err = pgxscan.Select(ctx, r.pool, &offers, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch offers for need %d: %w", needID, err)
	}

	return offers, nil
}

// ActiveOffersByUser lists a user's active offers in one category, oldest
// first. These are the auto-match candidates when the user accepts a need.
func (r *OfferRepository) ActiveOffersByUser(ctx context.Context, userID int64, category string) ([]*types.Offer, error) {

	query, args, err := psql().Select(offerColumns...).From(offerTableName + " o").
		Where(sq.Eq{"o.user_id": userID, "o.category": category, "o.status": types.StatusActive}).
		OrderBy("o.created_at ASC", "o.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate offers by user query: %w", err)
	}

	var offers = make([]*types.Offer, 0)
	err = pgxscan.Select(ctx, r.pool, &offers, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch offers for user %d: %w", userID, err)
	}

	return offers, nil
}

func (r *OfferRepository) CreateOffer(ctx context.Context, offer *types.Offer) error {
	return insertOffer(ctx, r.pool, offer)
}

func insertOffer(ctx context.Context, q querier, offer *types.Offer) error {

	now := time.Now()
	offer.CreatedAt = now
	offer.UpdatedAt = now

	query, args, err := psql().Insert(offerTableName).
		SetMap(locatedRow(offer, offer.Location)).
		Suffix(returning("id")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert offer query: %w", err)
	}

	err = pgxscan.Get(ctx, q, &offer.ID, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create offer")
}

func advanceOfferStatus(ctx context.Context, q querier, offerID int64, to types.Status, from ...types.Status) (bool, error) {
	if err := forwardOnly(to, from); err != nil {
		return false, err
	}

	query, args, err := psql().Update(offerTableName).
		Set("status", to).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": offerID, "status": from}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate update offer status query for offer %d: %w", offerID, err)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update offer %d status: %w", offerID, err)
	}

	return tag.RowsAffected() == 1, nil
}
