package store

import (
	"context"
	"fmt"
	"time"

	"solidarity/internal/utils"
	"solidarity/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const assignmentTableName = "solidarity.assignments"

var assignmentColumns = utils.StructTagValues(types.Assignment{})

type AssignmentRepository struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

func (r *AssignmentRepository) Assignment(ctx context.Context, assignmentID int64) (*types.Assignment, error) {
	return assignmentByID(ctx, r.pool, assignmentID, false)
}

func assignmentByID(ctx context.Context, q querier, assignmentID int64, forUpdate bool) (*types.Assignment, error) {

	builder := psql().Select(assignmentColumns...).From(assignmentTableName).
		Where(sq.Eq{"id": assignmentID}).
		Limit(1)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate assignment query: %w", err)
	}

	var assignment = new(types.Assignment)
	err = pgxscan.Get(ctx, q, assignment, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to fetch assignment %d: %w", assignmentID, err)
	}

	return assignment, nil
}

// LiveAssignmentForNeed returns the proposed or accepted assignment of a
// need, or nil when there is none.
func (r *AssignmentRepository) LiveAssignmentForNeed(ctx context.Context, needID int64) (*types.Assignment, error) {
	return liveAssignment(ctx, r.pool, "need_id", needID)
}

func (r *AssignmentRepository) LiveAssignmentForOffer(ctx context.Context, offerID int64) (*types.Assignment, error) {
	return liveAssignment(ctx, r.pool, "offer_id", offerID)
}

func liveAssignment(ctx context.Context, q querier, column string, id int64) (*types.Assignment, error) {

	query, args, err := psql().Select(assignmentColumns...).From(assignmentTableName).
		Where(sq.Eq{column: id, "status": types.LiveAssignmentStatuses}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate live assignment query: %w", err)
	}

	var assignment = new(types.Assignment)
	err = pgxscan.Get(ctx, q, assignment, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch live assignment by %s %d: %w", column, id, err)
	}

	return assignment, nil
}

// CommitAssignment applies a validated plan as one serializable unit:
// optional counterpart insert, assignment insert, and both status moves
// from active to assigned. A need or offer that gained a live assignment or
// left the active state since validation yields a Conflict.
func (r *AssignmentRepository) CommitAssignment(ctx context.Context, plan *types.AssignmentPlan) (*types.Assignment, error) {

	var created *types.Assignment

	err := inSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		needID, offerID, err := materializePlan(ctx, tx, plan)
		if err != nil {
			return err
		}

		if live, err := liveAssignment(ctx, tx, "need_id", needID); err != nil {
			return err
		} else if live != nil {
			return types.Conflict("need %d already has live assignment %d", needID, live.ID)
		}

		if live, err := liveAssignment(ctx, tx, "offer_id", offerID); err != nil {
			return err
		} else if live != nil {
			return types.Conflict("offer %d already has live assignment %d", offerID, live.ID)
		}

		ok, err := advanceNeedStatus(ctx, tx, needID, types.StatusAssigned, types.StatusActive)
		if err != nil {
			return err
		}
		if !ok {
			return types.Conflict("need %d is no longer active", needID)
		}

		ok, err = advanceOfferStatus(ctx, tx, offerID, types.StatusAssigned, types.StatusActive)
		if err != nil {
			return err
		}
		if !ok {
			return types.Conflict("offer %d is no longer active", offerID)
		}

		created, err = insertAssignment(ctx, tx, needID, offerID, plan.Notes)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.Conflict("need or offer already has a live assignment")
		}
		if isSerializationFailure(err) {
			return nil, types.Conflict("concurrent assignment for the same need or offer")
		}
		return nil, err
	}

	return created, nil
}

func materializePlan(ctx context.Context, tx pgx.Tx, plan *types.AssignmentPlan) (int64, int64, error) {

	if plan.SynthesizeNeed != nil {
		if err := insertNeed(ctx, tx, plan.SynthesizeNeed); err != nil {
			return 0, 0, err
		}
		plan.Need = plan.SynthesizeNeed
	}

	if plan.SynthesizeOffer != nil {
		if err := insertOffer(ctx, tx, plan.SynthesizeOffer); err != nil {
			return 0, 0, err
		}
		plan.Offer = plan.SynthesizeOffer
	}

	if plan.Need == nil || plan.Offer == nil {
		return 0, 0, fmt.Errorf("assignment plan is missing a need or an offer")
	}

	return plan.Need.ID, plan.Offer.ID, nil
}

func insertAssignment(ctx context.Context, q querier, needID, offerID int64, notes *string) (*types.Assignment, error) {

	now := time.Now()

	query, args, err := psql().Insert(assignmentTableName).
		Columns("need_id", "offer_id", "status", "notes", "created_at", "updated_at").
		Values(needID, offerID, types.AssignmentProposed, notes, now, now).
		Suffix(returning(assignmentColumns...)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate insert assignment query: %w", err)
	}

	var assignment = new(types.Assignment)
	err = pgxscan.Get(ctx, q, assignment, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert assignment: %w", err)
	}

	return assignment, nil
}

// AcceptAssignment moves a proposed assignment to accepted.
func (r *AssignmentRepository) AcceptAssignment(ctx context.Context, assignmentID int64) (*types.Assignment, error) {

	var accepted *types.Assignment

	err := runTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		current, err := assignmentByID(ctx, tx, assignmentID, true)
		if err != nil {
			return err
		}

		if current.Status != types.AssignmentProposed {
			return types.Conflict("assignment %d is %s, not proposed", assignmentID, current.Status)
		}

		accepted, err = setAssignmentStatus(ctx, tx, assignmentID, types.AssignmentAccepted)
		return err
	})
	if err != nil {
		return nil, err
	}

	return accepted, nil
}

// CompleteAssignment marks a live assignment completed and carries its need
// and offer to completed in the same transaction.
func (r *AssignmentRepository) CompleteAssignment(ctx context.Context, assignmentID int64) (*types.Assignment, error) {

	var completed *types.Assignment

	err := runTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		current, err := assignmentByID(ctx, tx, assignmentID, true)
		if err != nil {
			return err
		}

		if !current.Status.Live() {
			return types.Conflict("assignment %d is already %s", assignmentID, current.Status)
		}

		completed, err = setAssignmentStatus(ctx, tx, assignmentID, types.AssignmentCompleted)
		if err != nil {
			return err
		}

		if _, err := advanceNeedStatus(ctx, tx, current.NeedID, types.StatusCompleted, types.StatusActive, types.StatusAssigned); err != nil {
			return err
		}

		_, err = advanceOfferStatus(ctx, tx, current.OfferID, types.StatusCompleted, types.StatusActive, types.StatusAssigned)
		return err
	})
	if err != nil {
		return nil, err
	}

	return completed, nil
}

func setAssignmentStatus(ctx context.Context, q querier, assignmentID int64, status types.AssignmentStatus) (*types.Assignment, error) {

	query, args, err := psql().Update(assignmentTableName).
		Set("status", status).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": assignmentID}).
		Suffix(returning(assignmentColumns...)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate update assignment query for assignment %d: %w", assignmentID, err)
	}

	var assignment = new(types.Assignment)
	err = pgxscan.Get(ctx, q, assignment, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update assignment %d: %w", assignmentID, err)
	}

	return assignment, nil
}

// AssignmentsByUser returns every assignment where the user owns the need
// or the offer, newest first.
func (r *AssignmentRepository) AssignmentsByUser(ctx context.Context, userID int64) ([]*types.AssignmentDetail, error) {

	columns := append(utils.PrefixSliceOfStrings("a", assignmentColumns),
		"n.title AS need_title",
		"n.user_id AS need_owner",
		"n.address_point AS need_address",
		"o.title AS offer_title",
		"o.user_id AS offer_owner",
	)
	columns = append(columns, lonLatColumns("n")...)

	query, args, err := psql().Select(columns...).From(assignmentTableName + " a").
		Join(needTableName + " n ON n.id = a.need_id").
		Join(offerTableName + " o ON o.id = a.offer_id").
		Where(sq.Or{sq.Eq{"n.user_id": userID}, sq.Eq{"o.user_id": userID}}).
		OrderBy("a.created_at DESC", "a.id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate assignments by user query: %w", err)
	}

	var assignments = make([]*types.AssignmentDetail, 0)
	err = pgxscan.Select(ctx, r.pool, &assignments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignments for user %d: %w", userID, err)
	}

	return assignments, nil
}
