package matching

import (
	"context"

	"solidarity/internal/utils"
	"solidarity/pkg/types"

	"github.com/sirupsen/logrus"
)

// CreateAssignment pairs a need with an offer on behalf of the acting user.
//
// With both ids the pair is validated as given. With only a need, the
// acting user's own eligible offer is picked (auto_match) or a temporary
// offer is synthesized (synthesize). With only an offer, a temporary need
// is always synthesized. The assignment starts out proposed and both sides
// move to assigned in the same transaction.
func (e *Engine) CreateAssignment(ctx context.Context, req *types.CreateAssignmentRequest) (*types.AssignmentResult, error) {
	if req == nil || (req.NeedID == nil && req.OfferID == nil) {
		return nil, types.InvalidRequest("need_id or offer_id is required")
	}
	if req.ActingUserID <= 0 {
		return nil, types.InvalidRequest("acting user is required")
	}

	mode := req.Mode
	if mode == "" {
		mode = types.AcceptModeAutoMatch
	}
	if mode != types.AcceptModeAutoMatch && mode != types.AcceptModeSynthesize {
		return nil, types.InvalidRequest("unknown accept mode %q", mode)
	}

	plan, err := e.planAssignment(ctx, req, mode)
	if err != nil {
		return nil, err
	}

	cctx, cancel := e.queryContext(ctx)
	defer cancel()

	created, err := e.assignments.CommitAssignment(cctx, plan)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to commit assignment")
	}

	need, offer := plan.Need, plan.Offer
	if need == nil {
		need = plan.SynthesizeNeed
	}
	if offer == nil {
		offer = plan.SynthesizeOffer
	}

	result := &types.AssignmentResult{
		AssignmentID:     created.ID,
		NeedID:           created.NeedID,
		OfferID:          created.OfferID,
		SynthesizedNeed:  plan.SynthesizeNeed != nil,
		SynthesizedOffer: plan.SynthesizeOffer != nil,
	}

	e.logger.WithFields(logrus.Fields{
		"assignment_id":     result.AssignmentID,
		"need_id":           result.NeedID,
		"offer_id":          result.OfferID,
		"acting_user_id":    req.ActingUserID,
		"synthesized_need":  result.SynthesizedNeed,
		"synthesized_offer": result.SynthesizedOffer,
	}).Info("assignment created")

	e.notifyAccepted(ctx, req.ActingUserID, created.ID, need, offer)

	return result, nil
}

func (e *Engine) planAssignment(ctx context.Context, req *types.CreateAssignmentRequest, mode types.AcceptMode) (*types.AssignmentPlan, error) {
	qctx, cancel := e.queryContext(ctx)
	defer cancel()

	plan := &types.AssignmentPlan{Notes: req.Notes}

	switch {
	case req.NeedID != nil && req.OfferID != nil:
		need, err := e.needs.Need(qctx, *req.NeedID)
		if err != nil {
			return nil, types.DependencyFailure(err, "failed to fetch need")
		}
		offer, err := e.offers.Offer(qctx, *req.OfferID)
		if err != nil {
			return nil, types.DependencyFailure(err, "failed to fetch offer")
		}
		if need.Category != offer.Category {
			return nil, types.ConstraintViolation("need category %q does not match offer category %q", need.Category, offer.Category)
		}
		plan.Need, plan.Offer = need, offer

	case req.NeedID != nil:
		need, err := e.needs.Need(qctx, *req.NeedID)
		if err != nil {
			return nil, types.DependencyFailure(err, "failed to fetch need")
		}
		plan.Need = need

		if mode == types.AcceptModeSynthesize {
			plan.SynthesizeOffer = offerFromNeed(need, req.ActingUserID)
			break
		}

		offer, err := e.autoMatch(qctx, need, req.ActingUserID)
		if err != nil {
			return nil, err
		}
		plan.Offer = offer

	default:
		offer, err := e.offers.Offer(qctx, *req.OfferID)
		if err != nil {
			return nil, types.DependencyFailure(err, "failed to fetch offer")
		}
		plan.Offer = offer
		plan.SynthesizeNeed = needFromOffer(offer, req.ActingUserID)
	}

	if err := e.checkAvailable(qctx, plan); err != nil {
		return nil, err
	}

	return plan, nil
}

// autoMatch picks the acting user's oldest active offer in the need's
// category that is not already tied up in a live assignment.
func (e *Engine) autoMatch(ctx context.Context, need *types.Need, userID int64) (*types.Offer, error) {
	candidates, err := e.offers.ActiveOffersByUser(ctx, userID, need.Category)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to query offers for user")
	}

	for _, candidate := range candidates {
		if candidate.Status != types.StatusActive || candidate.Category != need.Category {
			continue
		}

		live, err := e.assignments.LiveAssignmentForOffer(ctx, candidate.ID)
		if err != nil {
			return nil, types.DependencyFailure(err, "failed to check offer assignments")
		}
		if live == nil {
			return candidate, nil
		}
	}

	return nil, types.NoMatch("no active offer of yours matches this need's category")
}

func (e *Engine) checkAvailable(ctx context.Context, plan *types.AssignmentPlan) error {
	if need := plan.Need; need != nil {
		live, err := e.assignments.LiveAssignmentForNeed(ctx, need.ID)
		if err != nil {
			return types.DependencyFailure(err, "failed to check need assignments")
		}
		if live != nil {
			return types.Conflict("need %d already has live assignment %d", need.ID, live.ID)
		}
		if need.Status != types.StatusActive {
			return types.Conflict("need %d is %s", need.ID, need.Status)
		}
	}

	if offer := plan.Offer; offer != nil {
		live, err := e.assignments.LiveAssignmentForOffer(ctx, offer.ID)
		if err != nil {
			return types.DependencyFailure(err, "failed to check offer assignments")
		}
		if live != nil {
			return types.Conflict("offer %d already has live assignment %d", offer.ID, live.ID)
		}
		if offer.Status != types.StatusActive {
			return types.Conflict("offer %d is %s", offer.ID, offer.Status)
		}
	}

	return nil
}

func offerFromNeed(need *types.Need, userID int64) *types.Offer {
	return &types.Offer{
		UserID:      userID,
		Title:       need.Title,
		Description: need.Description,
		Category:    need.Category,
		Status:      types.StatusActive,
		Address:     need.Address,
		Location:    need.Location,
	}
}

func needFromOffer(offer *types.Offer, userID int64) *types.Need {
	return &types.Need{
		UserID:      userID,
		Title:       offer.Title,
		Description: offer.Description,
		Category:    offer.Category,
		Urgency:     types.UrgencyMedium,
		Status:      types.StatusActive,
		Address:     offer.Address,
		Location:    offer.Location,
	}
}

// notifyAccepted tells the owner of the other side that their item was
// accepted. It runs after commit and never fails the caller.
func (e *Engine) notifyAccepted(ctx context.Context, actingUserID, assignmentID int64, need *types.Need, offer *types.Offer) {
	if e.notifier == nil || need == nil || offer == nil {
		return
	}

	recipientID, kind, title := need.UserID, types.NotificationNeedAccepted, need.Title
	if actingUserID == need.UserID {
		recipientID, kind, title = offer.UserID, types.NotificationOfferAccepted, offer.Title
	}

	entry := e.logger.WithFields(logrus.Fields{
		"assignment_id": assignmentID,
		"recipient_id":  recipientID,
		"kind":          kind,
	})

	if recipientID == actingUserID {
		entry.Debug("acting user owns both sides, skipping notification")
		return
	}

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.NotifyTimeout)
	defer cancel()

	users, err := e.users.UsersByIDs(nctx, []int64{actingUserID, recipientID})
	if err != nil {
		entry.WithError(err).Warn("failed to resolve notification contacts")
		return
	}

	var accepter, recipient types.Contact
	for _, user := range users {
		switch user.ID {
		case actingUserID:
			accepter = user.Contact()
		case recipientID:
			recipient = user.Contact()
		}
	}

	if recipient.Empty() {
		entry.Warn("recipient has no contact details, skipping notification")
		return
	}

	notification := &types.Notification{
		ID:           utils.NotificationID(),
		Recipient:    recipient,
		Kind:         kind,
		ItemTitle:    title,
		Accepter:     accepter,
		AssignmentID: assignmentID,
	}

	if err := e.notifier.Notify(nctx, notification); err != nil {
		entry.WithError(types.NotificationFailure(err, "failed to dispatch notification")).Warn("notification not delivered")
		return
	}

	entry.WithField("notification_id", notification.ID).Debug("notification dispatched")
}

// participantAssignment loads an assignment the acting user takes part in,
// either as owner of the need or of the offer.
func (e *Engine) participantAssignment(ctx context.Context, assignmentID, actingUserID int64) (*types.Assignment, error) {
	if actingUserID <= 0 {
		return nil, types.InvalidRequest("acting user is required")
	}

	assignment, err := e.assignments.Assignment(ctx, assignmentID)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to fetch assignment")
	}

	need, err := e.needs.Need(ctx, assignment.NeedID)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to fetch need")
	}
	offer, err := e.offers.Offer(ctx, assignment.OfferID)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to fetch offer")
	}

	if need.UserID != actingUserID && offer.UserID != actingUserID {
		return nil, types.InvalidRequest("user %d is not part of assignment %d", actingUserID, assignmentID)
	}

	return assignment, nil
}

// AcceptAssignment moves a proposed assignment to accepted. Only the owner
// of the need or of the offer may accept.
func (e *Engine) AcceptAssignment(ctx context.Context, assignmentID, actingUserID int64) (*types.Assignment, error) {
	qctx, cancel := e.queryContext(ctx)
	defer cancel()

	assignment, err := e.participantAssignment(qctx, assignmentID, actingUserID)
	if err != nil {
		return nil, err
	}

	if assignment.Status != types.AssignmentProposed {
		return nil, types.Conflict("assignment %d is %s", assignmentID, assignment.Status)
	}

	accepted, err := e.assignments.AcceptAssignment(qctx, assignmentID)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to accept assignment")
	}

	e.logger.WithFields(logrus.Fields{
		"assignment_id":  assignmentID,
		"acting_user_id": actingUserID,
	}).Info("assignment accepted")

	return accepted, nil
}

// CompleteAssignment closes a live assignment and moves its need and offer
// to completed. Only the owner of the need or of the offer may complete.
func (e *Engine) CompleteAssignment(ctx context.Context, assignmentID, actingUserID int64) (*types.Assignment, error) {
	qctx, cancel := e.queryContext(ctx)
	defer cancel()

	assignment, err := e.participantAssignment(qctx, assignmentID, actingUserID)
	if err != nil {
		return nil, err
	}

	if !assignment.Status.Live() {
		return nil, types.Conflict("assignment %d is %s", assignmentID, assignment.Status)
	}

	completed, err := e.assignments.CompleteAssignment(qctx, assignmentID)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to complete assignment")
	}

	e.logger.WithFields(logrus.Fields{
		"assignment_id":  assignmentID,
		"acting_user_id": actingUserID,
	}).Info("assignment completed")

	return completed, nil
}

// AssignmentsForUser lists assignments where the user owns the need or the
// offer, newest first.
func (e *Engine) AssignmentsForUser(ctx context.Context, userID int64) ([]*types.AssignmentDetail, error) {
	if userID <= 0 {
		return nil, types.InvalidRequest("acting user is required")
	}

	qctx, cancel := e.queryContext(ctx)
	defer cancel()

	assignments, err := e.assignments.AssignmentsByUser(qctx, userID)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to query assignments for user")
	}
	return assignments, nil
}

// OffersForUserNeed lists the user's active offers that could be matched to
// the need, oldest first.
func (e *Engine) OffersForUserNeed(ctx context.Context, needID, userID int64) ([]*types.Offer, error) {
	if userID <= 0 {
		return nil, types.InvalidRequest("acting user is required")
	}

	qctx, cancel := e.queryContext(ctx)
	defer cancel()

	need, err := e.needs.Need(qctx, needID)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to fetch need")
	}

	offers, err := e.offers.ActiveOffersByUser(qctx, userID, need.Category)
	if err != nil {
		return nil, types.DependencyFailure(err, "failed to query offers for user")
	}
	return offers, nil
}
