package types

import "time"

type Assignment struct {
	ID        int64            `db:"id" json:"assignment_id"`
	NeedID    int64            `db:"need_id" json:"need_id"`
	OfferID   int64            `db:"offer_id" json:"offer_id"`
	Status    AssignmentStatus `db:"status" json:"status"`
	Notes     *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AssignmentDetail joins an assignment with the titles and owners of both
// sides, as listed on a user's assignment page.
type AssignmentDetail struct {
	Assignment

	NeedTitle   string  `db:"need_title" json:"need_title"`
	NeedOwner   int64   `db:"need_owner" json:"need_owner"`
	OfferTitle  string  `db:"offer_title" json:"offer_title"`
	OfferOwner  int64   `db:"offer_owner" json:"offer_owner"`
	NeedAddress *string `db:"need_address" json:"need_address,omitempty"`

	Location
}

type CreateAssignmentRequest struct {
	NeedID       *int64     `json:"need_id" validate:"omitempty,gt=0"`
	OfferID      *int64     `json:"offer_id" validate:"omitempty,gt=0"`
	ActingUserID int64      `json:"-"`
	Notes        *string    `json:"notes" validate:"omitempty,max=2000"`
	Mode         AcceptMode `json:"mode" validate:"omitempty,oneof=auto_match synthesize"`
}

// AssignmentPlan is a validated request ready to be committed. Exactly one
// of Need/SynthesizeNeed and one of Offer/SynthesizeOffer is set.
type AssignmentPlan struct {
	Need            *Need
	Offer           *Offer
	SynthesizeNeed  *Need
	SynthesizeOffer *Offer
	Notes           *string
}

type AssignmentResult struct {
	AssignmentID     int64 `json:"assignment_id"`
	NeedID           int64 `json:"need_id"`
	OfferID          int64 `json:"offer_id"`
	SynthesizedNeed  bool  `json:"synthesized_need,omitempty"`
	SynthesizedOffer bool  `json:"synthesized_offer,omitempty"`
}
