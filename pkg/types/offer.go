package types

import "time"

type Offer struct {
	ID          int64   `db:"id"`
	UserID      int64   `db:"user_id"`
	Title       string  `db:"title"`
	Description *string `db:"descrip"`
	Category    string  `db:"category"`
	Status      Status  `db:"status"`
	Address     *string `db:"address_point"`

	Location

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// OfferDistance is an offer together with its geodesic distance in metres
// from some reference need.
type OfferDistance struct {
	Offer
	DistanceM float64 `db:"distance_m"`
}

type ProximityOffer struct {
	*OfferDistance
	Proximity Proximity
}

type NearbyOffers struct {
	NeedID       int64
	Radius       float64
	NeedLocation Location
	Offers       []*ProximityOffer
	NearbyCount  int
	RelatedCount int
}
