package types

import (
	"time"
)

type Need struct {
	ID          int64   `db:"id"`
	UserID      int64   `db:"user_id"`
	Title       string  `db:"title"`
	Description *string `db:"descrip"`
	Category    string  `db:"category"`
	Urgency     Urgency `db:"urgency"`
	Status      Status  `db:"status"`
	Address     *string `db:"address_point"`

	Location

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// UncoveredNeeds is the coverage analysis result for one radius.
type UncoveredNeeds struct {
	Radius        float64
	Needs         []*Need
	Total         int
	CriticalCount int
	HighCount     int
}
