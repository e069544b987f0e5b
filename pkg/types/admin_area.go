package types

import "encoding/json"

const (
	AdminLevelMunicipality = 6
	AdminLevelParish       = 8
)

type AdminArea struct {
	ID         int64           `db:"area_id" json:"area_id"`
	Name       string          `db:"name_area" json:"name_area"`
	AdminLevel int             `db:"admin_level" json:"admin_level"`
	Geometry   json.RawMessage `db:"geom" json:"-"`
}

type AreaStats struct {
	AdminArea

	NeedCount  int `db:"need_count"`
	OfferCount int `db:"offer_count"`
}

// GapScore is active needs minus active offers; high scores mark areas to
// prioritise.
func (a *AreaStats) GapScore() int {
	return a.NeedCount - a.OfferCount
}

type AreaStatsSummary struct {
	AdminLevel        *int
	Areas             []*AreaStats
	TotalActiveNeeds  int
	TotalActiveOffers int
}
