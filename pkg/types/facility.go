package types

type Facility struct {
	ID           int64  `db:"id"`
	OSMID        *int64 `db:"osm_id"`
	Name         string `db:"name_fac"`
	FacilityType string `db:"facility_type"`

	Location
}

type FacilityDistance struct {
	Facility
	DistanceM float64 `db:"distance_m"`
}

type FacilityQuery struct {
	NeedID   int64  `form:"-" validate:"required"`
	Category string `form:"need_category"`
	Type     string `form:"type"`
	Limit    int    `form:"limit" validate:"gte=0"`
}

type NearestFacilities struct {
	NeedID     int64
	TypeFilter []string
	Facilities []*FacilityDistance
}
