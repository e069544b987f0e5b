package types

import "github.com/paulmach/orb"

// Location is a WGS84 point. The store keeps geometry in EPSG:3857 and
// projects to 4326 on read.
type Location struct {
	Lon float64 `db:"lon" json:"lon" validate:"gte=-180,lte=180"`
	Lat float64 `db:"lat" json:"lat" validate:"gte=-90,lte=90"`
}

func (l Location) Point() orb.Point {
	return orb.Point{l.Lon, l.Lat}
}

func LocationFromPoint(p orb.Point) Location {
	return Location{Lon: p.Lon(), Lat: p.Lat()}
}
