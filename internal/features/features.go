// Package features renders matching results as GeoJSON FeatureCollections.
// Result metadata travels as a top-level "meta" member.
package features

import (
	"encoding/json"
	"fmt"

	"solidarity/internal/utils"
	"solidarity/pkg/types"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const distancePlaces = 1

func collection(meta map[string]any) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if meta != nil {
		fc.ExtraMembers = geojson.Properties{"meta": meta}
	}
	return fc
}

func distance(d float64) float64 {
	return utils.RoundFloat64(d, distancePlaces)
}

func needFeature(n *types.Need) *geojson.Feature {
	f := geojson.NewFeature(n.Point())
	f.ID = n.ID
	f.Properties = geojson.Properties{
		"need_id":    n.ID,
		"user_id":    n.UserID,
		"title":      n.Title,
		"descrip":    utils.PtrString(n.Description),
		"category":   n.Category,
		"urgency":    n.Urgency,
		"status":     n.Status,
		"address":    utils.PtrString(n.Address),
		"created_at": n.CreatedAt,
	}
	return f
}

func offerFeature(o *types.Offer) *geojson.Feature {
	f := geojson.NewFeature(o.Point())
	f.ID = o.ID
	f.Properties = geojson.Properties{
		"offer_id":   o.ID,
		"user_id":    o.UserID,
		"title":      o.Title,
		"descrip":    utils.PtrString(o.Description),
		"category":   o.Category,
		"status":     o.Status,
		"address":    utils.PtrString(o.Address),
		"created_at": o.CreatedAt,
	}
	return f
}

func UncoveredNeeds(result *types.UncoveredNeeds) *geojson.FeatureCollection {
	fc := collection(map[string]any{
		"radius_m":        result.Radius,
		"total_uncovered": result.Total,
		"critical_count":  result.CriticalCount,
		"high_count":      result.HighCount,
	})
	for _, n := range result.Needs {
		fc.Append(needFeature(n))
	}
	return fc
}

func NearbyOffers(result *types.NearbyOffers) *geojson.FeatureCollection {
	fc := collection(map[string]any{
		"need_id":       result.NeedID,
		"radius_m":      result.Radius,
		"need_geom":     geojson.NewGeometry(result.NeedLocation.Point()),
		"nearby_count":  result.NearbyCount,
		"related_count": result.RelatedCount,
	})
	for _, o := range result.Offers {
		f := offerFeature(&o.Offer)
		f.Properties["distance_m"] = distance(o.DistanceM)
		f.Properties["proximity"] = o.Proximity
		fc.Append(f)
	}
	return fc
}

func NearestFacilities(result *types.NearestFacilities) *geojson.FeatureCollection {
	fc := collection(map[string]any{
		"need_id": result.NeedID,
		"types":   result.TypeFilter,
	})
	for _, fac := range result.Facilities {
		f := geojson.NewFeature(fac.Point())
		f.ID = fac.ID
		f.Properties = geojson.Properties{
			"facility_id":   fac.ID,
			"osm_id":        fac.OSMID,
			"name":          fac.Name,
			"facility_type": fac.FacilityType,
			"distance_m":    distance(fac.DistanceM),
		}
		fc.Append(f)
	}
	return fc
}

func Offers(offers []*types.Offer) *geojson.FeatureCollection {
	fc := collection(map[string]any{"count": len(offers)})
	for _, o := range offers {
		fc.Append(offerFeature(o))
	}
	return fc
}

// AreaStats renders one polygon feature per area. Areas whose stored
// geometry cannot be decoded are an error rather than a silent gap.
func AreaStats(summary *types.AreaStatsSummary) (*geojson.FeatureCollection, error) {
	fc := collection(map[string]any{
		"admin_level":         summary.AdminLevel,
		"total_active_needs":  summary.TotalActiveNeeds,
		"total_active_offers": summary.TotalActiveOffers,
	})

	for _, area := range summary.Areas {
		f, err := areaFeature(&area.AdminArea)
		if err != nil {
			return nil, err
		}
		f.Properties["need_count"] = area.NeedCount
		f.Properties["offer_count"] = area.OfferCount
		f.Properties["gap_score"] = area.GapScore()
		fc.Append(f)
	}

	return fc, nil
}

func areaFeature(area *types.AdminArea) (*geojson.Feature, error) {
	var geometry orb.Geometry = orb.MultiPolygon{}
	if len(area.Geometry) > 0 {
		g, err := geojson.UnmarshalGeometry(area.Geometry)
		if err != nil {
			return nil, fmt.Errorf("failed to decode geometry of area %d: %w", area.ID, err)
		}
		geometry = g.Geometry()
	}

	f := geojson.NewFeature(geometry)

	f.ID = area.ID
	f.Properties = geojson.Properties{
		"area_id":     area.ID,
		"name_area":   area.Name,
		"admin_level": area.AdminLevel,
	}
	return f, nil
}

func Marshal(fc *geojson.FeatureCollection) ([]byte, error) {
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode feature collection: %w", err)
	}
	return data, nil
}
