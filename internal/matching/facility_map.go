package matching

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultFacilityTypes maps a need category to the facility types worth
// recommending for it, most relevant first.
var defaultFacilityTypes = map[string][]string{
	"medical":       {"hospital", "clinic", "pharmacy", "ambulance_station"},
	"shelter":       {"shelter", "community_centre", "sports_centre", "school"},
	"food":          {"food_bank", "community_centre"},
	"transport":     {"hospital", "clinic"},
	"eldercare":     {"hospital", "clinic", "pharmacy"},
	"mental_health": {"hospital", "clinic", "community_centre"},
	"childcare":     {"school", "community_centre"},
	"pets":          {"veterinary"},
	"safety":        {"police", "fire_station", "emergency_service"},
	"hygiene":       {"pharmacy", "community_centre"},
	"clothing":      {"community_centre", "shelter"},
	"repairs":       {"community_centre"},
	"education":     {"school", "university"},
	"tech":          {"community_centre", "university"},
	"legal":         {"community_centre"},
	"logistics":     {"community_centre"},
	"translation":   {"community_centre"},
	"social":        {"community_centre"},
	"donation":      {"community_centre"},
	"other":         {"community_centre"},
}

// FacilityMap is an immutable category to facility-type lookup. It is
// built once at startup and safe for concurrent use.
type FacilityMap struct {
	types map[string][]string
}

func NewFacilityMap(m map[string][]string) *FacilityMap {
	out := make(map[string][]string, len(m))
	for category, facilityTypes := range m {
		key := normalizeCategory(category)
		if key == "" || len(facilityTypes) == 0 {
			continue
		}
		out[key] = slices.Clone(facilityTypes)
	}
	return &FacilityMap{types: out}
}

func DefaultFacilityMap() *FacilityMap {
	return NewFacilityMap(defaultFacilityTypes)
}

// LoadFacilityMap reads a YAML document of the form
//
//	medical: [hospital, clinic]
//	shelter: [shelter]
//
// and layers it over the defaults. Categories in the file replace the
// default entry for that category; an empty list removes it.
func LoadFacilityMap(path string) (*FacilityMap, error) {
	if path == "" {
		return DefaultFacilityMap(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facility map %s: %w", path, err)
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse facility map %s: %w", path, err)
	}

	merged := make(map[string][]string, len(defaultFacilityTypes)+len(overrides))
	for category, facilityTypes := range defaultFacilityTypes {
		merged[category] = facilityTypes
	}
	for category, facilityTypes := range overrides {
		key := normalizeCategory(category)
		if len(facilityTypes) == 0 {
			delete(merged, key)
			continue
		}
		merged[key] = facilityTypes
	}

	return NewFacilityMap(merged), nil
}

// TypesFor returns a copy of the facility types mapped to category.
func (m *FacilityMap) TypesFor(category string) ([]string, bool) {
	facilityTypes, ok := m.types[normalizeCategory(category)]
	if !ok {
		return nil, false
	}
	return slices.Clone(facilityTypes), true
}

func (m *FacilityMap) Categories() []string {
	categories := make([]string, 0, len(m.types))
	for category := range m.types {
		categories = append(categories, category)
	}
	slices.Sort(categories)
	return categories
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
