// Package classify maps OSM tags to feature categories, subtypes and draw
// order. Classification is a fixed precedence table evaluated in order, so
// the same tags always produce the same class.
package classify

import (
	"github.com/wegman-software/osm2pdf-go/internal/feature"
)

// Road hierarchy: 1 draws on top of 8. Mirrors common cartographic
// importance of highway classes.
var roadHierarchy = map[string]int{
	"motorway":       1,
	"trunk":          2,
	"motorway_link":  2,
	"primary":        3,
	"trunk_link":     3,
	"secondary":      4,
	"primary_link":   4,
	"tertiary":       5,
	"secondary_link": 5,
	"residential":    6,
	"tertiary_link":  6,
	"service":        7,
	"unclassified":   7,
	"living_street":  7,
	"track":          7,
	"road":           7,
	"pedestrian":     8,
	"footway":        8,
	"steps":          8,
}

// Footway values that are road furniture rather than mappable paths.
var excludedFootways = map[string]bool{
	"sidewalk": true,
	"crossing": true,
}

var waterNatural = map[string]bool{
	"water":   true,
	"wetland": true,
	"spring":  true,
	"lake":    true,
}

// Waterways rendered as centerlines rather than areas.
var waterwayLines = map[string]bool{
	"river":  true,
	"stream": true,
	"canal":  true,
}

var waterwayAreas = map[string]bool{
	"riverbank": true,
	"lake":      true,
	"pond":      true,
}

var waterValues = map[string]bool{
	"lake":      true,
	"pond":      true,
	"reservoir": true,
	"basin":     true,
	"river":     true,
	"canal":     true,
	"stream":    true,
	"moat":      true,
}

var landuseLeisure = map[string]bool{
	"park":          true,
	"garden":        true,
	"playground":    true,
	"pitch":         true,
	"sports_centre": true,
	"golf_course":   true,
}

var landuseValues = map[string]bool{
	"park":              true,
	"grass":             true,
	"recreation_ground": true,
	"village_green":     true,
	"meadow":            true,
	"cemetery":          true,
	"forest":            true,
	"orchard":           true,
	"vineyard":          true,
	"farm":              true,
	"farmyard":          true,
}

var landuseNatural = map[string]bool{
	"wood":   true,
	"forest": true,
}

// Z-order bands. Within the road band, more important road classes draw
// later (higher z) than less important ones.
const (
	zOther    = 0
	zLanduse  = 10
	zWater    = 20
	zWaterway = 25
	zBuilding = 30
	zRoadBase = 40
	zBoundary = 90
)

// Classify assigns category, subtype and z-order on the record, from its
// source tags. The precedence is fixed: building, then road, then water,
// then landuse, then boundary; anything unmatched is "other" at the lowest
// draw priority.
func Classify(rec *feature.Record) {
	tags := rec.Tags

	if v := tags["building"]; v != "" && v != "no" && v != "false" {
		if tags["location"] == "underground" {
			rec.Category = feature.CategoryOther
			rec.Subtype = ""
			rec.ZOrder = zOther
			return
		}
		rec.Category = feature.CategoryBuilding
		rec.Subtype = "building"
		rec.ZOrder = zBuilding
		return
	}

	if sub, hier, ok := roadClass(tags); ok {
		rec.Category = feature.CategoryRoad
		rec.Subtype = sub
		rec.ZOrder = zRoadBase + (8 - hier)
		return
	}

	if sub, line, ok := waterClass(tags); ok {
		rec.Category = feature.CategoryWater
		rec.Subtype = sub
		if line {
			rec.ZOrder = zWaterway
		} else {
			rec.ZOrder = zWater
		}
		return
	}

	if sub, ok := landuseClass(tags); ok {
		rec.Category = feature.CategoryLanduse
		rec.Subtype = sub
		rec.ZOrder = zLanduse
		return
	}

	if tags["boundary"] != "" || tags["type"] == "boundary" {
		rec.Category = feature.CategoryBoundary
		rec.Subtype = tags["boundary"]
		rec.ZOrder = zBoundary
		return
	}

	rec.Category = feature.CategoryOther
	rec.Subtype = ""
	rec.ZOrder = zOther
}

// RoadHierarchy returns the draw hierarchy for a road subtype (1 = most
// important). Unknown subtypes get the service-road level.
func RoadHierarchy(subtype string) int {
	if h, ok := roadHierarchy[subtype]; ok {
		return h
	}
	return 7
}

func roadClass(tags map[string]string) (subtype string, hierarchy int, ok bool) {
	highway := tags["highway"]
	if highway == "construction" {
		highway = tags["construction"]
	}
	h, known := roadHierarchy[highway]
	if !known {
		return "", 0, false
	}
	if excludedFootways[tags["footway"]] {
		return "", 0, false
	}
	return highway, h, true
}

func waterClass(tags map[string]string) (subtype string, line bool, ok bool) {
	if tags["natural"] == "coastline" {
		return "coastline", true, true
	}
	if ww := tags["waterway"]; ww != "" {
		if waterwayLines[ww] {
			return ww, true, true
		}
		if waterwayAreas[ww] {
			return ww, false, true
		}
	}
	switch {
	case waterNatural[tags["natural"]],
		waterValues[tags["water"]],
		tags["leisure"] == "swimming_pool",
		tags["amenity"] == "fountain",
		tags["amenity"] == "swimming_pool",
		tags["man_made"] == "reservoir",
		tags["man_made"] == "reservoir_covered":
		return "water_body", false, true
	}
	return "", false, false
}

func landuseClass(tags map[string]string) (subtype string, ok bool) {
	if v := tags["leisure"]; landuseLeisure[v] {
		return v, true
	}
	if v := tags["landuse"]; landuseValues[v] {
		return v, true
	}
	if v := tags["natural"]; landuseNatural[v] {
		return v, true
	}
	return "", false
}
