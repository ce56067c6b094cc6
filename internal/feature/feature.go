// Package feature defines the record type that flows through the map
// pipeline: a geometry plus its classification and OSM provenance.
package feature

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// Category is the top-level feature class used for styling and draw order.
type Category int

const (
	CategoryOther Category = iota
	CategoryLanduse
	CategoryWater
	CategoryBuilding
	CategoryRoad
	CategoryBoundary
)

// String returns the category name as used in style sheets
func (c Category) String() string {
	switch c {
	case CategoryLanduse:
		return "landuse"
	case CategoryWater:
		return "water"
	case CategoryBuilding:
		return "building"
	case CategoryRoad:
		return "road"
	case CategoryBoundary:
		return "boundary"
	default:
		return "other"
	}
}

// Record is one map feature. It is created by the geometry builder and
// consumed read-only downstream; only the clipper replaces its geometry,
// taking ownership of the old one.
type Record struct {
	// Geometry is one of orb.Point, orb.LineString, orb.Polygon or
	// orb.MultiPolygon.
	Geometry orb.Geometry

	Category Category
	Subtype  string
	ZOrder   int

	// Source identity, for diagnostics only.
	OSMID   int64
	OSMType osm.Type
	Tags    map[string]string
}

// Tag returns the value of a source tag, or "" if absent.
func (r *Record) Tag(key string) string {
	return r.Tags[key]
}

// IsArea reports whether the record carries polygonal geometry.
func (r *Record) IsArea() bool {
	switch r.Geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}
