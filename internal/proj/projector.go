// Package proj converts geographic coordinates to planar page units using a
// local tangent-plane approximation. Longitude is scaled by the cosine of
// the mid latitude to correct for meridian convergence; both axes are scaled
// to PostScript points at the configured physical scale. The approximation
// is only valid for small (city-scale) extents, which is all this tool
// targets.
package proj

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/wegman-software/osm2pdf-go/internal/config"
)

const (
	// Mean earth radius in meters.
	earthRadiusM = 6371000.0

	metersPerDegreeLat = earthRadiusM * math.Pi / 180

	pointsPerInch  = 72.0
	inchesPerMeter = 39.3701
)

// ProjectionError reports a coordinate that projected to a non-finite or
// out-of-domain value. The affected feature is skipped, not fatal.
type ProjectionError struct {
	Lon, Lat float64
	Reason   string
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("projection failed for (%g, %g): %s", e.Lon, e.Lat, e.Reason)
}

// Projector maps (lon, lat) to page points. It is pure and deterministic:
// identical input always yields identical output.
type Projector struct {
	originLon, originLat float64
	metersPerDegreeLon   float64
	pointsPerMeter       float64
}

// NewProjector builds a projector anchored at the bbox's south-west corner,
// with the longitude scale taken at the bbox's mid latitude.
func NewProjector(bbox *config.BBox, scaleDenominator float64) *Projector {
	midLat := (bbox.MinLat + bbox.MaxLat) / 2
	return &Projector{
		originLon:          bbox.MinLon,
		originLat:          bbox.MinLat,
		metersPerDegreeLon: metersPerDegreeLon(midLat),
		pointsPerMeter:     pointsPerInch * inchesPerMeter / scaleDenominator,
	}
}

// PointsPerMeter returns the page-unit scale factor, used by the renderer
// to convert real-world stroke widths.
func (p *Projector) PointsPerMeter() float64 {
	return p.pointsPerMeter
}

// Point projects a single geographic point to page units.
func (p *Projector) Point(pt orb.Point) (orb.Point, error) {
	x := (pt.Lon() - p.originLon) * p.metersPerDegreeLon * p.pointsPerMeter
	y := (pt.Lat() - p.originLat) * metersPerDegreeLat * p.pointsPerMeter

	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return orb.Point{}, &ProjectionError{Lon: pt.Lon(), Lat: pt.Lat(), Reason: "non-finite result"}
	}
	return orb.Point{x, y}, nil
}

// Geometry projects a whole geometry, returning a new geometry of the same
// kind. The input is not modified.
func (p *Projector) Geometry(g orb.Geometry) (orb.Geometry, error) {
	switch geom := g.(type) {
	case orb.Point:
		return p.Point(geom)
	case orb.LineString:
		out := make(orb.LineString, len(geom))
		for i, pt := range geom {
			proj, err := p.Point(pt)
			if err != nil {
				return nil, err
			}
			out[i] = proj
		}
		return out, nil
	case orb.Ring:
		out := make(orb.Ring, len(geom))
		for i, pt := range geom {
			proj, err := p.Point(pt)
			if err != nil {
				return nil, err
			}
			out[i] = proj
		}
		return out, nil
	case orb.Polygon:
		out := make(orb.Polygon, len(geom))
		for i, ring := range geom {
			proj, err := p.Geometry(ring)
			if err != nil {
				return nil, err
			}
			out[i] = proj.(orb.Ring)
		}
		return out, nil
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(geom))
		for i, poly := range geom {
			proj, err := p.Geometry(poly)
			if err != nil {
				return nil, err
			}
			out[i] = proj.(orb.Polygon)
		}
		return out, nil
	default:
		return nil, &ProjectionError{Reason: fmt.Sprintf("unsupported geometry type %T", g)}
	}
}

// Bound projects the configured bbox corners to the page-unit rectangle.
func (p *Projector) Bound(bbox *config.BBox) (orb.Bound, error) {
	min, err := p.Point(orb.Point{bbox.MinLon, bbox.MinLat})
	if err != nil {
		return orb.Bound{}, err
	}
	max, err := p.Point(orb.Point{bbox.MaxLon, bbox.MaxLat})
	if err != nil {
		return orb.Bound{}, err
	}
	return orb.Bound{Min: min, Max: max}, nil
}

// metersPerDegreeLon returns the length of one degree of longitude at the
// given latitude.
func metersPerDegreeLon(lat float64) float64 {
	return earthRadiusM * math.Cos(lat*math.Pi/180) * math.Pi / 180
}
