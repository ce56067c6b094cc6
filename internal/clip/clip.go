// Package clip restricts projected feature geometry to the drawable
// region: the page rectangle, optionally intersected with an arbitrary
// boundary polygon resolved from a boundary relation.
package clip

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbclip "github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
)

// Region is the drawable area in page coordinates. Boundary, when set,
// further restricts the rectangle to an arbitrary multipolygon.
type Region struct {
	Bound    orb.Bound
	Boundary orb.MultiPolygon
}

// ClippingError reports a geometry that could not be clipped. The
// feature carrying it is skipped, not the run.
type ClippingError struct {
	Reason string
}

func (e *ClippingError) Error() string {
	return "clipping failed: " + e.Reason
}

// Clipper clips feature geometry against one region. Safe for
// concurrent use.
type Clipper struct {
	region     Region
	sliverArea float64
}

// NewClipper builds a clipper for the region. Result rings whose
// absolute area falls below sliverAreaPts2 square points are dropped.
func NewClipper(region Region, sliverAreaPts2 float64) *Clipper {
	return &Clipper{region: region, sliverArea: sliverAreaPts2}
}

// Clip returns the part of g inside the region, or nil when nothing
// remains. The input geometry is not modified. Clipping an already
// clipped geometry returns it unchanged.
func (c *Clipper) Clip(g orb.Geometry) (orb.Geometry, error) {
	switch g := g.(type) {
	case orb.Point:
		if !c.region.Bound.Contains(g) {
			return nil, nil
		}
		if c.region.Boundary != nil && !boundaryContains(g, c.region.Boundary) {
			return nil, nil
		}
		return g, nil

	case orb.LineString:
		return c.clipLine(orb.MultiLineString{g})

	case orb.MultiLineString:
		return c.clipLine(g)

	case orb.Ring:
		mp, err := c.clipPolygon(orb.Polygon{g})
		if err != nil {
			return nil, err
		}
		return c.collapse(mp), nil

	case orb.Polygon:
		mp, err := c.clipPolygon(g)
		if err != nil {
			return nil, err
		}
		return c.collapse(mp), nil

	case orb.MultiPolygon:
		var out orb.MultiPolygon
		for _, poly := range g {
			mp, err := c.clipPolygon(poly)
			if err != nil {
				return nil, err
			}
			out = append(out, mp...)
		}
		return c.collapse(out), nil

	default:
		return nil, &ClippingError{Reason: fmt.Sprintf("unsupported geometry %T", g)}
	}
}

func (c *Clipper) clipLine(mls orb.MultiLineString) (orb.Geometry, error) {
	var out orb.MultiLineString
	for _, ls := range mls {
		runs := orbclip.LineString(c.region.Bound, ls.Clone())
		if c.region.Boundary != nil {
			var inside orb.MultiLineString
			for _, run := range runs {
				inside = append(inside, clipLineToBoundary(run, c.region.Boundary)...)
			}
			runs = inside
		}
		for _, run := range runs {
			if len(run) >= 2 {
				out = append(out, run)
			}
		}
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0], nil
	default:
		return out, nil
	}
}

// clipPolygon clips one polygon to the rectangle and, when configured,
// the boundary multipolygon. Slivers are dropped and ring orientation
// normalized: outers counter-clockwise, holes clockwise.
func (c *Clipper) clipPolygon(p orb.Polygon) (orb.MultiPolygon, error) {
	rect := closeRings(orbclip.Polygon(c.region.Bound, p.Clone()))
	if len(rect) == 0 || len(rect[0]) < 4 {
		return nil, nil
	}

	result := orb.MultiPolygon{rect}
	if c.region.Boundary != nil {
		var err error
		result, err = intersectWithBoundary(rect, c.region.Boundary)
		if err != nil {
			return nil, err
		}
	}
	return c.dropSlivers(result), nil
}

// intersectWithBoundary overlaps the polygon with each boundary
// polygon. Holes from either side are clipped to the other's outer ring
// and reattached to the overlap piece containing them; with even-odd
// filling this renders the exact overlap area.
func intersectWithBoundary(p orb.Polygon, boundary orb.MultiPolygon) (orb.MultiPolygon, error) {
	var out orb.MultiPolygon
	for _, bp := range boundary {
		if len(bp) == 0 {
			continue
		}
		outs, err := intersectRings(p[0], bp[0])
		if err != nil {
			return nil, err
		}
		if len(outs) == 0 {
			continue
		}

		polys := make([]orb.Polygon, 0, len(outs))
		for _, o := range outs {
			if len(o) < 4 {
				continue
			}
			if o.Orientation() == orb.CW {
				o.Reverse()
			}
			polys = append(polys, orb.Polygon{o})
		}

		attach := func(h orb.Ring) {
			if len(h) < 4 {
				return
			}
			if h.Orientation() == orb.CCW {
				h.Reverse()
			}
			for i := range polys {
				if ringContains(polys[i][0], h[0]) {
					polys[i] = append(polys[i], h)
					return
				}
			}
		}

		for _, hole := range p[1:] {
			parts, err := intersectRings(hole, bp[0])
			if err != nil {
				return nil, err
			}
			for _, part := range parts {
				attach(part)
			}
		}
		for _, hole := range bp[1:] {
			parts, err := intersectRings(hole, p[0])
			if err != nil {
				return nil, err
			}
			for _, part := range parts {
				attach(part)
			}
		}

		out = append(out, polys...)
	}
	return out, nil
}

func (c *Clipper) dropSlivers(mp orb.MultiPolygon) orb.MultiPolygon {
	var out orb.MultiPolygon
	for _, poly := range mp {
		if len(poly) == 0 || len(poly[0]) < 4 {
			continue
		}
		if math.Abs(planar.Area(poly[0])) < c.sliverArea {
			continue
		}
		keep := orb.Polygon{poly[0]}
		for _, h := range poly[1:] {
			if len(h) < 4 || math.Abs(planar.Area(h)) < c.sliverArea {
				continue
			}
			keep = append(keep, h)
		}
		out = append(out, keep)
	}
	return out
}

func closeRings(p orb.Polygon) orb.Polygon {
	for i, r := range p {
		if len(r) > 1 && r[0] != r[len(r)-1] {
			p[i] = append(r, r[0])
		}
	}
	return p
}

func (c *Clipper) collapse(mp orb.MultiPolygon) orb.Geometry {
	switch len(mp) {
	case 0:
		return nil
	case 1:
		return mp[0]
	default:
		return mp
	}
}
