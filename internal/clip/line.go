package clip

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// segBoundaryHits collects the parameters along segment a-b where it
// crosses any edge of the boundary multipolygon. Endpoint touches are
// included so runs split exactly at the boundary.
func segBoundaryHits(a, b orb.Point, boundary orb.MultiPolygon) []float64 {
	var ts []float64
	dax, day := b[0]-a[0], b[1]-a[1]

	for _, poly := range boundary {
		for _, ring := range poly {
			for i := 0; i+1 < len(ring); i++ {
				c, d := ring[i], ring[i+1]
				dbx, dby := d[0]-c[0], d[1]-c[1]
				denom := dax*dby - day*dbx
				if math.Abs(denom) < 1e-15 {
					continue
				}
				ex, ey := c[0]-a[0], c[1]-a[1]
				t := (ex*dby - ey*dbx) / denom
				u := (ex*day - ey*dax) / denom
				if t < -crossingEps || t > 1+crossingEps ||
					u < -crossingEps || u > 1+crossingEps {
					continue
				}
				ts = append(ts, math.Min(1, math.Max(0, t)))
			}
		}
	}
	return ts
}

// boundaryContains reports whether p lies inside the boundary region,
// holes excluded. Points on a ring count as inside.
func boundaryContains(p orb.Point, boundary orb.MultiPolygon) bool {
	for _, poly := range boundary {
		if len(poly) == 0 || !ringContains(poly[0], p) {
			continue
		}
		inHole := false
		for _, hole := range poly[1:] {
			// Strictly inside a hole: on-edge points belong to the
			// kept region.
			if ringContains(hole, p) && !onRing(hole, p) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

func onRing(r orb.Ring, p orb.Point) bool {
	for i := 0; i+1 < len(r); i++ {
		if pointOnSegment(p, r[i], r[i+1]) {
			return true
		}
	}
	return false
}

func lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
}

// clipLineToBoundary keeps the runs of ls that lie inside the boundary
// region. A line crossing the boundary once yields a single run ending
// exactly on it.
func clipLineToBoundary(ls orb.LineString, boundary orb.MultiPolygon) orb.MultiLineString {
	var out orb.MultiLineString
	var run orb.LineString

	appendPt := func(p orb.Point) {
		if len(run) == 0 || run[len(run)-1] != p {
			run = append(run, p)
		}
	}
	flush := func() {
		if len(run) >= 2 {
			out = append(out, run)
		}
		run = nil
	}

	for i := 0; i+1 < len(ls); i++ {
		a, b := ls[i], ls[i+1]
		cuts := append([]float64{0, 1}, segBoundaryHits(a, b, boundary)...)
		sort.Float64s(cuts)

		for j := 0; j+1 < len(cuts); j++ {
			t0, t1 := cuts[j], cuts[j+1]
			if t1-t0 < crossingEps {
				continue
			}
			if boundaryContains(lerp(a, b, (t0+t1)/2), boundary) {
				appendPt(lerp(a, b, t0))
				appendPt(lerp(a, b, t1))
			} else {
				flush()
			}
		}
	}
	flush()

	return out
}
