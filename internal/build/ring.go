package build

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// fragment is one member way's coordinate sequence, treated as an edge
// between its two endpoint nodes during ring stitching.
type fragment struct {
	coords orb.LineString
	used   bool
}

// endpointIndex buckets fragment endpoints on a grid sized by the stitch
// tolerance so candidate fragments are found without rescanning the whole
// member list for every join.
type endpointIndex struct {
	cell    float64
	buckets map[[2]int64][]int // grid cell -> fragment indices
}

func newEndpointIndex(tolerance float64, frags []fragment) *endpointIndex {
	cell := tolerance
	if cell <= 0 {
		cell = 1e-9
	}
	idx := &endpointIndex{
		cell:    cell,
		buckets: make(map[[2]int64][]int),
	}
	for i, f := range frags {
		idx.add(f.coords[0], i)
		idx.add(f.coords[len(f.coords)-1], i)
	}
	return idx
}

func (idx *endpointIndex) key(p orb.Point) [2]int64 {
	return [2]int64{int64(math.Floor(p[0] / idx.cell)), int64(math.Floor(p[1] / idx.cell))}
}

func (idx *endpointIndex) add(p orb.Point, i int) {
	k := idx.key(p)
	idx.buckets[k] = append(idx.buckets[k], i)
}

// near returns the indices of fragments with an endpoint in the 3x3 cell
// neighborhood of p. Callers still verify the actual distance.
func (idx *endpointIndex) near(p orb.Point) []int {
	base := idx.key(p)
	var out []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			out = append(out, idx.buckets[[2]int64{base[0] + dx, base[1] + dy}]...)
		}
	}
	return out
}

func endpointsClose(a, b orb.Point, tolerance float64) bool {
	if a == b {
		return true
	}
	return math.Hypot(a[0]-b[0], a[1]-b[1]) <= tolerance
}

// stitchRings joins way fragments sharing endpoints into closed rings.
// Endpoints need not be coordinate-identical: gaps up to tolerance are
// closed. Returns an error if any fragment chain cannot be closed.
func stitchRings(frags []fragment, tolerance float64) ([]orb.Ring, error) {
	if len(frags) == 0 {
		return nil, nil
	}

	idx := newEndpointIndex(tolerance, frags)
	var rings []orb.Ring

	for start := range frags {
		if frags[start].used {
			continue
		}
		frags[start].used = true

		chain := make(orb.LineString, len(frags[start].coords))
		copy(chain, frags[start].coords)

		// Extend at the tail until the chain closes or no fragment fits.
		for !endpointsClose(chain[0], chain[len(chain)-1], tolerance) {
			tail := chain[len(chain)-1]
			next := -1
			reversed := false
			for _, cand := range idx.near(tail) {
				if frags[cand].used {
					continue
				}
				c := frags[cand].coords
				if endpointsClose(c[0], tail, tolerance) {
					next, reversed = cand, false
					break
				}
				if endpointsClose(c[len(c)-1], tail, tolerance) {
					next, reversed = cand, true
					break
				}
			}
			if next < 0 {
				return nil, fmt.Errorf("open ring: no fragment continues from (%g, %g) within tolerance %g",
					tail[0], tail[1], tolerance)
			}

			frags[next].used = true
			c := frags[next].coords
			if reversed {
				for i := len(c) - 2; i >= 0; i-- {
					chain = append(chain, c[i])
				}
			} else {
				chain = append(chain, c[1:]...)
			}
		}

		ring := orb.Ring(chain)
		// Snap the closing point so the ring is exactly closed even when
		// the final gap was only within tolerance.
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}
		if len(ring) < 4 {
			return nil, fmt.Errorf("degenerate ring with %d points", len(ring))
		}
		rings = append(rings, ring)
	}

	return rings, nil
}
