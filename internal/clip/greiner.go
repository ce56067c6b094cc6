package clip

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Intersection parameters this close to an edge endpoint are treated as
// touches, not crossings. Keeps re-clipping already-clipped geometry
// stable: vertices sitting exactly on the boundary produce no spurious
// crossings.
const crossingEps = 1e-9

// ghVertex is one node of the doubly linked vertex list used by the
// Greiner-Hormann clipper. Intersection vertices appear in both the
// subject and clip lists and point at each other through neighbor.
type ghVertex struct {
	pt           orb.Point
	next, prev   *ghVertex
	intersection bool
	entry        bool
	visited      bool
	neighbor     *ghVertex
	alpha        float64
}

// segCrossing computes the proper crossing of segments a1-a2 and b1-b2.
// Touches at segment endpoints are rejected.
func segCrossing(a1, a2, b1, b2 orb.Point) (orb.Point, float64, float64, bool) {
	dax, day := a2[0]-a1[0], a2[1]-a1[1]
	dbx, dby := b2[0]-b1[0], b2[1]-b1[1]

	denom := dax*dby - day*dbx
	if math.Abs(denom) < 1e-15 {
		return orb.Point{}, 0, 0, false
	}

	ex, ey := b1[0]-a1[0], b1[1]-a1[1]
	t := (ex*dby - ey*dbx) / denom
	u := (ex*day - ey*dax) / denom
	if t <= crossingEps || t >= 1-crossingEps || u <= crossingEps || u >= 1-crossingEps {
		return orb.Point{}, 0, 0, false
	}

	return orb.Point{a1[0] + t*dax, a1[1] + t*day}, t, u, true
}

// pointOnSegment reports whether p lies on segment a-b within tolerance.
func pointOnSegment(p, a, b orb.Point) bool {
	cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	segLen := math.Hypot(b[0]-a[0], b[1]-a[1])
	if segLen == 0 {
		return math.Hypot(p[0]-a[0], p[1]-a[1]) <= crossingEps
	}
	if math.Abs(cross)/segLen > crossingEps {
		return false
	}
	dot := (p[0]-a[0])*(b[0]-a[0]) + (p[1]-a[1])*(b[1]-a[1])
	return dot >= -crossingEps && dot <= segLen*segLen+crossingEps
}

// ringContains reports whether p is inside ring r. Points on the ring
// itself count as inside, so clipping is idempotent for geometry whose
// vertices already sit on the boundary.
func ringContains(r orb.Ring, p orb.Point) bool {
	for i := 0; i+1 < len(r); i++ {
		if pointOnSegment(p, r[i], r[i+1]) {
			return true
		}
	}
	return planar.RingContains(r, p)
}

// openRing strips the closing point so the ring can be treated as a
// cyclic vertex list.
func openRing(r orb.Ring) []orb.Point {
	if len(r) > 1 && r[0] == r[len(r)-1] {
		return r[:len(r)-1]
	}
	return r
}

// buildList turns a point cycle into a circular doubly linked list and
// returns the per-edge head vertices in order.
func buildList(pts []orb.Point) []*ghVertex {
	verts := make([]*ghVertex, len(pts))
	for i, p := range pts {
		verts[i] = &ghVertex{pt: p}
	}
	for i := range verts {
		verts[i].next = verts[(i+1)%len(verts)]
		verts[i].prev = verts[(i-1+len(verts))%len(verts)]
	}
	return verts
}

// insertAfter links v into the list between the edge head and the
// following original vertex, keeping intersections ordered by alpha.
func insertAfter(head *ghVertex, v *ghVertex) {
	cur := head
	for cur.next.intersection && cur.next.alpha < v.alpha {
		cur = cur.next
	}
	v.next = cur.next
	v.prev = cur
	cur.next.prev = v
	cur.next = v
}

// Shift applied to the subject when every crossing falls on a segment
// endpoint. Far above crossingEps, far below any printable area.
const degenerateShift = 1e-7

// intersectRings clips subject against clip and returns the overlap as
// zero or more rings. Both inputs must be closed rings; output rings are
// closed but carry no particular orientation.
//
// Rings that share vertices or edges produce no proper crossings, so
// the overlap cannot be traced directly. Features built from the same
// ways as the boundary relation hit this constantly. The subject is
// retried with a sub-sliver shift, which turns the shared points into
// proper crossings; if even the shifted subject cannot be resolved the
// feature is reported unclippable rather than passed through unclipped.
func intersectRings(subject, clip orb.Ring) ([]orb.Ring, error) {
	out, degenerate := intersectOnce(subject, clip)
	if !degenerate {
		return out, nil
	}
	shifted := shiftRing(subject, degenerateShift, degenerateShift)
	out, degenerate = intersectOnce(shifted, clip)
	if degenerate {
		return nil, &ClippingError{Reason: "ring overlap has no resolvable crossings"}
	}
	return out, nil
}

// intersectOnce runs one Greiner-Hormann pass. degenerate reports that
// the rings overlap partially but produced no proper crossings, which
// happens when all their intersections fall on shared vertices or
// collinear edges.
func intersectOnce(subject, clip orb.Ring) (out []orb.Ring, degenerate bool) {
	sub := openRing(subject)
	clp := openRing(clip)
	if len(sub) < 3 || len(clp) < 3 {
		return nil, false
	}

	subVerts := buildList(sub)
	clpVerts := buildList(clp)

	// Phase one: find every proper crossing and splice paired
	// intersection vertices into both lists.
	found := false
	for i := 0; i < len(sub); i++ {
		a1 := sub[i]
		a2 := sub[(i+1)%len(sub)]
		for j := 0; j < len(clp); j++ {
			b1 := clp[j]
			b2 := clp[(j+1)%len(clp)]
			pt, t, u, ok := segCrossing(a1, a2, b1, b2)
			if !ok {
				continue
			}
			found = true
			sv := &ghVertex{pt: pt, intersection: true, alpha: t}
			cv := &ghVertex{pt: pt, intersection: true, alpha: u}
			sv.neighbor, cv.neighbor = cv, sv
			insertAfter(subVerts[i], sv)
			insertAfter(clpVerts[j], cv)
		}
	}

	if !found {
		// No crossings: one ring contains the other, they are disjoint,
		// or every intersection sits on a shared vertex or edge. Every
		// vertex gets a verdict; a single sample point cannot tell a
		// contained ring from one that pokes out past a shared edge.
		subIn := insideCount(clip, sub)
		if subIn == len(sub) {
			return []orb.Ring{closedCopy(sub)}, false
		}
		clpIn := insideCount(subject, clp)
		if clpIn == len(clp) {
			return []orb.Ring{closedCopy(clp)}, false
		}
		if subIn == 0 && clpIn == 0 {
			return nil, false
		}
		return nil, true
	}

	// Phase two: alternate entry/exit flags along each list, seeded by
	// whether the list's first vertex starts inside the other ring.
	markEntries(subVerts[0], clip)
	markEntries(clpVerts[0], subject)

	// Phase three: trace the overlap rings.
	head := subVerts[0]
	for v := head; ; {
		if v.intersection && !v.visited {
			out = append(out, traceRing(v))
		}
		v = v.next
		if v == head {
			break
		}
	}

	return out, false
}

// insideCount reports how many of the points lie inside ring r, points
// on the ring included.
func insideCount(r orb.Ring, pts []orb.Point) int {
	n := 0
	for _, p := range pts {
		if ringContains(r, p) {
			n++
		}
	}
	return n
}

func shiftRing(r orb.Ring, dx, dy float64) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[i] = orb.Point{p[0] + dx, p[1] + dy}
	}
	return out
}

// markEntries seeds the entry flag of the list's first vertex from a
// containment test against the other ring, then alternates along the
// list.
func markEntries(head *ghVertex, other orb.Ring) {
	entry := !ringContains(other, head.pt)
	for v := head; ; {
		if v.intersection {
			v.entry = entry
			entry = !entry
		}
		v = v.next
		if v == head {
			break
		}
	}
}

// traceRing walks one overlap ring starting at an unvisited intersection
// vertex, switching lists at each crossing.
func traceRing(start *ghVertex) orb.Ring {
	ring := orb.Ring{start.pt}
	cur := start
	for {
		cur.visited = true
		cur.neighbor.visited = true
		if cur.entry {
			for {
				cur = cur.next
				ring = append(ring, cur.pt)
				if cur.intersection {
					break
				}
			}
		} else {
			for {
				cur = cur.prev
				ring = append(ring, cur.pt)
				if cur.intersection {
					break
				}
			}
		}
		cur = cur.neighbor
		if cur == start || cur.neighbor == start {
			break
		}
		if cur.visited {
			break
		}
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

func closedCopy(pts []orb.Point) orb.Ring {
	r := make(orb.Ring, len(pts), len(pts)+1)
	copy(r, pts)
	if r[0] != r[len(r)-1] {
		r = append(r, r[0])
	}
	return r
}
