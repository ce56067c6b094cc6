package build

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/osm"
)

// mapLocator backs the node index with a plain map for tests.
type mapLocator map[int64][2]float64 // id -> (lat, lon)

func (m mapLocator) Get(id int64) (lat, lon float64, ok bool) {
	c, ok := m[id]
	return c[0], c[1], ok
}

func way(id osm.WayID, nodeIDs []int64, tags ...osm.Tag) *osm.Way {
	w := &osm.Way{ID: id, Tags: tags}
	for _, n := range nodeIDs {
		w.Nodes = append(w.Nodes, osm.WayNode{ID: osm.NodeID(n)})
	}
	return w
}

func relation(id osm.RelationID, tags osm.Tags, members ...osm.Member) *osm.Relation {
	return &osm.Relation{ID: id, Tags: tags, Members: members}
}

func wayMember(ref int64, role string) osm.Member {
	return osm.Member{Type: osm.TypeWay, Ref: ref, Role: role}
}

func mpTags() osm.Tags {
	return osm.Tags{{Key: "type", Value: "multipolygon"}, {Key: "natural", Value: "water"}}
}

// square of unit size with its south-west corner at (lon, lat), nodes
// numbered from base.
func squareNodes(locator mapLocator, base int64, lon, lat, size float64) []int64 {
	pts := [][2]float64{
		{lat, lon}, {lat, lon + size}, {lat + size, lon + size}, {lat + size, lon},
	}
	ids := make([]int64, 0, 5)
	for i, p := range pts {
		locator[base+int64(i)] = p
		ids = append(ids, base+int64(i))
	}
	return append(ids, base) // closing node
}

func TestWayFeatures(t *testing.T) {
	locator := mapLocator{
		1: {40.0, -74.0},
		2: {40.0, -73.9},
		3: {40.1, -73.9},
		4: {40.1, -74.0},
	}

	road := way(10, []int64{1, 2, 3}, osm.Tag{Key: "highway", Value: "residential"})
	building := way(11, []int64{1, 2, 3, 4, 1}, osm.Tag{Key: "building", Value: "yes"})
	roundabout := way(12, []int64{1, 2, 3, 4, 1}, osm.Tag{Key: "highway", Value: "residential"})

	a := NewAssembler(Options{})
	res, err := a.Assemble(Input{
		Ways:  []*osm.Way{road, building, roundabout},
		Nodes: locator,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Features) != 3 {
		t.Fatalf("feature count = %d, want 3", len(res.Features))
	}

	if _, ok := res.Features[0].Geometry.(orb.LineString); !ok {
		t.Errorf("road geometry = %T, want LineString", res.Features[0].Geometry)
	}
	poly, ok := res.Features[1].Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("building geometry = %T, want Polygon", res.Features[1].Geometry)
	}
	if !poly[0].Closed() {
		t.Error("building ring must be closed")
	}
	// A closed highway way stays a line (roundabout).
	if _, ok := res.Features[2].Geometry.(orb.LineString); !ok {
		t.Errorf("roundabout geometry = %T, want LineString", res.Features[2].Geometry)
	}
}

func TestMultipolygonWithHole(t *testing.T) {
	locator := mapLocator{}
	outer := squareNodes(locator, 100, -74.0, 40.0, 0.1)
	inner := squareNodes(locator, 200, -73.97, 40.03, 0.02)

	rel := relation(50, mpTags(),
		wayMember(20, "outer"),
		wayMember(21, "inner"),
	)

	a := NewAssembler(Options{})
	res, err := a.Assemble(Input{
		Ways: []*osm.Way{
			way(20, outer),
			way(21, inner),
		},
		Relations: []*osm.Relation{rel},
		Nodes:     locator,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Features) != 1 {
		t.Fatalf("feature count = %d, want 1", len(res.Features))
	}

	poly, ok := res.Features[0].Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("geometry = %T, want Polygon", res.Features[0].Geometry)
	}
	if len(poly) != 2 {
		t.Fatalf("ring count = %d, want outer + hole", len(poly))
	}
	if poly[0].Orientation() != orb.CCW {
		t.Error("outer ring must be counter-clockwise")
	}
	if poly[1].Orientation() != orb.CW {
		t.Error("hole ring must be clockwise")
	}
}

func TestOuterRingStitchedFromFragments(t *testing.T) {
	// Outer square split into two open fragments sharing endpoints.
	locator := mapLocator{
		1: {40.0, -74.0},
		2: {40.0, -73.9},
		3: {40.1, -73.9},
		4: {40.1, -74.0},
	}

	rel := relation(60, mpTags(),
		wayMember(30, "outer"),
		wayMember(31, "outer"),
	)

	a := NewAssembler(Options{})
	res, err := a.Assemble(Input{
		Ways: []*osm.Way{
			way(30, []int64{1, 2, 3}),
			way(31, []int64{3, 4, 1}),
		},
		Relations: []*osm.Relation{rel},
		Nodes:     locator,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 0 {
		t.Fatalf("skipped = %d, want 0", res.Skipped)
	}
	if len(res.Features) != 1 {
		t.Fatalf("feature count = %d, want 1", len(res.Features))
	}
	poly := res.Features[0].Geometry.(orb.Polygon)
	if !poly[0].Closed() {
		t.Error("stitched ring must be closed")
	}
	if len(poly[0]) != 5 {
		t.Errorf("ring has %d points, want 5", len(poly[0]))
	}
}

func TestStitchingToleranceGap(t *testing.T) {
	// Fragment endpoints differ by ~1e-7 degrees: within a 1e-6
	// tolerance the ring closes, with a tighter tolerance it fails.
	locator := mapLocator{
		1: {40.0, -74.0},
		2: {40.0, -73.9},
		3: {40.1, -73.9},
		4: {40.1, -74.0},
		5: {40.1 + 1e-7, -73.9}, // near-coincident with node 3
	}

	ways := []*osm.Way{
		way(30, []int64{1, 2, 3}),
		way(31, []int64{5, 4, 1}),
	}
	rel := relation(61, mpTags(),
		wayMember(30, "outer"),
		wayMember(31, "outer"),
	)

	t.Run("gap within tolerance closes", func(t *testing.T) {
		a := NewAssembler(Options{StitchToleranceDeg: 1e-6})
		res, err := a.Assemble(Input{Ways: ways, Relations: []*osm.Relation{rel}, Nodes: locator})
		if err != nil {
			t.Fatal(err)
		}
		if res.Skipped != 0 || len(res.Features) != 1 {
			t.Fatalf("skipped=%d features=%d, want 0 and 1", res.Skipped, len(res.Features))
		}
		poly := res.Features[0].Geometry.(orb.Polygon)
		if !poly[0].Closed() {
			t.Error("ring must be exactly closed after snapping")
		}
	})

	t.Run("gap beyond tolerance fails that feature only", func(t *testing.T) {
		a := NewAssembler(Options{StitchToleranceDeg: 1e-9})
		res, err := a.Assemble(Input{Ways: ways, Relations: []*osm.Relation{rel}, Nodes: locator})
		if err != nil {
			t.Fatal(err)
		}
		if res.Skipped != 1 {
			t.Errorf("skipped = %d, want 1", res.Skipped)
		}
		if len(res.Features) != 0 {
			t.Errorf("features = %d, want 0", len(res.Features))
		}
	})
}

func TestExclaveRelation(t *testing.T) {
	locator := mapLocator{}
	mainland := squareNodes(locator, 100, -74.0, 40.0, 0.1)
	exclave := squareNodes(locator, 200, -73.5, 40.5, 0.05)

	rel := relation(70, osm.Tags{{Key: "type", Value: "multipolygon"}, {Key: "landuse", Value: "forest"}},
		wayMember(40, "outer"),
		wayMember(41, "outer"),
	)

	a := NewAssembler(Options{})
	res, err := a.Assemble(Input{
		Ways:      []*osm.Way{way(40, mainland), way(41, exclave)},
		Relations: []*osm.Relation{rel},
		Nodes:     locator,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Features) != 1 {
		t.Fatalf("feature count = %d, want 1", len(res.Features))
	}

	mp, ok := res.Features[0].Geometry.(orb.MultiPolygon)
	if !ok {
		t.Fatalf("geometry = %T, want MultiPolygon", res.Features[0].Geometry)
	}
	if len(mp) != 2 {
		t.Fatalf("polygon count = %d, want 2", len(mp))
	}
	for i, poly := range mp {
		if len(poly) != 1 {
			t.Errorf("polygon %d has %d rings, want 1 (no holes)", i, len(poly))
		}
	}
}

func TestHoleAssignedToSmallestContainingOuter(t *testing.T) {
	locator := mapLocator{}
	large := squareNodes(locator, 100, -74.0, 40.0, 1.0)
	small := squareNodes(locator, 200, -73.8, 40.2, 0.4)
	hole := squareNodes(locator, 300, -73.7, 40.3, 0.1)

	rel := relation(80, mpTags(),
		wayMember(50, "outer"),
		wayMember(51, "outer"),
		wayMember(52, "inner"),
	)

	a := NewAssembler(Options{})
	res, err := a.Assemble(Input{
		Ways:      []*osm.Way{way(50, large), way(51, small), way(52, hole)},
		Relations: []*osm.Relation{rel},
		Nodes:     locator,
	})
	if err != nil {
		t.Fatal(err)
	}

	mp := res.Features[0].Geometry.(orb.MultiPolygon)
	if len(mp) != 2 {
		t.Fatalf("polygon count = %d, want 2", len(mp))
	}

	var withHole, withoutHole orb.Polygon
	for _, poly := range mp {
		if len(poly) == 2 {
			withHole = poly
		} else {
			withoutHole = poly
		}
	}
	if withHole == nil {
		t.Fatal("no polygon received the hole")
	}

	// The hole must live in the smaller outer.
	if planar.Area(withHole[0].Bound().ToPolygon()) > planar.Area(withoutHole[0].Bound().ToPolygon()) {
		t.Error("hole was assigned to the larger outer ring")
	}
	if !planar.RingContains(withHole[0], withHole[1][0]) {
		t.Error("hole vertex not inside its outer ring")
	}
}

func TestInnerWithoutContainerSkipsFeature(t *testing.T) {
	locator := mapLocator{}
	outer := squareNodes(locator, 100, -74.0, 40.0, 0.1)
	// Inner ring entirely outside the outer.
	stray := squareNodes(locator, 200, -70.0, 45.0, 0.02)

	rel := relation(90, mpTags(),
		wayMember(60, "outer"),
		wayMember(61, "inner"),
	)

	a := NewAssembler(Options{})
	res, err := a.Assemble(Input{
		Ways:      []*osm.Way{way(60, outer), way(61, stray)},
		Relations: []*osm.Relation{rel},
		Nodes:     locator,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", res.Skipped)
	}
	if len(res.Features) != 0 {
		t.Errorf("features = %d, want 0", len(res.Features))
	}
}

func TestBoundaryRelationBecomesRegion(t *testing.T) {
	locator := mapLocator{}
	ring := squareNodes(locator, 100, -74.0, 40.0, 0.2)

	rel := relation(8398124, osm.Tags{{Key: "type", Value: "boundary"}, {Key: "boundary", Value: "administrative"}},
		wayMember(70, "outer"),
	)

	a := NewAssembler(Options{BoundaryRelationID: 8398124})
	res, err := a.Assemble(Input{
		Ways:      []*osm.Way{way(70, ring)},
		Relations: []*osm.Relation{rel},
		Nodes:     locator,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Boundary == nil {
		t.Fatal("boundary relation was not captured")
	}
	if len(res.Boundary) != 1 {
		t.Errorf("boundary polygon count = %d, want 1", len(res.Boundary))
	}
	// The boundary is the clip region, not a drawn feature.
	if len(res.Features) != 0 {
		t.Errorf("features = %d, want 0", len(res.Features))
	}
}

func TestUntaggedMemberWaysNotEmitted(t *testing.T) {
	locator := mapLocator{}
	outer := squareNodes(locator, 100, -74.0, 40.0, 0.1)

	rel := relation(95, mpTags(), wayMember(80, "outer"))

	a := NewAssembler(Options{})
	res, err := a.Assemble(Input{
		Ways:      []*osm.Way{way(80, outer)}, // no tags of its own
		Relations: []*osm.Relation{rel},
		Nodes:     locator,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Features) != 1 {
		t.Fatalf("feature count = %d, want only the relation polygon", len(res.Features))
	}
	if res.Features[0].OSMType != osm.TypeRelation {
		t.Errorf("feature type = %v, want relation", res.Features[0].OSMType)
	}
}
