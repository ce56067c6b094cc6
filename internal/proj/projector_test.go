package proj

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/wegman-software/osm2pdf-go/internal/config"
)

func manhattanBBox() *config.BBox {
	return &config.BBox{MinLon: -74.03, MinLat: 40.68, MaxLon: -73.90, MaxLat: 40.88, IsSet: true}
}

func TestProjectionIsDeterministic(t *testing.T) {
	p := NewProjector(manhattanBBox(), 1)

	pt := orb.Point{-73.97, 40.75}
	first, err := p.Point(pt)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		again, err := p.Point(pt)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("run %d: got %v, want %v", i, again, first)
		}
	}
}

func TestProjectedDistanceMatchesGreatCircle(t *testing.T) {
	bbox := manhattanBBox()
	p := NewProjector(bbox, 1)

	// Point pairs near the bbox center, a few hundred meters apart.
	pairs := [][2]orb.Point{
		{{-73.97, 40.78}, {-73.96, 40.78}},  // east-west
		{{-73.97, 40.78}, {-73.97, 40.785}}, // north-south
		{{-73.97, 40.78}, {-73.96, 40.785}}, // diagonal
	}

	const pointsPerMeter = pointsPerInch * inchesPerMeter

	for _, pair := range pairs {
		a, err := p.Point(pair[0])
		if err != nil {
			t.Fatal(err)
		}
		b, err := p.Point(pair[1])
		if err != nil {
			t.Fatal(err)
		}

		gotMeters := math.Hypot(b[0]-a[0], b[1]-a[1]) / pointsPerMeter
		wantMeters := geo.Distance(pair[0], pair[1])

		relErr := math.Abs(gotMeters-wantMeters) / wantMeters
		if relErr > 0.005 {
			t.Errorf("distance %v-%v: projected %.2fm, great-circle %.2fm, rel err %.4f",
				pair[0], pair[1], gotMeters, wantMeters, relErr)
		}
	}
}

func TestScaleDenominatorShrinksOutput(t *testing.T) {
	bbox := manhattanBBox()
	full := NewProjector(bbox, 1)
	scaled := NewProjector(bbox, 1000)

	pt := orb.Point{-73.97, 40.78}
	a, _ := full.Point(pt)
	b, _ := scaled.Point(pt)

	if math.Abs(a[0]/b[0]-1000) > 1e-6 || math.Abs(a[1]/b[1]-1000) > 1e-6 {
		t.Errorf("1:1000 output %v is not 1000x smaller than 1:1 output %v", b, a)
	}
}

func TestOriginProjectsToZero(t *testing.T) {
	bbox := manhattanBBox()
	p := NewProjector(bbox, 1)

	origin, err := p.Point(orb.Point{bbox.MinLon, bbox.MinLat})
	if err != nil {
		t.Fatal(err)
	}
	if origin[0] != 0 || origin[1] != 0 {
		t.Errorf("south-west corner projects to %v, want (0,0)", origin)
	}
}

func TestNonFiniteInputFails(t *testing.T) {
	p := NewProjector(manhattanBBox(), 1)

	_, err := p.Point(orb.Point{math.NaN(), 40.75})
	if err == nil {
		t.Fatal("NaN longitude must fail")
	}
	var perr *ProjectionError
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T, want *ProjectionError", err)
	}
}

func TestGeometryProjection(t *testing.T) {
	p := NewProjector(manhattanBBox(), 1)

	poly := orb.Polygon{
		{{-73.99, 40.70}, {-73.98, 40.70}, {-73.98, 40.71}, {-73.99, 40.71}, {-73.99, 40.70}},
		{{-73.987, 40.703}, {-73.983, 40.703}, {-73.983, 40.707}, {-73.987, 40.707}, {-73.987, 40.703}},
	}

	out, err := p.Geometry(poly)
	if err != nil {
		t.Fatal(err)
	}
	projected, ok := out.(orb.Polygon)
	if !ok {
		t.Fatalf("projected type = %T, want orb.Polygon", out)
	}
	if len(projected) != 2 {
		t.Fatalf("ring count = %d, want 2", len(projected))
	}
	if !projected[0].Closed() || !projected[1].Closed() {
		t.Error("projected rings must stay closed")
	}

	// Input must be untouched.
	if poly[0][0] != (orb.Point{-73.99, 40.70}) {
		t.Error("projection mutated its input")
	}
}
