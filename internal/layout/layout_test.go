package layout

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func bound(w, h float64) orb.Bound {
	return orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{w, h}}
}

func TestSinglePage(t *testing.T) {
	page, err := Compute(bound(7200, 3600), 2834.6472, Options{
		MaxSheetPts:    14400,
		TileOverlapPts: 36,
	})
	if err != nil {
		t.Fatal(err)
	}

	if page.Rows != 1 || page.Cols != 1 {
		t.Fatalf("grid = %dx%d, want 1x1", page.Rows, page.Cols)
	}
	if len(page.Tiles) != 1 {
		t.Fatalf("tiles = %d, want 1", len(page.Tiles))
	}
	tile := page.Tiles[0]
	if tile.Bound != page.Bound {
		t.Errorf("single tile bound = %v, want full page %v", tile.Bound, page.Bound)
	}
	// 7200 pt at 1:1 is about 2.54 m of paper.
	if math.Abs(page.WidthM-7200/2834.6472) > 1e-9 {
		t.Errorf("width = %g m", page.WidthM)
	}
}

func TestOversizedPageTiles(t *testing.T) {
	page, err := Compute(bound(30000, 20000), 2834.6472, Options{
		MaxSheetPts:    14400,
		TileOverlapPts: 36,
	})
	if err != nil {
		t.Fatal(err)
	}

	if page.Cols != 3 || page.Rows != 2 {
		t.Fatalf("grid = %d cols x %d rows, want 3x2", page.Cols, page.Rows)
	}
	if len(page.Tiles) != 6 {
		t.Fatalf("tiles = %d, want 6", len(page.Tiles))
	}

	for _, tile := range page.Tiles {
		if tile.Width() > 14400+2*36 || tile.Height() > 14400+2*36 {
			t.Errorf("tile %d,%d size %gx%g exceeds sheet cap",
				tile.Row, tile.Col, tile.Width(), tile.Height())
		}
		if tile.Bound.Min[0] < page.Bound.Min[0] || tile.Bound.Max[0] > page.Bound.Max[0] ||
			tile.Bound.Min[1] < page.Bound.Min[1] || tile.Bound.Max[1] > page.Bound.Max[1] {
			t.Errorf("tile %d,%d bound %v escapes the page", tile.Row, tile.Col, tile.Bound)
		}
	}

	// Horizontally adjacent tiles must share an overlap band.
	left, right := page.Tiles[0], page.Tiles[1]
	if got := left.Bound.Max[0] - right.Bound.Min[0]; math.Abs(got-2*36) > 1e-9 {
		t.Errorf("horizontal overlap = %g pt, want %g", got, 2*36.0)
	}
	// Vertically adjacent tiles too.
	top := page.Tiles[page.Cols]
	if got := page.Tiles[0].Bound.Max[1] - top.Bound.Min[1]; math.Abs(got-2*36) > 1e-9 {
		t.Errorf("vertical overlap = %g pt, want %g", got, 2*36.0)
	}
}

func TestTilesCoverPage(t *testing.T) {
	page, err := Compute(bound(50000, 15000), 2834.6472, Options{
		MaxSheetPts:    14400,
		TileOverlapPts: 36,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Union of tile bounds must be the whole page: every tile's base
	// cell edges meet its neighbors.
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, tile := range page.Tiles {
		minX = math.Min(minX, tile.Bound.Min[0])
		minY = math.Min(minY, tile.Bound.Min[1])
		maxX = math.Max(maxX, tile.Bound.Max[0])
		maxY = math.Max(maxY, tile.Bound.Max[1])
	}
	if minX != page.Bound.Min[0] || minY != page.Bound.Min[1] ||
		maxX != page.Bound.Max[0] || maxY != page.Bound.Max[1] {
		t.Errorf("tile union (%g,%g)-(%g,%g) != page %v", minX, minY, maxX, maxY, page.Bound)
	}
}

func TestLayoutErrors(t *testing.T) {
	tests := []struct {
		name  string
		bound orb.Bound
		ppm   float64
		opts  Options
	}{
		{"empty extent", bound(0, 100), 2834.6472, Options{MaxSheetPts: 14400}},
		{"negative extent", orb.Bound{Min: orb.Point{10, 10}, Max: orb.Point{0, 0}}, 2834.6472, Options{MaxSheetPts: 14400}},
		{"zero scale", bound(100, 100), 0, Options{MaxSheetPts: 14400}},
		{"zero sheet cap", bound(100, 100), 2834.6472, Options{}},
		{"absurd width", bound(MaxPageDimensionPts*2, 100), 2834.6472, Options{MaxSheetPts: 14400}},
		{"absurd height", bound(100, MaxPageDimensionPts*2), 2834.6472, Options{MaxSheetPts: 14400}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.bound, tt.ppm, tt.opts)
			var le *LayoutError
			if !errors.As(err, &le) {
				t.Fatalf("want LayoutError, got %v", err)
			}
		})
	}
}
