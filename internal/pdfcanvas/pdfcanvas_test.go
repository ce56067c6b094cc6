package pdfcanvas

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/wegman-software/osm2pdf-go/internal/layout"
	"github.com/wegman-software/osm2pdf-go/internal/render"
	"github.com/wegman-software/osm2pdf-go/internal/style"
)

func tile(row, col int, w, h float64) layout.Tile {
	return layout.Tile{
		Row: row, Col: col,
		Bound: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{w, h}},
	}
}

func TestTileFileNaming(t *testing.T) {
	tests := []struct {
		name      string
		multiTile bool
		tile      layout.Tile
		want      string
	}{
		{"single sheet keeps path", false, tile(0, 0, 100, 100), "maps/map.pdf"},
		{"tiled sheet gets grid suffix", true, tile(1, 2, 100, 100), "maps/map_r1c2.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("maps/map.pdf", tt.multiTile)
			if got := c.TileFile(tt.tile); got != tt.want {
				t.Errorf("TileFile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSheetWritesPDF(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sheets", "map.pdf")
	c := New(out, false)

	pg, err := c.StartTile(tile(0, 0, 200, 100))
	if err != nil {
		t.Fatal(err)
	}

	white := style.Color{R: 1, G: 1, B: 1}
	if err := pg.FillRect(0, 0, 200, 100, white); err != nil {
		t.Fatal(err)
	}
	ring := orb.Ring{{10, 10}, {50, 10}, {50, 50}, {10, 50}, {10, 10}}
	if err := pg.FillRings([]orb.Ring{ring}, style.Color{R: 0.85, G: 0.85, B: 0.85}); err != nil {
		t.Fatal(err)
	}
	err = pg.StrokeLine(orb.LineString{{0, 80}, {200, 80}}, render.StrokeStyle{
		Color: style.Color{R: 0.5, G: 0.5, B: 0.5}, WidthPts: 3, RoundCap: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := pg.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header: %q", data[:min(8, len(data))])
	}
}
