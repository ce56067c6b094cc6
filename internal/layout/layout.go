// Package layout computes physical sheet dimensions from projected
// geometry and splits oversized pages into a printable tile grid.
package layout

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2pdf-go/internal/logger"
)

// LayoutError reports an unusable page geometry. Unlike per-feature
// errors this is fatal: no meaningful output exists without a page.
type LayoutError struct {
	Reason string
}

func (e *LayoutError) Error() string {
	return "layout failed: " + e.Reason
}

// Tile is one printable sheet of the page grid. Bound is the window of
// page coordinates the tile draws, overlap included.
type Tile struct {
	Row, Col int
	Bound    orb.Bound
}

// Width returns the tile sheet width in points.
func (t Tile) Width() float64 { return t.Bound.Max[0] - t.Bound.Min[0] }

// Height returns the tile sheet height in points.
func (t Tile) Height() float64 { return t.Bound.Max[1] - t.Bound.Min[1] }

// Page is the computed print layout for one run.
type Page struct {
	// Bound is the full page extent in points.
	Bound orb.Bound
	// WidthPts and HeightPts are the full page dimensions in points.
	WidthPts, HeightPts float64
	// WidthM and HeightM are the ground dimensions in meters.
	WidthM, HeightM float64
	Rows, Cols      int
	Tiles           []Tile
}

// Hard limit on either page dimension, about ten kilometers of paper.
// Extents past this point a misconfigured bbox or scale, not a map
// anyone can print.
const MaxPageDimensionPts = 3e7

// Options control page splitting.
type Options struct {
	// MaxSheetPts caps a single sheet edge, in points.
	MaxSheetPts float64
	// TileOverlapPts extends each tile across shared grid edges so
	// adjacent sheets can be glued without gaps.
	TileOverlapPts float64
}

// Compute derives the page layout from the projected extent.
// pointsPerMeter converts between page points and ground meters at the
// configured scale.
func Compute(bound orb.Bound, pointsPerMeter float64, opts Options) (*Page, error) {
	width := bound.Max[0] - bound.Min[0]
	height := bound.Max[1] - bound.Min[1]
	if width <= 0 || height <= 0 {
		return nil, &LayoutError{Reason: fmt.Sprintf("empty page extent %gx%g pt", width, height)}
	}
	if pointsPerMeter <= 0 {
		return nil, &LayoutError{Reason: fmt.Sprintf("invalid scale %g pt/m", pointsPerMeter)}
	}
	if opts.MaxSheetPts <= 0 {
		return nil, &LayoutError{Reason: "max sheet size must be positive"}
	}
	if width > MaxPageDimensionPts || height > MaxPageDimensionPts {
		return nil, &LayoutError{Reason: fmt.Sprintf(
			"page %gx%g pt exceeds the %g pt limit, check bbox and scale",
			width, height, float64(MaxPageDimensionPts))}
	}

	page := &Page{
		Bound:     bound,
		WidthPts:  width,
		HeightPts: height,
		WidthM:    width / pointsPerMeter,
		HeightM:   height / pointsPerMeter,
		Cols:      int(math.Ceil(width / opts.MaxSheetPts)),
		Rows:      int(math.Ceil(height / opts.MaxSheetPts)),
	}

	tileW := width / float64(page.Cols)
	tileH := height / float64(page.Rows)

	for row := 0; row < page.Rows; row++ {
		for col := 0; col < page.Cols; col++ {
			minX := bound.Min[0] + float64(col)*tileW
			minY := bound.Min[1] + float64(row)*tileH
			maxX := minX + tileW
			maxY := minY + tileH

			// Extend across interior edges only; the outer page edge
			// has nothing to glue to.
			if col > 0 {
				minX -= opts.TileOverlapPts
			}
			if col < page.Cols-1 {
				maxX += opts.TileOverlapPts
			}
			if row > 0 {
				minY -= opts.TileOverlapPts
			}
			if row < page.Rows-1 {
				maxY += opts.TileOverlapPts
			}

			page.Tiles = append(page.Tiles, Tile{
				Row: row,
				Col: col,
				Bound: orb.Bound{
					Min: orb.Point{math.Max(minX, bound.Min[0]), math.Max(minY, bound.Min[1])},
					Max: orb.Point{math.Min(maxX, bound.Max[0]), math.Min(maxY, bound.Max[1])},
				},
			})
		}
	}

	logger.Get().Info("computed page layout",
		zap.Float64("width_m", page.WidthM),
		zap.Float64("height_m", page.HeightM),
		zap.Float64("width_pts", page.WidthPts),
		zap.Float64("height_pts", page.HeightPts),
		zap.Int("rows", page.Rows),
		zap.Int("cols", page.Cols))

	return page, nil
}
