// Package render draws classified, clipped features onto sheet canvases
// in z order. The canvas is abstract; the pdfcanvas package provides the
// PDF-backed implementation.
package render

import (
	"context"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/osm2pdf-go/internal/feature"
	"github.com/wegman-software/osm2pdf-go/internal/layout"
	"github.com/wegman-software/osm2pdf-go/internal/logger"
	"github.com/wegman-software/osm2pdf-go/internal/style"
)

// StrokeStyle is a resolved line style in page units.
type StrokeStyle struct {
	Color    style.Color
	WidthPts float64
	RoundCap bool
}

// Page receives draw calls for one sheet. Coordinates are tile-local
// points with the origin at the sheet's lower-left corner.
type Page interface {
	FillRect(x, y, w, h float64, col style.Color) error
	// FillRings paints the rings as one compound path with even-odd
	// winding, so holes stay unpainted.
	FillRings(rings []orb.Ring, col style.Color) error
	StrokeLine(ls orb.LineString, stroke StrokeStyle) error
	Close() error
}

// Canvas opens sheets. Implementations must allow concurrent StartTile
// calls; each returned Page is used by a single goroutine.
type Canvas interface {
	StartTile(tile layout.Tile) (Page, error)
}

// Renderer draws one feature set across the page's tiles.
type Renderer struct {
	sheet          *style.Sheet
	pointsPerMeter float64
	workers        int
	log            *zap.Logger
}

// New creates a renderer. pointsPerMeter converts style widths given in
// ground meters to page points.
func New(sheet *style.Sheet, pointsPerMeter float64, workers int) *Renderer {
	if workers < 1 {
		workers = 1
	}
	return &Renderer{
		sheet:          sheet,
		pointsPerMeter: pointsPerMeter,
		workers:        workers,
		log:            logger.Stage("render"),
	}
}

// Render draws the features onto every tile of the page. Tiles render
// in parallel; the features themselves are drawn strictly in z order
// within each tile, ties keeping input order. land, when non-nil, is
// underpainted over the background before any feature.
func (r *Renderer) Render(ctx context.Context, canvas Canvas, page *layout.Page, land orb.MultiPolygon, feats []*feature.Record) error {
	ordered := make([]*feature.Record, len(feats))
	copy(ordered, feats)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ZOrder < ordered[j].ZOrder
	})

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, tile := range page.Tiles {
		tile := tile
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.renderTile(canvas, tile, land, ordered); err != nil {
				return fmt.Errorf("tile %d,%d: %w", tile.Row, tile.Col, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Renderer) renderTile(canvas Canvas, tile layout.Tile, land orb.MultiPolygon, ordered []*feature.Record) error {
	pg, err := canvas.StartTile(tile)
	if err != nil {
		return err
	}

	if err := pg.FillRect(0, 0, tile.Width(), tile.Height(), r.sheet.Background); err != nil {
		return err
	}
	if land == nil {
		if err := pg.FillRect(0, 0, tile.Width(), tile.Height(), r.sheet.Land.Color); err != nil {
			return err
		}
	} else {
		for _, poly := range land {
			if !poly.Bound().Intersects(tile.Bound) {
				continue
			}
			if err := pg.FillRings(translateRings(poly, tile.Bound.Min), r.sheet.Land.Color); err != nil {
				return err
			}
		}
	}

	drawn := 0
	for _, rec := range ordered {
		if rec.Geometry == nil || !rec.Geometry.Bound().Intersects(tile.Bound) {
			continue
		}
		if err := r.drawFeature(pg, tile, rec); err != nil {
			return err
		}
		drawn++
	}

	r.log.Debug("rendered tile",
		zap.Int("row", tile.Row),
		zap.Int("col", tile.Col),
		zap.Int("features", drawn))

	return pg.Close()
}

func (r *Renderer) drawFeature(pg Page, tile layout.Tile, rec *feature.Record) error {
	origin := tile.Bound.Min

	switch geom := rec.Geometry.(type) {
	case orb.Polygon:
		if rec.Category == feature.CategoryBoundary {
			return r.strokeRings(pg, geom, origin, rec)
		}
		return pg.FillRings(translateRings(geom, origin), r.sheet.FillFor(rec).Color)

	case orb.MultiPolygon:
		if rec.Category == feature.CategoryBoundary {
			for _, poly := range geom {
				if err := r.strokeRings(pg, poly, origin, rec); err != nil {
					return err
				}
			}
			return nil
		}
		col := r.sheet.FillFor(rec).Color
		for _, poly := range geom {
			if err := pg.FillRings(translateRings(poly, origin), col); err != nil {
				return err
			}
		}
		return nil

	case orb.LineString:
		return pg.StrokeLine(translateLine(geom, origin), r.strokeFor(rec))

	case orb.MultiLineString:
		stroke := r.strokeFor(rec)
		for _, ls := range geom {
			if err := pg.StrokeLine(translateLine(ls, origin), stroke); err != nil {
				return err
			}
		}
		return nil

	case orb.Point:
		// Points carry no drawable style.
		return nil

	default:
		r.log.Warn("skipping undrawable geometry",
			zap.String("type", fmt.Sprintf("%T", geom)),
			zap.Int64("osm_id", rec.OSMID))
		return nil
	}
}

// strokeRings draws a closed area as outlines only. Administrative
// boundaries arrive as polygons but render as lines; filling them would
// paint over every layer beneath.
func (r *Renderer) strokeRings(pg Page, poly orb.Polygon, origin orb.Point, rec *feature.Record) error {
	stroke := r.strokeFor(rec)
	for _, ring := range translateRings(poly, origin) {
		if err := pg.StrokeLine(orb.LineString(ring), stroke); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) strokeFor(rec *feature.Record) StrokeStyle {
	ln := r.sheet.LineFor(rec)
	return StrokeStyle{
		Color:    ln.Stroke,
		WidthPts: ln.WidthM * r.pointsPerMeter,
		RoundCap: ln.RoundCap,
	}
}

func translateRings(poly orb.Polygon, origin orb.Point) []orb.Ring {
	rings := make([]orb.Ring, len(poly))
	for i, ring := range poly {
		out := make(orb.Ring, len(ring))
		for j, p := range ring {
			out[j] = orb.Point{p[0] - origin[0], p[1] - origin[1]}
		}
		rings[i] = out
	}
	return rings
}

func translateLine(ls orb.LineString, origin orb.Point) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = orb.Point{p[0] - origin[0], p[1] - origin[1]}
	}
	return out
}
